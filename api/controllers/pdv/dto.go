package pdv

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-backend/internal/cashsessions"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
)

type cashSessionResponse struct {
	ID            uuid.UUID  `json:"id"`
	StoreID       uuid.UUID  `json:"store_id"`
	BusinessDate  string     `json:"business_date"`
	OpenedBy      uuid.UUID  `json:"opened_by"`
	ClosedBy      *uuid.UUID `json:"closed_by,omitempty"`
	OpeningAmount string     `json:"opening_amount"`
	ClosingAmount *string    `json:"closing_amount,omitempty"`
	TotalSales    string     `json:"total_sales"`
	TotalExpenses string     `json:"total_expenses"`
	IsOpen        bool       `json:"is_open"`
	Notes         *string    `json:"notes,omitempty"`
	OpenedAt      time.Time  `json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

type closeCashResponse struct {
	Session        cashSessionResponse `json:"session"`
	ExpectedAmount string              `json:"expected_amount"`
	Variance       string              `json:"variance"`
}

type expenseResponse struct {
	ID            uuid.UUID `json:"id"`
	CashSessionID uuid.UUID `json:"cash_session_id"`
	Amount        string    `json:"amount"`
	Description   string    `json:"description"`
	CreatedBy     uuid.UUID `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type saleResponse struct {
	ID               uuid.UUID          `json:"id"`
	SaleNumber       string             `json:"sale_number"`
	BusinessDate     string             `json:"business_date"`
	CashSessionID    uuid.UUID          `json:"cash_session_id"`
	EmployeeID       uuid.UUID          `json:"employee_id"`
	CustomerID       *uuid.UUID         `json:"customer_id,omitempty"`
	TotalAmount      string             `json:"total_amount"`
	Discount         string             `json:"discount"`
	Tax              string             `json:"tax"`
	Status           string             `json:"status"`
	PaymentMethod    string             `json:"payment_method"`
	PaymentReference *string            `json:"payment_reference,omitempty"`
	Notes            *string            `json:"notes,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	Items            []saleItemResponse `json:"items"`
}

type saleItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	TotalPrice  string    `json:"total_price"`
	Notes       *string   `json:"notes,omitempty"`
}

func money(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func newCashSessionResponse(session *models.CashSession) *cashSessionResponse {
	if session == nil {
		return nil
	}
	resp := &cashSessionResponse{
		ID:            session.ID,
		StoreID:       session.StoreID,
		BusinessDate:  session.BusinessDate,
		OpenedBy:      session.OpenedBy,
		ClosedBy:      session.ClosedBy,
		OpeningAmount: money(session.OpeningAmount),
		TotalSales:    money(session.TotalSales),
		TotalExpenses: money(session.TotalExpenses),
		IsOpen:        session.IsOpen,
		Notes:         session.Notes,
		OpenedAt:      session.OpenedAt,
		ClosedAt:      session.ClosedAt,
	}
	if session.ClosingAmount != nil {
		closing := money(*session.ClosingAmount)
		resp.ClosingAmount = &closing
	}
	return resp
}

func newCloseCashResponse(result *cashsessions.CloseResult) closeCashResponse {
	resp := closeCashResponse{
		ExpectedAmount: money(result.ExpectedAmount),
		Variance:       money(result.Variance),
	}
	if session := newCashSessionResponse(result.Session); session != nil {
		resp.Session = *session
	}
	return resp
}

func newExpenseResponse(expense *models.Expense) expenseResponse {
	return expenseResponse{
		ID:            expense.ID,
		CashSessionID: expense.CashSessionID,
		Amount:        money(expense.Amount),
		Description:   expense.Description,
		CreatedBy:     expense.CreatedBy,
		CreatedAt:     expense.CreatedAt,
	}
}

func newSaleResponse(sale *models.Sale) saleResponse {
	items := make([]saleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, saleItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   money(item.UnitPrice),
			TotalPrice:  money(item.TotalPrice),
			Notes:       item.Notes,
		})
	}
	return saleResponse{
		ID:               sale.ID,
		SaleNumber:       sale.SaleNumber,
		BusinessDate:     sale.BusinessDate,
		CashSessionID:    sale.CashSessionID,
		EmployeeID:       sale.EmployeeID,
		CustomerID:       sale.CustomerID,
		TotalAmount:      money(sale.TotalAmount),
		Discount:         money(sale.Discount),
		Tax:              money(sale.Tax),
		Status:           string(sale.Status),
		PaymentMethod:    string(sale.PaymentMethod),
		PaymentReference: sale.PaymentReference,
		Notes:            sale.Notes,
		CreatedAt:        sale.CreatedAt,
		Items:            items,
	}
}

func newSaleListResponse(list []models.Sale) []saleResponse {
	out := make([]saleResponse, 0, len(list))
	for i := range list {
		out = append(out, newSaleResponse(&list[i]))
	}
	return out
}
