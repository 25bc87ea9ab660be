package pdv

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/internal/alerts"
	"github.com/angelmondragon/pdv-backend/internal/stock"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	"github.com/angelmondragon/pdv-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
)

// CreateSaleInput is a register sale as submitted by a terminal.
type CreateSaleInput struct {
	StoreID          uuid.UUID
	EmployeeID       uuid.UUID
	Items            []SaleItemInput
	Discount         decimal.Decimal
	Tax              decimal.Decimal
	PaymentMethod    string
	PaymentReference *string
	Notes            *string
	CustomerID       *uuid.UUID
}

// SaleItemInput is one requested line. Prices come from the catalog, never from the terminal.
type SaleItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Notes     *string
}

// FieldError points at an invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validateSale(input CreateSaleInput) (enums.PaymentMethod, error) {
	var problems []FieldError
	if input.StoreID == uuid.Nil {
		problems = append(problems, FieldError{Field: "store_id", Message: "is required"})
	}
	if input.EmployeeID == uuid.Nil {
		problems = append(problems, FieldError{Field: "employee_id", Message: "is required"})
	}
	if len(input.Items) == 0 {
		problems = append(problems, FieldError{Field: "items", Message: "at least one item is required"})
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			problems = append(problems, FieldError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "is required"})
		}
		switch {
		case item.Quantity <= 0:
			problems = append(problems, FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be greater than zero"})
		case item.Quantity > stock.MaxQuantity:
			problems = append(problems, FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: fmt.Sprintf("must not exceed %d", stock.MaxQuantity)})
		}
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		problems = append(problems, FieldError{Field: "payment_method", Message: "is not supported"})
	}
	if input.Discount.IsNegative() {
		problems = append(problems, FieldError{Field: "discount", Message: "must not be negative"})
	}
	if input.Tax.IsNegative() {
		problems = append(problems, FieldError{Field: "tax", Message: "must not be negative"})
	}
	if len(problems) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid sale").WithDetails(problems)
	}
	return method, nil
}

// CreateSale validates, reserves stock, persists the sale and bumps the session inside one
// transaction. Alerts are queued only after commit.
func (e *engine) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	sale, snapshots, err := e.createSale(ctx, input)
	if err != nil {
		e.metrics.IncSaleFailure(string(pkgerrors.CodeOf(err)))
		return nil, err
	}

	e.metrics.IncSaleCreated(string(sale.PaymentMethod))
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"sale_id":        sale.ID.String(),
		"sale_number":    sale.SaleNumber,
		"total_amount":   sale.TotalAmount.StringFixed(2),
		"payment_method": string(sale.PaymentMethod),
	})
	e.logg.Info(logCtx, "sale created")

	e.enqueueAlerts(sale, snapshots)
	return sale, nil
}

func (e *engine) createSale(ctx context.Context, input CreateSaleInput) (*models.Sale, []stock.Snapshot, error) {
	method, err := validateSale(input)
	if err != nil {
		return nil, nil, err
	}

	session, err := e.sessions.CurrentOpen(ctx, input.StoreID)
	if err != nil {
		return nil, nil, err
	}
	day, err := e.calendar.Parse(session.BusinessDate)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "session business date")
	}

	requests := make([]stock.Request, 0, len(input.Items))
	for _, item := range input.Items {
		requests = append(requests, stock.Request{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	var (
		sale    *models.Sale
		touched []stock.Snapshot
	)
	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		snapshots, err := e.stock.ReserveAndDecrement(ctx, tx, input.StoreID, requests)
		if err != nil {
			return err
		}

		items := make([]models.SaleItem, 0, len(input.Items))
		total := decimal.Zero
		seen := make(map[uuid.UUID]struct{}, len(snapshots))
		touched = touched[:0]
		for _, item := range input.Items {
			snap, ok := snapshots[item.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found or inactive")
			}
			lineTotal := roundMoney(snap.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			total = total.Add(lineTotal)
			items = append(items, models.SaleItem{
				ProductID:   item.ProductID,
				ProductName: snap.Name,
				Quantity:    item.Quantity,
				UnitPrice:   roundMoney(snap.Price),
				TotalPrice:  lineTotal,
				Notes:       cleanText(item.Notes),
			})
			if _, dup := seen[item.ProductID]; !dup {
				seen[item.ProductID] = struct{}{}
				touched = append(touched, snap)
			}
		}

		sale = &models.Sale{
			StoreID:          input.StoreID,
			CashSessionID:    session.ID,
			EmployeeID:       input.EmployeeID,
			CustomerID:       input.CustomerID,
			TotalAmount:      roundMoney(total),
			Discount:         roundMoney(input.Discount),
			Tax:              roundMoney(input.Tax),
			Status:           method.InitialSaleStatus(),
			PaymentMethod:    method,
			PaymentReference: cleanText(input.PaymentReference),
			Notes:            cleanText(input.Notes),
			CreatedAt:        e.calendar.Now().UTC(),
			Items:            items,
		}
		if err := e.sequencer.Insert(ctx, tx, sale, day); err != nil {
			return err
		}
		return e.sessions.AddSaleTx(ctx, tx, session.ID, sale.TotalAmount)
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create sale")
		}
		return nil, nil, err
	}
	return sale, touched, nil
}

func (e *engine) enqueueAlerts(sale *models.Sale, snapshots []stock.Snapshot) {
	at := sale.CreatedAt
	e.alerts.Enqueue(alerts.NewSale(sale.StoreID, alerts.SaleFact{
		SaleID:     sale.ID,
		SaleNumber: sale.SaleNumber,
		Amount:     sale.TotalAmount,
		EmployeeID: sale.EmployeeID,
		CustomerID: sale.CustomerID,
	}, at))

	for _, snap := range snapshots {
		fact := alerts.ProductFact{
			ProductID: snap.ProductID,
			Name:      snap.Name,
			Stock:     snap.Stock,
			MinStock:  snap.MinStock,
		}
		switch snap.Alert() {
		case stock.AlertOut:
			e.alerts.Enqueue(alerts.OutOfStock(sale.StoreID, sale.EmployeeID, fact, at))
		case stock.AlertLow:
			e.alerts.Enqueue(alerts.LowStock(sale.StoreID, sale.EmployeeID, fact, at))
		}
	}
}

func cleanText(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
