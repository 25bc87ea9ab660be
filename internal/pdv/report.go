package pdv

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-backend/internal/sales"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	"github.com/angelmondragon/pdv-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

// SalesReport aggregates settled sales over a date range.
type SalesReport struct {
	StartDate        string                                   `json:"start_date"`
	EndDate          string                                   `json:"end_date"`
	TotalSales       decimal.Decimal                          `json:"total_sales"`
	TotalDiscounts   decimal.Decimal                          `json:"total_discounts"`
	TotalTaxes       decimal.Decimal                          `json:"total_taxes"`
	NetSales         decimal.Decimal                          `json:"net_sales"`
	TransactionCount int                                      `json:"transaction_count"`
	ByPaymentMethod  map[enums.PaymentMethod]PaymentBreakdown `json:"by_payment_method"`
	TopProducts      []ProductRanking                         `json:"top_products"`
}

type PaymentBreakdown struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type ProductRanking struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

func (e *engine) SalesReport(ctx context.Context, storeID uuid.UUID, dates storeday.Range) (*SalesReport, error) {
	if dates.From.IsZero() || dates.To.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start and end dates are required")
	}
	from, to := dates.Keys()
	statuses := make([]string, 0, len(enums.CountedSaleStatuses))
	for _, status := range enums.CountedSaleStatuses {
		statuses = append(statuses, string(status))
	}
	list, err := e.sales.List(ctx, storeID, sales.ListFilter{FromDate: from, ToDate: to, Statuses: statuses})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load report sales")
	}

	report := aggregate(list, e.topProducts)
	report.StartDate = from
	report.EndDate = to
	return report, nil
}

func aggregate(list []models.Sale, topN int) *SalesReport {
	report := &SalesReport{
		TotalSales:      decimal.Zero,
		TotalDiscounts:  decimal.Zero,
		TotalTaxes:      decimal.Zero,
		ByPaymentMethod: map[enums.PaymentMethod]PaymentBreakdown{},
		TopProducts:     []ProductRanking{},
	}
	products := map[uuid.UUID]*ProductRanking{}

	for _, sale := range list {
		if !sale.Status.Counted() {
			continue
		}
		report.TransactionCount++
		report.TotalSales = report.TotalSales.Add(sale.TotalAmount)
		report.TotalDiscounts = report.TotalDiscounts.Add(sale.Discount)
		report.TotalTaxes = report.TotalTaxes.Add(sale.Tax)

		breakdown := report.ByPaymentMethod[sale.PaymentMethod]
		breakdown.Count++
		breakdown.Total = roundMoney(breakdown.Total.Add(sale.TotalAmount))
		report.ByPaymentMethod[sale.PaymentMethod] = breakdown

		for _, item := range sale.Items {
			ranking, ok := products[item.ProductID]
			if !ok {
				ranking = &ProductRanking{ProductID: item.ProductID, ProductName: item.ProductName, Revenue: decimal.Zero}
				products[item.ProductID] = ranking
			}
			ranking.Quantity += item.Quantity
			ranking.Revenue = roundMoney(ranking.Revenue.Add(item.TotalPrice))
		}
	}

	report.TotalSales = roundMoney(report.TotalSales)
	report.TotalDiscounts = roundMoney(report.TotalDiscounts)
	report.TotalTaxes = roundMoney(report.TotalTaxes)
	report.NetSales = roundMoney(report.TotalSales.Sub(report.TotalDiscounts).Add(report.TotalTaxes))

	for _, ranking := range products {
		report.TopProducts = append(report.TopProducts, *ranking)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		a, b := report.TopProducts[i], report.TopProducts[j]
		if cmp := a.Revenue.Cmp(b.Revenue); cmp != 0 {
			return cmp > 0
		}
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.ProductName < b.ProductName
	})
	if len(report.TopProducts) > topN {
		report.TopProducts = report.TopProducts[:topN]
	}
	return report
}
