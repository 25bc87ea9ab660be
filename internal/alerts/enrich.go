package alerts

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pdv-backend/internal/directory"
	"github.com/angelmondragon/pdv-backend/pkg/enums"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
	"github.com/angelmondragon/pdv-backend/pkg/outbox/payloads"
)

// Enricher turns alerts into payloads, attaching store and customer names when known.
type Enricher struct {
	lookup directory.Lookup
	logg   *logger.Logger
}

// NewEnricher builds an enricher. A nil lookup leaves names out.
func NewEnricher(lookup directory.Lookup, logg *logger.Logger) *Enricher {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Enricher{lookup: lookup, logg: logg}
}

// Enrich builds the sink event. Name lookups are best effort.
func (e *Enricher) Enrich(ctx context.Context, alert Alert) (Event, error) {
	event := Event{
		Type:       alert.Type,
		StoreID:    alert.StoreID,
		ActorID:    alert.ActorID,
		OccurredAt: alert.OccurredAt,
	}
	storeName := e.storeName(ctx, alert)

	switch alert.Type {
	case enums.EventNewSale:
		if alert.Sale == nil {
			return Event{}, fmt.Errorf("alert %s missing sale", alert.Type)
		}
		event.AggregateType = enums.AggregateSale
		event.AggregateID = alert.Sale.SaleID
		event.Data = payloads.NewSaleEvent{
			SaleID:       alert.Sale.SaleID,
			SaleNumber:   alert.Sale.SaleNumber,
			Amount:       alert.Sale.Amount,
			StoreID:      alert.StoreID,
			EmployeeID:   alert.Sale.EmployeeID,
			CustomerName: e.customerName(ctx, alert),
			StoreName:    storeName,
		}
	case enums.EventLowStock:
		if alert.Product == nil {
			return Event{}, fmt.Errorf("alert %s missing product", alert.Type)
		}
		event.AggregateType = enums.AggregateProduct
		event.AggregateID = alert.Product.ProductID
		event.Data = payloads.LowStockEvent{
			ProductID:    alert.Product.ProductID,
			ProductName:  alert.Product.Name,
			CurrentStock: alert.Product.Stock,
			MinStock:     alert.Product.MinStock,
			StoreID:      alert.StoreID,
			StoreName:    storeName,
		}
	case enums.EventOutOfStock:
		if alert.Product == nil {
			return Event{}, fmt.Errorf("alert %s missing product", alert.Type)
		}
		event.AggregateType = enums.AggregateProduct
		event.AggregateID = alert.Product.ProductID
		event.Data = payloads.OutOfStockEvent{
			ProductID:   alert.Product.ProductID,
			ProductName: alert.Product.Name,
			StoreID:     alert.StoreID,
			StoreName:   storeName,
		}
	default:
		return Event{}, fmt.Errorf("unknown alert type %q", alert.Type)
	}
	return event, nil
}

func (e *Enricher) storeName(ctx context.Context, alert Alert) *string {
	if e.lookup == nil {
		return nil
	}
	name, ok, err := e.lookup.StoreName(ctx, alert.StoreID)
	if err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "store name lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	return &name
}

func (e *Enricher) customerName(ctx context.Context, alert Alert) *string {
	if e.lookup == nil || alert.Sale == nil || alert.Sale.CustomerID == nil {
		return nil
	}
	name, ok, err := e.lookup.CustomerName(ctx, alert.StoreID, *alert.Sale.CustomerID)
	if err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "customer name lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	return &name
}
