// Package alerts delivers post-commit register notifications without blocking sales.
package alerts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-backend/pkg/enums"
)

// Alert is a committed fact waiting to be announced.
type Alert struct {
	Type       enums.OutboxEventType
	StoreID    uuid.UUID
	ActorID    uuid.UUID
	OccurredAt time.Time
	Sale       *SaleFact
	Product    *ProductFact
}

// SaleFact describes a committed sale.
type SaleFact struct {
	SaleID     uuid.UUID
	SaleNumber string
	Amount     decimal.Decimal
	EmployeeID uuid.UUID
	CustomerID *uuid.UUID
}

// ProductFact is a product's stock after a sale.
type ProductFact struct {
	ProductID uuid.UUID
	Name      string
	Stock     int
	MinStock  int
}

// NewSale builds the alert for a committed sale.
func NewSale(storeID uuid.UUID, fact SaleFact, at time.Time) Alert {
	return Alert{
		Type:       enums.EventNewSale,
		StoreID:    storeID,
		ActorID:    fact.EmployeeID,
		OccurredAt: at,
		Sale:       &fact,
	}
}

// LowStock builds the alert for a product at or below its minimum.
func LowStock(storeID, actorID uuid.UUID, fact ProductFact, at time.Time) Alert {
	return Alert{
		Type:       enums.EventLowStock,
		StoreID:    storeID,
		ActorID:    actorID,
		OccurredAt: at,
		Product:    &fact,
	}
}

// OutOfStock builds the alert for a product sold out.
func OutOfStock(storeID, actorID uuid.UUID, fact ProductFact, at time.Time) Alert {
	return Alert{
		Type:       enums.EventOutOfStock,
		StoreID:    storeID,
		ActorID:    actorID,
		OccurredAt: at,
		Product:    &fact,
	}
}

// Event is an enriched alert ready for a sink.
type Event struct {
	Type          enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	StoreID       uuid.UUID
	ActorID       uuid.UUID
	OccurredAt    time.Time
	Data          any
}
