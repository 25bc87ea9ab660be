package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewSaleEvent announces a committed sale.
type NewSaleEvent struct {
	SaleID       uuid.UUID       `json:"saleId"`
	SaleNumber   string          `json:"saleNumber"`
	Amount       decimal.Decimal `json:"amount"`
	StoreID      uuid.UUID       `json:"storeId"`
	EmployeeID   uuid.UUID       `json:"employeeId"`
	CustomerName *string         `json:"customerName,omitempty"`
	StoreName    *string         `json:"storeName,omitempty"`
}

// LowStockEvent fires when a sale leaves a product at or below its minimum.
type LowStockEvent struct {
	ProductID    uuid.UUID `json:"productId"`
	ProductName  string    `json:"productName"`
	CurrentStock int       `json:"currentStock"`
	MinStock     int       `json:"minStock"`
	StoreID      uuid.UUID `json:"storeId"`
	StoreName    *string   `json:"storeName,omitempty"`
}

// OutOfStockEvent fires when a sale takes a product to zero.
type OutOfStockEvent struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	StoreID     uuid.UUID `json:"storeId"`
	StoreName   *string   `json:"storeName,omitempty"`
}

// AlertStore returns the store the alert belongs to; it is the publish ordering key.
func (e NewSaleEvent) AlertStore() uuid.UUID { return e.StoreID }

func (e LowStockEvent) AlertStore() uuid.UUID { return e.StoreID }

func (e OutOfStockEvent) AlertStore() uuid.UUID { return e.StoreID }
