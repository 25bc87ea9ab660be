package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/pkg/enums"
)

// Sale is a committed register transaction. Rows are written once, together with their items.
type Sale struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID          uuid.UUID           `gorm:"column:store_id;type:uuid;not null;uniqueIndex:ux_sales_store_number;index:idx_sales_store_created,priority:1"`
	SaleNumber       string              `gorm:"column:sale_number;not null;uniqueIndex:ux_sales_store_number"`
	BusinessDate     string              `gorm:"column:business_date;type:varchar(10);not null"`
	Sequence         int                 `gorm:"column:sequence;not null"`
	CashSessionID    uuid.UUID           `gorm:"column:cash_session_id;type:uuid;not null;index"`
	EmployeeID       uuid.UUID           `gorm:"column:employee_id;type:uuid;not null"`
	CustomerID       *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Discount         decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Tax              decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Status           enums.SaleStatus    `gorm:"column:status;type:sale_status;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	Notes            *string             `gorm:"column:notes"`
	CreatedAt        time.Time           `gorm:"column:created_at;not null;index:idx_sales_store_created,priority:2"`

	Items []SaleItem `gorm:"foreignKey:SaleID"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// SaleItem is an immutable line of a sale, priced from the product at sale time.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	Notes       *string         `gorm:"column:notes"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *SaleItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
