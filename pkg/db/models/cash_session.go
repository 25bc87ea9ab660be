package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashSession is one store's register shift for one business day.
type CashSession struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	StoreID       uuid.UUID        `gorm:"column:store_id;type:uuid;not null;uniqueIndex:ux_cash_sessions_open_day,where:is_open = true"`
	BusinessDate  string           `gorm:"column:business_date;type:varchar(10);not null;uniqueIndex:ux_cash_sessions_open_day,where:is_open = true"`
	OpenedBy      uuid.UUID        `gorm:"column:opened_by;type:uuid;not null"`
	ClosedBy      *uuid.UUID       `gorm:"column:closed_by;type:uuid"`
	OpeningAmount decimal.Decimal  `gorm:"column:opening_amount;type:numeric(12,2);not null"`
	ClosingAmount *decimal.Decimal `gorm:"column:closing_amount;type:numeric(12,2)"`
	TotalSales    decimal.Decimal  `gorm:"column:total_sales;type:numeric(12,2);not null;default:0"`
	TotalExpenses decimal.Decimal  `gorm:"column:total_expenses;type:numeric(12,2);not null;default:0"`
	IsOpen        bool             `gorm:"column:is_open;not null;default:true"`
	Notes         *string          `gorm:"column:notes"`
	OpenedAt      time.Time        `gorm:"column:opened_at;not null"`
	ClosedAt      *time.Time       `gorm:"column:closed_at"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	Sales    []Sale    `gorm:"foreignKey:CashSessionID"`
	Expenses []Expense `gorm:"foreignKey:CashSessionID"`
}

func (s *CashSession) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
