package cashsessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/pkg/db/models"
)

// Repository persists cash sessions and the expenses posted against them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.CashSession) error
	FindOpen(ctx context.Context, storeID uuid.UUID, businessDate string) (*models.CashSession, error)
	FindOpenForUpdate(ctx context.Context, storeID uuid.UUID, businessDate string) (*models.CashSession, error)
	ListOpenBefore(ctx context.Context, businessDate string) ([]models.CashSession, error)
	FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.CashSession, error)
	IncrementTotalSales(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
	IncrementTotalExpenses(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
	CreateExpense(ctx context.Context, expense *models.Expense) error
	SumCountedSales(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	SumExpenses(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	MarkClosed(ctx context.Context, id uuid.UUID, update CloseUpdate) error
}

// CloseUpdate is the final state written when a session is closed.
type CloseUpdate struct {
	ClosedBy      uuid.UUID
	ClosingAmount decimal.Decimal
	TotalSales    decimal.Decimal
	TotalExpenses decimal.Decimal
	ClosedAt      time.Time
	Notes         *string
}
