package cashsessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/pdv-backend/pkg/db"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	"github.com/angelmondragon/pdv-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cash session repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.CashSession) error {
	if session == nil {
		return errors.New("session required")
	}
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) FindOpen(ctx context.Context, storeID uuid.UUID, businessDate string) (*models.CashSession, error) {
	var session models.CashSession
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND business_date = ? AND is_open = ?", storeID, businessDate, true).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindOpenForUpdate locks the open session of the store for businessDate.
func (r *repository) FindOpenForUpdate(ctx context.Context, storeID uuid.UUID, businessDate string) (*models.CashSession, error) {
	var session models.CashSession
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).
		Where("store_id = ? AND business_date = ? AND is_open = ?", storeID, businessDate, true).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListOpenBefore returns open sessions of every store whose business date precedes businessDate.
func (r *repository) ListOpenBefore(ctx context.Context, businessDate string) ([]models.CashSession, error) {
	var sessions []models.CashSession
	err := r.db.WithContext(ctx).
		Where("is_open = ? AND business_date < ?", true, businessDate).
		Order("business_date ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *repository) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.CashSession, error) {
	var session models.CashSession
	err := r.db.WithContext(ctx).
		Preload("Sales", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("sequence DESC")
		}).
		Preload("Sales.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Expenses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// IncrementTotalSales adds amount to an open session. Zero rows affected means the session closed.
func (r *repository) IncrementTotalSales(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CashSession{}).
		Where("id = ? AND is_open = ?", id, true).
		Updates(map[string]any{
			"total_sales": gorm.Expr("total_sales + ?", amount),
			"updated_at":  r.db.NowFunc(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) IncrementTotalExpenses(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CashSession{}).
		Where("id = ? AND is_open = ?", id, true).
		Updates(map[string]any{
			"total_expenses": gorm.Expr("total_expenses + ?", amount),
			"updated_at":     r.db.NowFunc(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense == nil {
		return errors.New("expense required")
	}
	return r.db.WithContext(ctx).Create(expense).Error
}

// SumCountedSales totals the sales of a session that count toward the drawer.
func (r *repository) SumCountedSales(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, &models.Sale{}, "total_amount",
		"cash_session_id = ? AND status IN ?", id, enums.CountedSaleStatuses)
}

func (r *repository) SumExpenses(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, &models.Expense{}, "amount", "cash_session_id = ?", id)
}

func (r *repository) sum(ctx context.Context, model any, column, where string, args ...any) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(model).
		Select("SUM("+column+")").
		Where(where, args...).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}

func (r *repository) MarkClosed(ctx context.Context, id uuid.UUID, update CloseUpdate) error {
	values := map[string]any{
		"is_open":        false,
		"closed_by":      update.ClosedBy,
		"closing_amount": update.ClosingAmount,
		"total_sales":    update.TotalSales,
		"total_expenses": update.TotalExpenses,
		"closed_at":      update.ClosedAt,
		"updated_at":     update.ClosedAt,
	}
	if update.Notes != nil {
		values["notes"] = *update.Notes
	}
	res := r.db.WithContext(ctx).
		Model(&models.CashSession{}).
		Where("id = ? AND is_open = ?", id, true).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
