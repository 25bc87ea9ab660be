package cashsessions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/pdv-backend/pkg/db"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

const openDayConstraint = "ux_cash_sessions_open_day"

var (
	errCashAlreadyOpen = pkgerrors.New(pkgerrors.CodeConflict, "cash already open")
	errNoOpenSession   = pkgerrors.New(pkgerrors.CodeConflict, "no open cash session")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionMetrics interface {
	IncSessionOpened()
	IncSessionClosed()
}

type noopMetrics struct{}

func (noopMetrics) IncSessionOpened() {}
func (noopMetrics) IncSessionClosed() {}

// Service runs the register lifecycle of a store.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.CashSession, error)
	GetOpen(ctx context.Context, storeID uuid.UUID) (*models.CashSession, error)
	CurrentOpen(ctx context.Context, storeID uuid.UUID) (*models.CashSession, error)
	AddSaleTx(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, amount decimal.Decimal) error
	Close(ctx context.Context, input CloseInput) (*CloseResult, error)
	RecordExpense(ctx context.Context, input ExpenseInput) (*models.Expense, error)
}

// OpenInput starts a session for the current business day.
type OpenInput struct {
	StoreID       uuid.UUID
	UserID        uuid.UUID
	OpeningAmount decimal.Decimal
	Notes         *string
}

// CloseInput carries the counted drawer amount.
type CloseInput struct {
	StoreID       uuid.UUID
	UserID        uuid.UUID
	ClosingAmount decimal.Decimal
	Notes         *string
	// BusinessDate picks an earlier day's session left open; empty means today.
	BusinessDate string
}

// ExpenseInput is cash removed from the drawer.
type ExpenseInput struct {
	StoreID     uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// CloseResult is the closed session with its reconciliation.
type CloseResult struct {
	Session        *models.CashSession
	ExpectedAmount decimal.Decimal
	Variance       decimal.Decimal
}

type service struct {
	tx       txRunner
	repo     Repository
	calendar *storeday.Calendar
	metrics  sessionMetrics
	logg     *logger.Logger
}

// NewService builds the cash session service.
func NewService(tx txRunner, repo Repository, calendar *storeday.Calendar, metrics sessionMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cash session repository required")
	}
	if calendar == nil {
		return nil, fmt.Errorf("store calendar required")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{tx: tx, repo: repo, calendar: calendar, metrics: metrics, logg: logg}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.CashSession, error) {
	if input.StoreID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store and user are required")
	}
	if input.OpeningAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening amount must not be negative")
	}

	now := s.calendar.Now()
	day := s.calendar.DayOf(now)
	session := &models.CashSession{
		StoreID:       input.StoreID,
		BusinessDate:  day.Key(),
		OpenedBy:      input.UserID,
		OpeningAmount: input.OpeningAmount.Round(2),
		TotalSales:    decimal.Zero,
		TotalExpenses: decimal.Zero,
		IsOpen:        true,
		Notes:         trimmed(input.Notes),
		OpenedAt:      now.UTC(),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindOpen(ctx, input.StoreID, day.Key())
		switch {
		case err == nil && existing != nil:
			return errCashAlreadyOpen
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open cash session")
		}
		if err := repo.Create(ctx, session); err != nil {
			if dbpkg.IsUniqueViolation(err, openDayConstraint) {
				return errCashAlreadyOpen
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cash session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSessionOpened()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"cash_session_id": session.ID.String(),
		"business_date":   session.BusinessDate,
		"opening_amount":  session.OpeningAmount.StringFixed(2),
	})
	s.logg.Info(logCtx, "cash session opened")
	return session, nil
}

func (s *service) GetOpen(ctx context.Context, storeID uuid.UUID) (*models.CashSession, error) {
	session, err := s.CurrentOpen(ctx, storeID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open cash session")
		}
		return nil, err
	}
	detailed, err := s.repo.FindByIDWithDetails(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cash session")
	}
	return detailed, nil
}

// CurrentOpen returns today's open session without its sales.
func (s *service) CurrentOpen(ctx context.Context, storeID uuid.UUID) (*models.CashSession, error) {
	session, err := s.repo.FindOpen(ctx, storeID, s.calendar.Today().Key())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoOpenSession
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find open cash session")
	}
	return session, nil
}

// AddSaleTx bumps the session's sales accumulator inside the sale transaction.
func (s *service) AddSaleTx(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, amount decimal.Decimal) error {
	affected, err := s.repo.WithTx(tx).IncrementTotalSales(ctx, sessionID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment session sales")
	}
	if affected == 0 {
		return errNoOpenSession
	}
	return nil
}

func (s *service) closingDay(businessDate string) (storeday.Day, error) {
	today := s.calendar.Today()
	if businessDate == "" {
		return today, nil
	}
	day, err := s.calendar.Parse(businessDate)
	if err != nil {
		return storeday.Day{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business date").
			WithDetails(map[string]any{"business_date": businessDate})
	}
	if today.Before(day) {
		return storeday.Day{}, pkgerrors.New(pkgerrors.CodeValidation, "business date is in the future").
			WithDetails(map[string]any{"business_date": businessDate})
	}
	return day, nil
}

func (s *service) Close(ctx context.Context, input CloseInput) (*CloseResult, error) {
	if input.StoreID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store and user are required")
	}
	if input.ClosingAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "closing amount must not be negative")
	}

	day, err := s.closingDay(input.BusinessDate)
	if err != nil {
		return nil, err
	}

	var result *CloseResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		session, err := repo.FindOpenForUpdate(ctx, input.StoreID, day.Key())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no open cash session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cash session")
		}

		totalSales, err := repo.SumCountedSales(ctx, session.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum session sales")
		}
		totalExpenses, err := repo.SumExpenses(ctx, session.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum session expenses")
		}

		closing := input.ClosingAmount.Round(2)
		expected := session.OpeningAmount.Add(totalSales).Sub(totalExpenses)
		closedAt := s.calendar.Now().UTC()
		update := CloseUpdate{
			ClosedBy:      input.UserID,
			ClosingAmount: closing,
			TotalSales:    totalSales,
			TotalExpenses: totalExpenses,
			ClosedAt:      closedAt,
			Notes:         trimmed(input.Notes),
		}
		if err := repo.MarkClosed(ctx, session.ID, update); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no open cash session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close cash session")
		}

		closedBy := input.UserID
		session.IsOpen = false
		session.ClosedBy = &closedBy
		session.ClosingAmount = &closing
		session.TotalSales = totalSales
		session.TotalExpenses = totalExpenses
		session.ClosedAt = &closedAt
		if update.Notes != nil {
			session.Notes = update.Notes
		}
		result = &CloseResult{
			Session:        session,
			ExpectedAmount: expected,
			Variance:       closing.Sub(expected),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSessionClosed()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"cash_session_id": result.Session.ID.String(),
		"business_date":   result.Session.BusinessDate,
		"expected_amount": result.ExpectedAmount.StringFixed(2),
		"variance":        result.Variance.StringFixed(2),
	})
	if result.Variance.IsZero() {
		s.logg.Info(logCtx, "cash session closed")
	} else {
		s.logg.Warn(logCtx, "cash session closed with variance")
	}
	return result, nil
}

func (s *service) RecordExpense(ctx context.Context, input ExpenseInput) (*models.Expense, error) {
	if input.StoreID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store and user are required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense amount must be positive")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense description is required")
	}

	var expense *models.Expense
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		session, err := repo.FindOpen(ctx, input.StoreID, s.calendar.Today().Key())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNoOpenSession
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find open cash session")
		}

		expense = &models.Expense{
			StoreID:       input.StoreID,
			CashSessionID: session.ID,
			Amount:        input.Amount.Round(2),
			Description:   description,
			CreatedBy:     input.UserID,
		}
		if err := repo.CreateExpense(ctx, expense); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create expense")
		}
		affected, err := repo.IncrementTotalExpenses(ctx, session.ID, expense.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment session expenses")
		}
		if affected == 0 {
			return errNoOpenSession
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
