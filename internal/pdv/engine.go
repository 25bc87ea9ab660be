// Package pdv orchestrates the register: cash sessions, sales and sales reporting.
package pdv

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/internal/alerts"
	"github.com/angelmondragon/pdv-backend/internal/cashsessions"
	"github.com/angelmondragon/pdv-backend/internal/sales"
	"github.com/angelmondragon/pdv-backend/internal/stock"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

const defaultTopProducts = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReserver interface {
	ReserveAndDecrement(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, requests []stock.Request) (map[uuid.UUID]stock.Snapshot, error)
}

type stockEngine struct{}

func (stockEngine) ReserveAndDecrement(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, requests []stock.Request) (map[uuid.UUID]stock.Snapshot, error) {
	return stock.ReserveAndDecrement(ctx, tx, storeID, requests)
}

type saleInserter interface {
	Insert(ctx context.Context, tx *gorm.DB, sale *models.Sale, day storeday.Day) error
}

type saleMetrics interface {
	IncSaleCreated(paymentMethod string)
	IncSaleFailure(code string)
}

type noopSaleMetrics struct{}

func (noopSaleMetrics) IncSaleCreated(string) {}
func (noopSaleMetrics) IncSaleFailure(string) {}

type noopEnqueuer struct{}

func (noopEnqueuer) Enqueue(alerts.Alert) bool { return false }

// Engine is the register's application service.
type Engine interface {
	OpenCash(ctx context.Context, input cashsessions.OpenInput) (*models.CashSession, error)
	GetCurrentCash(ctx context.Context, storeID uuid.UUID) (*models.CashSession, error)
	CloseCash(ctx context.Context, input cashsessions.CloseInput) (*cashsessions.CloseResult, error)
	RecordExpense(ctx context.Context, input cashsessions.ExpenseInput) (*models.Expense, error)
	CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	ListSales(ctx context.Context, storeID uuid.UUID, dates *storeday.Range) ([]models.Sale, error)
	GetSale(ctx context.Context, storeID, saleID uuid.UUID) (*models.Sale, error)
	SalesReport(ctx context.Context, storeID uuid.UUID, dates storeday.Range) (*SalesReport, error)
}

// EngineParams wire the engine's collaborators.
type EngineParams struct {
	Tx          txRunner
	Sessions    cashsessions.Service
	Sales       sales.Repository
	Sequencer   saleInserter
	Stock       stockReserver
	Alerts      alerts.Enqueuer
	Calendar    *storeday.Calendar
	Metrics     saleMetrics
	Logger      *logger.Logger
	TopProducts int
}

type engine struct {
	tx          txRunner
	sessions    cashsessions.Service
	sales       sales.Repository
	sequencer   saleInserter
	stock       stockReserver
	alerts      alerts.Enqueuer
	calendar    *storeday.Calendar
	metrics     saleMetrics
	logg        *logger.Logger
	topProducts int
}

// NewEngine builds the register engine.
func NewEngine(params EngineParams) (Engine, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("cash session service required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if params.Sequencer == nil {
		return nil, fmt.Errorf("sale sequencer required")
	}
	if params.Calendar == nil {
		return nil, fmt.Errorf("store calendar required")
	}
	e := &engine{
		tx:          params.Tx,
		sessions:    params.Sessions,
		sales:       params.Sales,
		sequencer:   params.Sequencer,
		stock:       params.Stock,
		alerts:      params.Alerts,
		calendar:    params.Calendar,
		metrics:     params.Metrics,
		logg:        params.Logger,
		topProducts: params.TopProducts,
	}
	if e.stock == nil {
		e.stock = stockEngine{}
	}
	if e.alerts == nil {
		e.alerts = noopEnqueuer{}
	}
	if e.metrics == nil {
		e.metrics = noopSaleMetrics{}
	}
	if e.logg == nil {
		e.logg = logger.Nop()
	}
	if e.topProducts <= 0 {
		e.topProducts = defaultTopProducts
	}
	return e, nil
}

func (e *engine) OpenCash(ctx context.Context, input cashsessions.OpenInput) (*models.CashSession, error) {
	return e.sessions.Open(ctx, input)
}

// GetCurrentCash returns nil without error when no session is open today.
func (e *engine) GetCurrentCash(ctx context.Context, storeID uuid.UUID) (*models.CashSession, error) {
	session, err := e.sessions.GetOpen(ctx, storeID)
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, nil
	}
	return session, err
}

func (e *engine) CloseCash(ctx context.Context, input cashsessions.CloseInput) (*cashsessions.CloseResult, error) {
	return e.sessions.Close(ctx, input)
}

func (e *engine) RecordExpense(ctx context.Context, input cashsessions.ExpenseInput) (*models.Expense, error) {
	return e.sessions.RecordExpense(ctx, input)
}

func (e *engine) ListSales(ctx context.Context, storeID uuid.UUID, dates *storeday.Range) ([]models.Sale, error) {
	filter := sales.ListFilter{}
	if dates != nil {
		filter.FromDate, filter.ToDate = dates.Keys()
	}
	list, err := e.sales.List(ctx, storeID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}
	return list, nil
}

func (e *engine) GetSale(ctx context.Context, storeID, saleID uuid.UUID) (*models.Sale, error) {
	sale, err := e.sales.FindByID(ctx, storeID, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sale")
	}
	return sale, nil
}

func roundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}
