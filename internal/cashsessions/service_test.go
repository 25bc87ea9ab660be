package cashsessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pdv-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

type countingMetrics struct {
	opened int
	closed int
}

func (m *countingMetrics) IncSessionOpened() { m.opened++ }
func (m *countingMetrics) IncSessionClosed() { m.closed++ }

type sessionHarness struct {
	svc     Service
	repo    Repository
	metrics *countingMetrics
	now     time.Time
}

func newSessionHarness(t *testing.T) (*sessionHarness, func(time.Time)) {
	t.Helper()
	client := dbtest.Client(t)
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	h := &sessionHarness{
		repo:    NewRepository(client.DB()),
		metrics: &countingMetrics{},
		now:     time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC),
	}
	calendar := storeday.New(loc).WithClock(func() time.Time { return h.now })
	svc, err := NewService(client, h.repo, calendar, h.metrics, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h, func(now time.Time) { h.now = now }
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing tx runner")
	}
	client := dbtest.Client(t)
	if _, err := NewService(client, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing repository")
	}
	if _, err := NewService(client, NewRepository(client.DB()), nil, nil, nil); err == nil {
		t.Fatal("expected error for missing calendar")
	}
}

func TestOpenRejectsSecondSessionSameDay(t *testing.T) {
	h, _ := newSessionHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	session, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: uuid.New(), OpeningAmount: dec("100")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.BusinessDate != "2024-03-15" || !session.IsOpen {
		t.Fatalf("unexpected session: %+v", session)
	}
	if !session.TotalSales.IsZero() || !session.TotalExpenses.IsZero() {
		t.Fatalf("expected zero totals, got %s/%s", session.TotalSales, session.TotalExpenses)
	}

	_, err = h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: uuid.New(), OpeningAmount: dec("50")})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if typed := pkgerrors.As(err); typed.Message() != "cash already open" {
		t.Fatalf("unexpected message %q", typed.Message())
	}

	if _, err := h.svc.Open(ctx, OpenInput{StoreID: uuid.New(), UserID: uuid.New(), OpeningAmount: dec("0")}); err != nil {
		t.Fatalf("other store should open: %v", err)
	}
	if h.metrics.opened != 2 {
		t.Fatalf("expected 2 opened metrics, got %d", h.metrics.opened)
	}
}

func TestOpenValidatesInput(t *testing.T) {
	h, _ := newSessionHarness(t)
	_, err := h.svc.Open(context.Background(), OpenInput{StoreID: uuid.New(), UserID: uuid.New(), OpeningAmount: dec("-1")})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBusinessDayFollowsStoreTimezone(t *testing.T) {
	h, setNow := newSessionHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	// 02:30 UTC on the 16th is still the 15th in Sao Paulo.
	setNow(time.Date(2024, 3, 16, 2, 30, 0, 0, time.UTC))
	session, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: uuid.New(), OpeningAmount: dec("10")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.BusinessDate != "2024-03-15" {
		t.Fatalf("expected store-local day, got %s", session.BusinessDate)
	}

	setNow(time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC))
	if _, err := h.svc.GetOpen(ctx, storeID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("yesterday's session should not be current, got %v", err)
	}
	if _, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: uuid.New(), OpeningAmount: dec("10")}); err != nil {
		t.Fatalf("new day should open: %v", err)
	}
}

func TestCloseReconcilesAndRejectsSecondClose(t *testing.T) {
	h, _ := newSessionHarness(t)
	ctx := context.Background()
	storeID := uuid.New()
	userID := uuid.New()

	session, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: userID, OpeningAmount: dec("100")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	db := h.repo.(*repository).db
	seedSale(t, db, session, 1, "50", enums.SaleStatusCompleted)
	seedSale(t, db, session, 2, "20", enums.SaleStatusPending)
	seedSale(t, db, session, 3, "500", enums.SaleStatusCancelled)
	if _, err := h.svc.RecordExpense(ctx, ExpenseInput{StoreID: storeID, UserID: userID, Amount: dec("10"), Description: "ice"}); err != nil {
		t.Fatalf("record expense: %v", err)
	}

	notes := "  end of day "
	result, err := h.svc.Close(ctx, CloseInput{StoreID: storeID, UserID: userID, ClosingAmount: dec("150"), Notes: &notes})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !result.ExpectedAmount.Equal(dec("160")) {
		t.Fatalf("expected 160, got %s", result.ExpectedAmount)
	}
	if !result.Variance.Equal(dec("-10")) {
		t.Fatalf("expected variance -10, got %s", result.Variance)
	}
	closed := result.Session
	if closed.IsOpen || closed.ClosedAt == nil || closed.ClosedBy == nil || *closed.ClosedBy != userID {
		t.Fatalf("session not closed: %+v", closed)
	}
	if !closed.TotalSales.Equal(dec("70")) || !closed.TotalExpenses.Equal(dec("10")) {
		t.Fatalf("unexpected totals %s/%s", closed.TotalSales, closed.TotalExpenses)
	}
	if closed.Notes == nil || *closed.Notes != "end of day" {
		t.Fatalf("unexpected notes %v", closed.Notes)
	}

	_, err = h.svc.Close(ctx, CloseInput{StoreID: storeID, UserID: userID, ClosingAmount: dec("150")})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second close, got %v", err)
	}
	if h.metrics.closed != 1 {
		t.Fatalf("expected one close metric, got %d", h.metrics.closed)
	}

	if _, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: userID, OpeningAmount: dec("0")}); err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
}

func TestCloseOverwritesDriftedAccumulators(t *testing.T) {
	h, _ := newSessionHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	session, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: uuid.New(), OpeningAmount: dec("0")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db := h.repo.(*repository).db
	seedSale(t, db, session, 1, "30", enums.SaleStatusCompleted)
	if _, err := h.repo.IncrementTotalSales(ctx, session.ID, dec("999")); err != nil {
		t.Fatalf("drift: %v", err)
	}

	result, err := h.svc.Close(ctx, CloseInput{StoreID: storeID, UserID: uuid.New(), ClosingAmount: dec("30")})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !result.Session.TotalSales.Equal(dec("30")) || !result.Variance.IsZero() {
		t.Fatalf("expected recomputed totals, got %s variance %s", result.Session.TotalSales, result.Variance)
	}
}

func TestCloseTargetsTodayUnlessDateGiven(t *testing.T) {
	h, setNow := newSessionHarness(t)
	ctx := context.Background()
	storeID := uuid.New()
	userID := uuid.New()

	forgotten, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: userID, OpeningAmount: dec("10")})
	if err != nil {
		t.Fatalf("open yesterday: %v", err)
	}
	setNow(time.Date(2024, 3, 16, 13, 0, 0, 0, time.UTC))
	if _, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: userID, OpeningAmount: dec("20")}); err != nil {
		t.Fatalf("open today: %v", err)
	}

	today, err := h.svc.Close(ctx, CloseInput{StoreID: storeID, UserID: userID, ClosingAmount: dec("20")})
	if err != nil {
		t.Fatalf("close today: %v", err)
	}
	if today.Session.BusinessDate != "2024-03-16" {
		t.Fatalf("expected today's session closed, got %s", today.Session.BusinessDate)
	}

	_, err = h.svc.Close(ctx, CloseInput{StoreID: storeID, UserID: userID, ClosingAmount: dec("20")})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second close, got %v", err)
	}

	for _, bad := range []string{"2024-03-17", "16/03/2024"} {
		_, err = h.svc.Close(ctx, CloseInput{StoreID: storeID, UserID: userID, ClosingAmount: dec("0"), BusinessDate: bad})
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", bad, err)
		}
	}

	past, err := h.svc.Close(ctx, CloseInput{StoreID: storeID, UserID: userID, ClosingAmount: dec("10"), BusinessDate: "2024-03-15"})
	if err != nil {
		t.Fatalf("close forgotten session: %v", err)
	}
	if past.Session.ID != forgotten.ID || !past.Variance.IsZero() {
		t.Fatalf("expected forgotten session reconciled, got %+v", past.Session)
	}
}

func TestCloseWithoutSession(t *testing.T) {
	h, _ := newSessionHarness(t)
	_, err := h.svc.Close(context.Background(), CloseInput{StoreID: uuid.New(), UserID: uuid.New(), ClosingAmount: dec("0")})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = h.svc.Close(context.Background(), CloseInput{StoreID: uuid.New(), UserID: uuid.New(), ClosingAmount: dec("-5")})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddSaleTxFailsOnClosedSession(t *testing.T) {
	h, _ := newSessionHarness(t)
	ctx := context.Background()
	storeID := uuid.New()
	session, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: uuid.New(), OpeningAmount: dec("0")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db := h.repo.(*repository).db

	if err := h.svc.AddSaleTx(ctx, db, session.ID, dec("5")); err != nil {
		t.Fatalf("add sale: %v", err)
	}
	if _, err := h.svc.Close(ctx, CloseInput{StoreID: storeID, UserID: uuid.New(), ClosingAmount: dec("0")}); err != nil {
		t.Fatalf("close: %v", err)
	}
	err = h.svc.AddSaleTx(ctx, db, session.ID, dec("5"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict after close, got %v", err)
	}
}

func TestRecordExpenseValidation(t *testing.T) {
	h, _ := newSessionHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	cases := []ExpenseInput{
		{StoreID: storeID, UserID: uuid.New(), Amount: dec("0"), Description: "x"},
		{StoreID: storeID, UserID: uuid.New(), Amount: dec("-2"), Description: "x"},
		{StoreID: storeID, UserID: uuid.New(), Amount: dec("2"), Description: "   "},
	}
	for _, tc := range cases {
		if _, err := h.svc.RecordExpense(ctx, tc); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", tc, err)
		}
	}

	_, err := h.svc.RecordExpense(ctx, ExpenseInput{StoreID: storeID, UserID: uuid.New(), Amount: dec("2"), Description: "bags"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict without session, got %v", err)
	}
}

func TestGetOpenLoadsSalesAndExpenses(t *testing.T) {
	h, _ := newSessionHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	if _, err := h.svc.GetOpen(ctx, storeID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	session, err := h.svc.Open(ctx, OpenInput{StoreID: storeID, UserID: uuid.New(), OpeningAmount: dec("5")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedSale(t, h.repo.(*repository).db, session, 1, "12", enums.SaleStatusCompleted)
	if _, err := h.svc.RecordExpense(ctx, ExpenseInput{StoreID: storeID, UserID: uuid.New(), Amount: dec("1.5"), Description: "tape"}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	current, err := h.svc.GetOpen(ctx, storeID)
	if err != nil {
		t.Fatalf("get open: %v", err)
	}
	if len(current.Sales) != 1 || len(current.Expenses) != 1 {
		t.Fatalf("expected preloaded sales and expenses, got %d/%d", len(current.Sales), len(current.Expenses))
	}
	if !current.TotalExpenses.Equal(dec("1.5")) {
		t.Fatalf("expected incremented expenses, got %s", current.TotalExpenses)
	}
}
