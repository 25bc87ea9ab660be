package pdv

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/internal/alerts"
	"github.com/angelmondragon/pdv-backend/internal/cashsessions"
	"github.com/angelmondragon/pdv-backend/internal/sales"
	"github.com/angelmondragon/pdv-backend/internal/stock"
	dbpkg "github.com/angelmondragon/pdv-backend/pkg/db"
	"github.com/angelmondragon/pdv-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	"github.com/angelmondragon/pdv-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

type recordingEnqueuer struct {
	mu     sync.Mutex
	alerts []alerts.Alert
}

func (r *recordingEnqueuer) Enqueue(alert alerts.Alert) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return true
}

func (r *recordingEnqueuer) ofType(kind enums.OutboxEventType) []alerts.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []alerts.Alert
	for _, a := range r.alerts {
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

type saleCounter struct {
	mu       sync.Mutex
	created  map[string]int
	failures map[string]int
}

func (c *saleCounter) IncSaleCreated(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created[method]++
}

func (c *saleCounter) IncSaleFailure(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[code]++
}

type engineHarness struct {
	db       *gorm.DB
	engine   Engine
	alerts   *recordingEnqueuer
	metrics  *saleCounter
	storeID  uuid.UUID
	userID   uuid.UUID
	calendar *storeday.Calendar
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()
	conn := dbtest.Open(t)
	client := dbpkg.Wrap(conn)
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)
	calendar := storeday.New(loc).WithClock(func() time.Time { return now })

	sessions, err := cashsessions.NewService(client, cashsessions.NewRepository(conn), calendar, nil, nil)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	salesRepo := sales.NewRepository(conn)
	sequencer, err := sales.NewSequencer(salesRepo, 3, nil)
	if err != nil {
		t.Fatalf("sequencer: %v", err)
	}
	h := &engineHarness{
		db:       conn,
		alerts:   &recordingEnqueuer{},
		metrics:  &saleCounter{created: map[string]int{}, failures: map[string]int{}},
		storeID:  uuid.New(),
		userID:   uuid.New(),
		calendar: calendar,
	}
	h.engine, err = NewEngine(EngineParams{
		Tx:        client,
		Sessions:  sessions,
		Sales:     salesRepo,
		Sequencer: sequencer,
		Alerts:    h.alerts,
		Calendar:  calendar,
		Metrics:   h.metrics,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return h
}

func (h *engineHarness) product(t *testing.T, name, price string, stockQty, minStock int) models.Product {
	t.Helper()
	p := models.Product{
		StoreID:  h.storeID,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stockQty,
		MinStock: minStock,
		IsActive: true,
	}
	if err := h.db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func (h *engineHarness) open(t *testing.T, amount string) *models.CashSession {
	t.Helper()
	session, err := h.engine.OpenCash(context.Background(), cashsessions.OpenInput{
		StoreID:       h.storeID,
		UserID:        h.userID,
		OpeningAmount: decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("open cash: %v", err)
	}
	return session
}

func (h *engineHarness) sale(productID uuid.UUID, qty int, method string) CreateSaleInput {
	return CreateSaleInput{
		StoreID:       h.storeID,
		EmployeeID:    h.userID,
		Items:         []SaleItemInput{{ProductID: productID, Quantity: qty}},
		PaymentMethod: method,
	}
}

func (h *engineHarness) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	if err := h.db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.Stock
}

func (h *engineHarness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	if _, err := NewEngine(EngineParams{}); err == nil {
		t.Fatal("expected error for empty params")
	}
}

func TestSaleLifecycleReconciles(t *testing.T) {
	h := newEngineHarness(t)
	ctx := context.Background()
	product := h.product(t, "Cafe", "25.00", 10, 2)
	h.open(t, "100.00")

	sale, err := h.engine.CreateSale(ctx, h.sale(product.ID, 2, "CASH"))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !sale.TotalAmount.Equal(dec("50.00")) || sale.Status != enums.SaleStatusCompleted {
		t.Fatalf("unexpected sale %s/%s", sale.TotalAmount, sale.Status)
	}
	if sale.SaleNumber != "202403150001" {
		t.Fatalf("unexpected sale number %s", sale.SaleNumber)
	}
	if len(sale.Items) != 1 || !sale.Items[0].UnitPrice.Equal(dec("25")) || sale.Items[0].ProductName != "Cafe" {
		t.Fatalf("unexpected items %+v", sale.Items)
	}
	if got := h.stock(t, product.ID); got != 8 {
		t.Fatalf("expected stock 8, got %d", got)
	}

	current, err := h.engine.GetCurrentCash(ctx, h.storeID)
	if err != nil || current == nil {
		t.Fatalf("current cash: %v", err)
	}
	if !current.TotalSales.Equal(dec("50")) || len(current.Sales) != 1 {
		t.Fatalf("session not updated: total=%s sales=%d", current.TotalSales, len(current.Sales))
	}

	result, err := h.engine.CloseCash(ctx, cashsessions.CloseInput{StoreID: h.storeID, UserID: h.userID, ClosingAmount: dec("150.00")})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !result.ExpectedAmount.Equal(dec("150")) || !result.Variance.IsZero() {
		t.Fatalf("unexpected reconciliation %s/%s", result.ExpectedAmount, result.Variance)
	}

	current, err = h.engine.GetCurrentCash(ctx, h.storeID)
	if err != nil || current != nil {
		t.Fatalf("expected no current cash, got %+v err=%v", current, err)
	}
	if len(h.alerts.ofType(enums.EventNewSale)) != 1 {
		t.Fatalf("expected new sale alert")
	}
	if h.metrics.created["CASH"] != 1 {
		t.Fatalf("expected sale metric, got %+v", h.metrics.created)
	}
}

func TestCreateSaleStatusFollowsPaymentMethod(t *testing.T) {
	h := newEngineHarness(t)
	product := h.product(t, "Pao", "1.50", 100, 0)
	h.open(t, "0")

	card, err := h.engine.CreateSale(context.Background(), h.sale(product.ID, 1, "CREDIT_CARD"))
	if err != nil {
		t.Fatalf("card sale: %v", err)
	}
	if card.Status != enums.SaleStatusPending {
		t.Fatalf("expected PENDING, got %s", card.Status)
	}
	pix, err := h.engine.CreateSale(context.Background(), h.sale(product.ID, 1, "pix"))
	if err != nil {
		t.Fatalf("pix sale: %v", err)
	}
	if pix.Status != enums.SaleStatusCompleted || pix.SaleNumber != "202403150002" {
		t.Fatalf("unexpected pix sale %s/%s", pix.Status, pix.SaleNumber)
	}
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	h := newEngineHarness(t)
	product := h.product(t, "Ultimo", "9.99", 1, 0)
	h.open(t, "0")

	// dbtest runs on one sqlite connection, so the two transactions serialize here.
	// Row locks only matter on postgres; the guarded decrement is covered in the stock package.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.engine.CreateSale(context.Background(), h.sale(product.ID, 1, "CASH"))
		}(i)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 || conflicts != 1 {
		t.Fatalf("expected one success and one conflict, got %d/%d", succeeded, conflicts)
	}
	if got := h.stock(t, product.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
	out := h.alerts.ofType(enums.EventOutOfStock)
	if len(out) != 1 || out[0].Product.ProductID != product.ID {
		t.Fatalf("expected one out of stock alert, got %+v", out)
	}
	if h.metrics.failures[string(pkgerrors.CodeConflict)] != 1 {
		t.Fatalf("expected conflict failure metric, got %+v", h.metrics.failures)
	}
}

func TestCreateSaleIsAtomic(t *testing.T) {
	h := newEngineHarness(t)
	ctx := context.Background()
	plenty := h.product(t, "Arroz", "5.00", 50, 0)
	scarce := h.product(t, "Feijao", "7.00", 1, 0)
	h.open(t, "0")

	input := CreateSaleInput{
		StoreID:    h.storeID,
		EmployeeID: h.userID,
		Items: []SaleItemInput{
			{ProductID: plenty.ID, Quantity: 3},
			{ProductID: scarce.ID, Quantity: 2},
		},
		PaymentMethod: "CASH",
	}
	_, err := h.engine.CreateSale(ctx, input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := h.stock(t, plenty.ID); got != 50 {
		t.Fatalf("stock of first product changed to %d", got)
	}
	if h.count(t, &models.Sale{}) != 0 || h.count(t, &models.SaleItem{}) != 0 {
		t.Fatal("partial sale persisted")
	}
	current, err := h.engine.GetCurrentCash(ctx, h.storeID)
	if err != nil || !current.TotalSales.IsZero() {
		t.Fatalf("session totals changed: %+v err=%v", current, err)
	}
	if len(h.alerts.alerts) != 0 {
		t.Fatal("alerts enqueued for a failed sale")
	}

	input.Items[1].ProductID = uuid.New()
	if _, err := h.engine.CreateSale(ctx, input); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateSaleValidation(t *testing.T) {
	h := newEngineHarness(t)
	product := h.product(t, "Leite", "4.00", 10, 0)
	h.open(t, "0")

	cases := map[string]CreateSaleInput{
		"no items":       {StoreID: h.storeID, EmployeeID: h.userID, PaymentMethod: "CASH"},
		"zero quantity":  h.sale(product.ID, 0, "CASH"),
		"bad method":     h.sale(product.ID, 1, "BARTER"),
		"negative disc":  func() CreateSaleInput { in := h.sale(product.ID, 1, "CASH"); in.Discount = dec("-1"); return in }(),
		"negative taxes": func() CreateSaleInput { in := h.sale(product.ID, 1, "CASH"); in.Tax = dec("-0.01"); return in }(),
		"huge quantity":  h.sale(product.ID, math.MaxInt64, "CASH"),
		"wrapping lines": func() CreateSaleInput {
			in := h.sale(product.ID, math.MaxInt64, "CASH")
			in.Items = append(in.Items, SaleItemInput{ProductID: product.ID, Quantity: 2})
			return in
		}(),
		"summed lines above max": func() CreateSaleInput {
			in := h.sale(product.ID, stock.MaxQuantity, "CASH")
			in.Items = append(in.Items, SaleItemInput{ProductID: product.ID, Quantity: 1})
			return in
		}(),
	}
	for name, input := range cases {
		if _, err := h.engine.CreateSale(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if got := h.stock(t, product.ID); got != 10 {
		t.Fatalf("stock changed to %d", got)
	}
}

func TestCreateSaleRequiresOpenSession(t *testing.T) {
	h := newEngineHarness(t)
	product := h.product(t, "Suco", "6.00", 10, 0)

	_, err := h.engine.CreateSale(context.Background(), h.sale(product.ID, 1, "CASH"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if pkgerrors.As(err).Message() != "no open cash session" {
		t.Fatalf("unexpected message %q", pkgerrors.As(err).Message())
	}
	if got := h.stock(t, product.ID); got != 10 {
		t.Fatalf("stock changed to %d", got)
	}
}

func TestCreateSaleEmitsStockAlerts(t *testing.T) {
	h := newEngineHarness(t)
	low := h.product(t, "Queijo", "20.00", 5, 3)
	out := h.product(t, "Vinho", "40.00", 2, 1)
	fine := h.product(t, "Agua", "2.00", 100, 5)
	h.open(t, "0")

	input := CreateSaleInput{
		StoreID:    h.storeID,
		EmployeeID: h.userID,
		Items: []SaleItemInput{
			{ProductID: low.ID, Quantity: 1},
			{ProductID: low.ID, Quantity: 1},
			{ProductID: out.ID, Quantity: 2},
			{ProductID: fine.ID, Quantity: 1},
		},
		PaymentMethod: "DEBIT_CARD",
	}
	sale, err := h.engine.CreateSale(context.Background(), input)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if len(sale.Items) != 4 || !sale.TotalAmount.Equal(dec("122")) {
		t.Fatalf("unexpected sale %d items total %s", len(sale.Items), sale.TotalAmount)
	}

	lows := h.alerts.ofType(enums.EventLowStock)
	if len(lows) != 1 || lows[0].Product.ProductID != low.ID || lows[0].Product.Stock != 3 {
		t.Fatalf("unexpected low stock alerts %+v", lows)
	}
	outs := h.alerts.ofType(enums.EventOutOfStock)
	if len(outs) != 1 || outs[0].Product.ProductID != out.ID {
		t.Fatalf("unexpected out of stock alerts %+v", outs)
	}
}

func TestSaleNumbersAreUniqueAndIncreasing(t *testing.T) {
	h := newEngineHarness(t)
	product := h.product(t, "Bala", "0.50", 1000, 0)
	h.open(t, "0")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.engine.CreateSale(context.Background(), h.sale(product.ID, 1, "CASH")); err != nil {
				t.Errorf("create sale: %v", err)
			}
		}()
	}
	wg.Wait()

	var numbers []string
	if err := h.db.Model(&models.Sale{}).Order("sequence ASC").Pluck("sale_number", &numbers).Error; err != nil {
		t.Fatalf("load numbers: %v", err)
	}
	if len(numbers) != 8 {
		t.Fatalf("expected 8 sales, got %d", len(numbers))
	}
	seen := map[string]bool{}
	for i, number := range numbers {
		if seen[number] {
			t.Fatalf("duplicate sale number %s", number)
		}
		seen[number] = true
		if want := sales.FormatNumber(h.calendar.Today(), i+1); number != want {
			t.Fatalf("expected %s, got %s", want, number)
		}
	}
	if got := h.stock(t, product.ID); got != 992 {
		t.Fatalf("expected stock 992, got %d", got)
	}
}

func TestGetSaleIsStoreScoped(t *testing.T) {
	h := newEngineHarness(t)
	product := h.product(t, "Sal", "3.00", 10, 0)
	h.open(t, "0")
	sale, err := h.engine.CreateSale(context.Background(), h.sale(product.ID, 1, "CASH"))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	got, err := h.engine.GetSale(context.Background(), h.storeID, sale.ID)
	if err != nil || got.ID != sale.ID || len(got.Items) != 1 {
		t.Fatalf("get sale: %+v err=%v", got, err)
	}
	if _, err := h.engine.GetSale(context.Background(), uuid.New(), sale.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for other store, got %v", err)
	}
}
