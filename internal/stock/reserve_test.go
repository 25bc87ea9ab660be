package stock

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
)

func seedProduct(t *testing.T, db *gorm.DB, storeID uuid.UUID, name string, stock, minStock int, active bool) models.Product {
	t.Helper()
	product := models.Product{
		StoreID:  storeID,
		Name:     name,
		Price:    decimal.RequireFromString("2.50"),
		Stock:    stock,
		MinStock: minStock,
		IsActive: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if !active {
		if err := db.Model(&product).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate product: %v", err)
		}
	}
	return product
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func TestReserveAndDecrementSumsDuplicateLines(t *testing.T) {
	db := dbtest.Open(t)
	storeID := uuid.New()
	soda := seedProduct(t, db, storeID, "Soda", 10, 2, true)
	chips := seedProduct(t, db, storeID, "Chips", 3, 1, true)

	var snapshots map[uuid.UUID]Snapshot
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		snapshots, err = ReserveAndDecrement(context.Background(), tx, storeID, []Request{
			{ProductID: soda.ID, Quantity: 4},
			{ProductID: chips.ID, Quantity: 3},
			{ProductID: soda.ID, Quantity: 2},
		})
		return err
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if got := stockOf(t, db, soda.ID); got != 4 {
		t.Fatalf("expected soda stock 4, got %d", got)
	}
	if got := stockOf(t, db, chips.ID); got != 0 {
		t.Fatalf("expected chips stock 0, got %d", got)
	}
	if snap := snapshots[soda.ID]; snap.Stock != 4 || snap.Alert() != AlertNone || !snap.Price.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected soda snapshot %+v", snap)
	}
	if snap := snapshots[chips.ID]; snap.Stock != 0 || snap.Alert() != AlertOut {
		t.Fatalf("unexpected chips snapshot %+v", snap)
	}
}

func TestReserveAndDecrementInsufficientStockChangesNothing(t *testing.T) {
	db := dbtest.Open(t)
	storeID := uuid.New()
	soda := seedProduct(t, db, storeID, "Soda", 10, 0, true)
	chips := seedProduct(t, db, storeID, "Chips", 1, 0, true)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ReserveAndDecrement(context.Background(), tx, storeID, []Request{
			{ProductID: soda.ID, Quantity: 1},
			{ProductID: chips.ID, Quantity: 1},
			{ProductID: chips.ID, Quantity: 1},
		})
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if msg := pkgerrors.As(err).Message(); msg != "insufficient stock for Chips" {
		t.Fatalf("unexpected message %q", msg)
	}
	if got := stockOf(t, db, soda.ID); got != 10 {
		t.Fatalf("soda stock changed to %d", got)
	}
	if got := stockOf(t, db, chips.ID); got != 1 {
		t.Fatalf("chips stock changed to %d", got)
	}
}

func TestReserveAndDecrementUnknownInactiveOrForeignProduct(t *testing.T) {
	db := dbtest.Open(t)
	storeID := uuid.New()
	soda := seedProduct(t, db, storeID, "Soda", 10, 0, true)
	inactive := seedProduct(t, db, storeID, "Old", 10, 0, false)
	foreign := seedProduct(t, db, uuid.New(), "Elsewhere", 10, 0, true)

	for _, missing := range []uuid.UUID{uuid.New(), inactive.ID, foreign.ID} {
		_, err := ReserveAndDecrement(context.Background(), db, storeID, []Request{
			{ProductID: soda.ID, Quantity: 1},
			{ProductID: missing, Quantity: 1},
		})
		if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			t.Fatalf("expected not found for %s, got %v", missing, err)
		}
	}
	if got := stockOf(t, db, soda.ID); got != 10 {
		t.Fatalf("soda stock changed to %d", got)
	}
}

func TestReserveAndDecrementValidatesRequests(t *testing.T) {
	db := dbtest.Open(t)
	if _, err := ReserveAndDecrement(context.Background(), nil, uuid.New(), []Request{{ProductID: uuid.New(), Quantity: 1}}); err == nil {
		t.Fatal("expected error without transaction")
	}
	if _, err := ReserveAndDecrement(context.Background(), db, uuid.New(), nil); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for empty request, got %v", err)
	}
	if _, err := ReserveAndDecrement(context.Background(), db, uuid.New(), []Request{{ProductID: uuid.New(), Quantity: 0}}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for zero quantity, got %v", err)
	}
}

func TestSnapshotAlert(t *testing.T) {
	cases := []struct {
		stock, min int
		want       Alert
	}{
		{0, 5, AlertOut},
		{1, 5, AlertLow},
		{5, 5, AlertLow},
		{6, 5, AlertNone},
		{0, 0, AlertOut},
		{1, 0, AlertNone},
	}
	for _, tc := range cases {
		if got := (Snapshot{Stock: tc.stock, MinStock: tc.min}).Alert(); got != tc.want {
			t.Fatalf("stock=%d min=%d: expected %v, got %v", tc.stock, tc.min, tc.want, got)
		}
	}
}

func TestReserveAndDecrementRejectsOversizedQuantities(t *testing.T) {
	db := dbtest.Open(t)
	storeID := uuid.New()
	soda := seedProduct(t, db, storeID, "Soda", 5, 0, true)

	cases := map[string][]Request{
		"single line above max": {{ProductID: soda.ID, Quantity: math.MaxInt64}},
		"summed lines wrap":     {{ProductID: soda.ID, Quantity: math.MaxInt64}, {ProductID: soda.ID, Quantity: 2}},
		"summed lines above max": {
			{ProductID: soda.ID, Quantity: MaxQuantity},
			{ProductID: soda.ID, Quantity: 1},
		},
	}
	for name, requests := range cases {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := ReserveAndDecrement(context.Background(), tx, storeID, requests)
			return err
		})
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if got := stockOf(t, db, soda.ID); got != 5 {
		t.Fatalf("soda stock changed to %d", got)
	}
}

func TestReserveAndDecrementGuardedUpdateCatchesStaleRead(t *testing.T) {
	db := dbtest.Open(t)
	storeID := uuid.New()
	soda := seedProduct(t, db, storeID, "Soda", 3, 0, true)

	// Another register sells the last units right after the products were read.
	drained := false
	err := db.Callback().Query().After("gorm:query").Register("test:drain_stock", func(d *gorm.DB) {
		if drained || d.Statement.Table != "products" {
			return
		}
		drained = true
		d.Session(&gorm.Session{NewDB: true}).Exec("UPDATE products SET stock = 0 WHERE id = ?", soda.ID)
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := ReserveAndDecrement(context.Background(), tx, storeID, []Request{{ProductID: soda.ID, Quantity: 2}})
		return err
	})
	if !drained {
		t.Fatal("expected the stock to be drained between read and update")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict from guarded decrement, got %v", err)
	}
}
