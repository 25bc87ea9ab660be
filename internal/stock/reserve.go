// Package stock reserves product inventory inside a sale transaction.
package stock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/pdv-backend/pkg/db"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
)

// MaxQuantity bounds a single line and the summed quantity of one product; stock columns are integer.
const MaxQuantity = math.MaxInt32

// Request asks for quantity units of a product. Repeated products are summed.
type Request struct {
	ProductID uuid.UUID
	Quantity  int
}

// Snapshot is a product as it stands after the decrement.
type Snapshot struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Stock     int
	MinStock  int
}

// Alert classifies the post-sale stock level.
type Alert int

const (
	AlertNone Alert = iota
	AlertLow
	AlertOut
)

// Alert reports whether the remaining stock warrants a notification.
func (s Snapshot) Alert() Alert {
	switch {
	case s.Stock <= 0:
		return AlertOut
	case s.Stock <= s.MinStock:
		return AlertLow
	default:
		return AlertNone
	}
}

// ReserveAndDecrement locks the requested products of storeID and takes the quantities out of stock.
// Either every product is decremented or none is. Snapshots are keyed by product id.
func ReserveAndDecrement(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, requests []Request) (map[uuid.UUID]Snapshot, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}

	wanted := make(map[uuid.UUID]int, len(requests))
	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if req.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
		}
		if req.Quantity > MaxQuantity || wanted[req.ProductID] > MaxQuantity-req.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the allowed maximum").
				WithDetails(map[string]any{"product_id": req.ProductID, "max": MaxQuantity})
		}
		wanted[req.ProductID] += req.Quantity
	}

	ids := make([]uuid.UUID, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var products []models.Product
	err := dbpkg.ForUpdate(tx.WithContext(ctx)).
		Where("store_id = ? AND is_active = ? AND id IN ?", storeID, true, ids).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock products")
	}
	if len(products) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found or inactive").
			WithDetails(map[string]any{"missing": missingIDs(ids, products)})
	}

	for _, product := range products {
		if product.Stock < wanted[product.ID] {
			return nil, insufficient(product, wanted[product.ID])
		}
	}

	snapshots := make(map[uuid.UUID]Snapshot, len(products))
	for _, product := range products {
		qty := wanted[product.ID]
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock >= ?", product.ID, qty).
			Updates(map[string]any{
				"stock":      gorm.Expr("stock - ?", qty),
				"updated_at": tx.NowFunc(),
			})
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
		}
		if res.RowsAffected != 1 {
			return nil, insufficient(product, qty)
		}
		snapshots[product.ID] = Snapshot{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Stock:     product.Stock - qty,
			MinStock:  product.MinStock,
		}
	}
	return snapshots, nil
}

func insufficient(product models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for %s", product.Name)).
		WithDetails(map[string]any{
			"product_id": product.ID,
			"available":  product.Stock,
			"requested":  requested,
		})
}

func missingIDs(ids []uuid.UUID, found []models.Product) []uuid.UUID {
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, p := range found {
		present[p.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
