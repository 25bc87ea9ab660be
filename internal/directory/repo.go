// Package directory resolves display names for stores and customers.
package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/pkg/db/models"
)

// Lookup reads names from the catalog projections. Missing rows yield ok=false.
type Lookup interface {
	StoreName(ctx context.Context, storeID uuid.UUID) (string, bool, error)
	CustomerName(ctx context.Context, storeID, customerID uuid.UUID) (string, bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a name lookup bound to the provided DB.
func NewRepository(db *gorm.DB) Lookup {
	return &repository{db: db}
}

func (r *repository) StoreName(ctx context.Context, storeID uuid.UUID) (string, bool, error) {
	var store models.Store
	err := r.db.WithContext(ctx).Select("id", "name").Where("id = ?", storeID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return store.Name, true, nil
}

func (r *repository) CustomerName(ctx context.Context, storeID, customerID uuid.UUID) (string, bool, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Select("id", "name").
		Where("id = ? AND store_id = ?", customerID, storeID).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return customer.Name, true, nil
}
