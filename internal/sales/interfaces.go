package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/pkg/db/models"
)

// Repository persists sales and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	MaxSequence(ctx context.Context, storeID uuid.UUID, businessDate string) (int, error)
	List(ctx context.Context, storeID uuid.UUID, filter ListFilter) ([]models.Sale, error)
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Sale, error)
}

// ListFilter bounds a listing by inclusive business dates. Empty bounds are open.
type ListFilter struct {
	FromDate string
	ToDate   string
	Statuses []string
}
