package sales

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the sale header and then its items.
func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	if sale == nil {
		return errors.New("sale required")
	}
	if err := r.db.WithContext(ctx).Omit("Items").Create(sale).Error; err != nil {
		return err
	}
	if len(sale.Items) == 0 {
		return nil
	}
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}
	return r.db.WithContext(ctx).Create(&sale.Items).Error
}

func (r *repository) MaxSequence(ctx context.Context, storeID uuid.UUID, businessDate string) (int, error) {
	var max sql.NullInt64
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("MAX(sequence)").
		Where("store_id = ? AND business_date = ?", storeID, businessDate).
		Row().
		Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (r *repository) List(ctx context.Context, storeID uuid.UUID, filter ListFilter) ([]models.Sale, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("store_id = ?", storeID)
	if filter.FromDate != "" {
		query = query.Where("business_date >= ?", filter.FromDate)
	}
	if filter.ToDate != "" {
		query = query.Where("business_date <= ?", filter.ToDate)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var sales []models.Sale
	if err := query.Order("created_at DESC").Order("sale_number DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}
