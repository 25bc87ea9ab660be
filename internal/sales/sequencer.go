package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/pdv-backend/pkg/db"
	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

const (
	saleNumberConstraint = "ux_sales_store_number"
	defaultMaxAttempts   = 3
)

type retryMetrics interface {
	IncSaleNumberRetry()
}

type noopRetryMetrics struct{}

func (noopRetryMetrics) IncSaleNumberRetry() {}

// Sequencer numbers sales per store and business day as YYYYMMDD followed by a
// four digit counter that restarts every day.
type Sequencer struct {
	repo        Repository
	maxAttempts int
	metrics     retryMetrics
	maxSequence func(ctx context.Context, repo Repository, storeID uuid.UUID, day string) (int, error)
}

// NewSequencer builds a sequencer that gives up after maxAttempts collisions.
func NewSequencer(repo Repository, maxAttempts int, metrics retryMetrics) (*Sequencer, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if metrics == nil {
		metrics = noopRetryMetrics{}
	}
	return &Sequencer{
		repo:        repo,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		maxSequence: func(ctx context.Context, repo Repository, storeID uuid.UUID, day string) (int, error) {
			return repo.MaxSequence(ctx, storeID, day)
		},
	}, nil
}

// FormatNumber renders the sale number for a day and counter.
func FormatNumber(day storeday.Day, sequence int) string {
	return fmt.Sprintf("%s%04d", day.Compact(), sequence)
}

// Next returns the next free counter and sale number for the store and day as seen by tx.
func (s *Sequencer) Next(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, day storeday.Day) (int, string, error) {
	current, err := s.maxSequence(ctx, s.repo.WithTx(tx), storeID, day.Key())
	if err != nil {
		return 0, "", err
	}
	next := current + 1
	return next, FormatNumber(day, next), nil
}

// Insert numbers sale and persists it with its items under a savepoint of tx. A collision on the
// store's sale number rolls back to the savepoint and retries with a fresh number.
func (s *Sequencer) Insert(ctx context.Context, tx *gorm.DB, sale *models.Sale, day storeday.Day) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if sale == nil {
		return errors.New("sale required")
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := tx.Transaction(func(sp *gorm.DB) error {
			seq, number, err := s.Next(ctx, sp, sale.StoreID, day)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute sale number")
			}
			sale.Sequence = seq
			sale.SaleNumber = number
			sale.BusinessDate = day.Key()
			return s.repo.WithTx(sp).Create(ctx, sale)
		})
		if err == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(err, saleNumberConstraint) {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert sale")
		}
		if attempt < s.maxAttempts {
			s.metrics.IncSaleNumberRetry()
		}
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "sale number collision")
}
