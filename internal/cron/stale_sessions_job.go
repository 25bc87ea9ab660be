package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

type staleSessionRepo interface {
	ListOpenBefore(ctx context.Context, businessDate string) ([]models.CashSession, error)
}

type StaleSessionsJobParams struct {
	Logger     *logger.Logger
	Repository staleSessionRepo
	Calendar   *storeday.Calendar
}

// NewStaleSessionsJob reports cash sessions left open past their business day.
// Sessions are never closed automatically; the drawer count must come from a person.
func NewStaleSessionsJob(params StaleSessionsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cash session repository required")
	}
	if params.Calendar == nil {
		return nil, fmt.Errorf("store calendar required")
	}
	return &staleSessionsJob{
		logg:     params.Logger,
		repo:     params.Repository,
		calendar: params.Calendar,
	}, nil
}

type staleSessionsJob struct {
	logg     *logger.Logger
	repo     staleSessionRepo
	calendar *storeday.Calendar
}

func (j *staleSessionsJob) Name() string { return "stale-cash-sessions" }

func (j *staleSessionsJob) Run(ctx context.Context) error {
	today := j.calendar.Today().Key()
	sessions, err := j.repo.ListOpenBefore(ctx, today)
	if err != nil {
		return fmt.Errorf("list stale sessions: %w", err)
	}
	for _, session := range sessions {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"store_id":        session.StoreID.String(),
			"cash_session_id": session.ID.String(),
			"business_date":   session.BusinessDate,
			"total_sales":     session.TotalSales.StringFixed(2),
		})
		j.logg.Warn(logCtx, "cash session still open after its business day")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"today": today, "stale": len(sessions)}), "stale session sweep complete")
	return nil
}
