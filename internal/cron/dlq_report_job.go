package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pdv-backend/pkg/db/models"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
)

const dlqReportLimit = 50

type dlqLister interface {
	ListSince(ctx context.Context, since time.Time, limit int) ([]models.OutboxDLQ, error)
}

type DLQReportJobParams struct {
	Logger     *logger.Logger
	Repository dlqLister
	Window     time.Duration
}

// NewDLQReportJob surfaces alerts that reached the dead-letter table during the last window.
func NewDLQReportJob(params DLQReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultInterval
	}
	return &dlqReportJob{
		logg:   params.Logger,
		repo:   params.Repository,
		window: window,
		now:    time.Now,
	}, nil
}

type dlqReportJob struct {
	logg   *logger.Logger
	repo   dlqLister
	window time.Duration
	now    func() time.Time
}

func (j *dlqReportJob) Name() string { return "outbox-dlq-report" }

func (j *dlqReportJob) Run(ctx context.Context) error {
	since := j.now().UTC().Add(-j.window)
	rows, err := j.repo.ListSince(ctx, since, dlqReportLimit)
	if err != nil {
		return fmt.Errorf("list dlq: %w", err)
	}
	for _, row := range rows {
		fields := map[string]any{
			"event_id":     row.EventID.String(),
			"event_type":   string(row.EventType),
			"aggregate_id": row.AggregateID.String(),
			"reason":       string(row.ErrorReason),
			"attempts":     row.AttemptCount,
			"topic":        row.Topic,
		}
		if row.StoreID != nil {
			fields["store_id"] = row.StoreID.String()
		}
		logCtx := j.logg.WithFields(ctx, fields)
		j.logg.Warn(logCtx, "alert dead-lettered")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"since": since, "dead_lettered": len(rows)}), "dlq report complete")
	return nil
}
