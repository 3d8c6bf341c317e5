package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

const (
	orphanBatchSize      = 50
	defaultOrphanRetries = 10
)

type orphanRepo interface {
	ListOrphans(ctx context.Context, limit, maxAttempts int) ([]models.OrphanedOrder, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	ResolveOrphan(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordOrphanAttempt(ctx context.Context, id uuid.UUID, cause error) error
}

type OrphanOrderJobParams struct {
	Logger     *logger.Logger
	Repository orphanRepo
	MaxRetries int
}

// NewOrphanOrderJob retries deleting order headers whose item insert failed
// and whose compensating delete also failed. Rows past MaxRetries are left
// for manual follow-up.
func NewOrphanOrderJob(params OrphanOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	retries := params.MaxRetries
	if retries <= 0 {
		retries = defaultOrphanRetries
	}
	return &orphanOrderJob{
		logg:    params.Logger,
		repo:    params.Repository,
		retries: retries,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

type orphanOrderJob struct {
	logg    *logger.Logger
	repo    orphanRepo
	retries int
	now     func() time.Time
}

func (j *orphanOrderJob) Name() string { return "orphan_order_cleanup" }

func (j *orphanOrderJob) Run(ctx context.Context) error {
	orphans, err := j.repo.ListOrphans(ctx, orphanBatchSize, j.retries)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	var errs error
	resolved := 0
	for _, orphan := range orphans {
		orphanCtx := j.logg.WithOrderID(ctx, orphan.OrderID.String())
		if delErr := j.repo.DeleteOrder(ctx, orphan.OrderID); delErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete orphan order %s: %w", orphan.OrderID, delErr))
			if recErr := j.repo.RecordOrphanAttempt(ctx, orphan.ID, delErr); recErr != nil {
				errs = multierr.Append(errs, recErr)
			}
			if orphan.Attempts+1 >= j.retries {
				j.logg.Warn(orphanCtx, "orphaned order exhausted retries, manual cleanup required")
			}
			continue
		}
		if resErr := j.repo.ResolveOrphan(ctx, orphan.ID, j.now()); resErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("resolve orphan %s: %w", orphan.ID, resErr))
			continue
		}
		resolved++
		j.logg.Info(orphanCtx, "orphaned order removed")
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"found":    len(orphans),
		"resolved": resolved,
	}), "orphan cleanup complete")
	return errs
}
