package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

type fakeOrphanRepo struct {
	orphans   []models.OrphanedOrder
	failFor   map[uuid.UUID]error
	deleted   []uuid.UUID
	resolved  []uuid.UUID
	attempts  map[uuid.UUID]int
	listLimit int
	listMax   int
}

func (f *fakeOrphanRepo) ListOrphans(_ context.Context, limit, maxAttempts int) ([]models.OrphanedOrder, error) {
	f.listLimit, f.listMax = limit, maxAttempts
	return f.orphans, nil
}

func (f *fakeOrphanRepo) DeleteOrder(_ context.Context, orderID uuid.UUID) error {
	if err := f.failFor[orderID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, orderID)
	return nil
}

func (f *fakeOrphanRepo) ResolveOrphan(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeOrphanRepo) RecordOrphanAttempt(_ context.Context, id uuid.UUID, _ error) error {
	f.attempts[id]++
	return nil
}

func TestOrphanOrderJobResolvesDeletedAndCountsFailures(t *testing.T) {
	good := models.OrphanedOrder{ID: uuid.New(), OrderID: uuid.New()}
	bad := models.OrphanedOrder{ID: uuid.New(), OrderID: uuid.New(), Attempts: 2}
	repo := &fakeOrphanRepo{
		orphans:  []models.OrphanedOrder{good, bad},
		failFor:  map[uuid.UUID]error{bad.OrderID: errors.New("db locked")},
		attempts: map[uuid.UUID]int{},
	}
	job, err := NewOrphanOrderJob(OrphanOrderJobParams{Logger: logger.Nop(), Repository: repo, MaxRetries: 3})
	require.NoError(t, err)
	assert.Equal(t, "orphan_order_cleanup", job.Name())

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)

	assert.Equal(t, []uuid.UUID{good.OrderID}, repo.deleted)
	assert.Equal(t, []uuid.UUID{good.ID}, repo.resolved)
	assert.Equal(t, 1, repo.attempts[bad.ID])
	assert.Equal(t, orphanBatchSize, repo.listLimit)
	assert.Equal(t, 3, repo.listMax)
}

func TestOrphanOrderJobNoopWhenEmpty(t *testing.T) {
	repo := &fakeOrphanRepo{attempts: map[uuid.UUID]int{}}
	job, err := NewOrphanOrderJob(OrphanOrderJobParams{Logger: logger.Nop(), Repository: repo})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, defaultOrphanRetries, repo.listMax)
}
