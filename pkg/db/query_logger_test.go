package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

func TestQueryLoggerReportsOnlyFailuresAndSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	ql := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Output: &buf}), 50*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), stmt, nil)
	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Zero(t, buf.Len())

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)

	buf.Reset()
	ql.Trace(ctx, time.Now(), stmt, errors.New("relation does not exist"))
	assert.Contains(t, buf.String(), "query failed")
}

func TestNewQueryLoggerWithoutLoggerDiscards(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
