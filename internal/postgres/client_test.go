package postgres

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/flexprice/installments/internal/config"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Postgres.Driver = DialectSQLite
	cfg.Postgres.DSN = "file::memory:"
	cfg.Postgres.MaxOpenConns = 1

	log := logger.GetLogger()
	db, err := NewDB(cfg, log)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&counter{}))
	return NewClient(db, log).(*Client)
}

func TestWithTx_CommitsAndRollsBack(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.WithTx(ctx, func(ctx context.Context) error {
		require.NotNil(t, c.TxFromContext(ctx))
		return c.Querier(ctx).Create(&counter{ID: 1, Value: 1}).Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = c.WithTx(ctx, func(ctx context.Context) error {
		if err := c.Querier(ctx).Create(&counter{ID: 2, Value: 2}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, c.Querier(ctx).Model(&counter{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.WithTx(ctx, func(outer context.Context) error {
		return c.WithTx(outer, func(inner context.Context) error {
			assert.Same(t, c.TxFromContext(outer), c.TxFromContext(inner))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestLockKey(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	req := types.LockRequest{Key: "subscriber_plan:subscriber_id=sub_1"}

	err := c.LockKey(ctx, req)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, ierr.HTTPStatusFromErr(err))

	err = c.WithTx(ctx, func(ctx context.Context) error {
		return c.LockKey(ctx, req)
	})
	assert.NoError(t, err)
}

func TestIsLockTimeoutError(t *testing.T) {
	assert.True(t, isLockTimeoutError(&pq.Error{Code: "55P03"}))
	assert.False(t, isLockTimeoutError(&pq.Error{Code: "40001"}))
	assert.False(t, isLockTimeoutError(errors.New("other")))
	assert.False(t, isLockTimeoutError(nil))
}
