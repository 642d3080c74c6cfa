package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// pqLockNotAvailable is the SQLSTATE raised when lock_timeout expires
const pqLockNotAvailable = "55P03"

// LockKey takes a transaction scoped advisory lock on req.Key, waiting up to req's timeout.
// A zero or negative timeout tries once and fails fast. The lock is released when the
// transaction on ctx ends. SQLite already serializes writers, so there it is a no-op.
func (c *Client) LockKey(ctx context.Context, req types.LockRequest) error {
	tx, err := c.lockTx(ctx, "LockKey")
	if err != nil || tx == nil {
		return err
	}

	timeout := req.GetTimeout()
	if timeout <= 0 {
		ok, err := c.TryLockKey(ctx, req.Key)
		if err != nil {
			return err
		}
		if !ok {
			return errLockHeld(nil, req.Key, 0)
		}
		return nil
	}

	// SET LOCAL is scoped to the transaction
	if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", timeout.Milliseconds())).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to set lock timeout").
			Mark(ierr.ErrDatabase)
	}

	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", req.Key).Error; err != nil {
		if isLockTimeoutError(err) {
			return errLockHeld(err, req.Key, timeout)
		}
		return ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}

	c.logger.Debugw("acquired advisory lock", "key", req.Key, "timeout", timeout)
	return nil
}

// TryLockKey attempts the advisory lock once and reports whether it was taken
func (c *Client) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx, err := c.lockTx(ctx, "TryLockKey")
	if err != nil {
		return false, err
	}
	if tx == nil {
		return true, nil
	}

	var ok bool
	if err := tx.Raw("SELECT pg_try_advisory_xact_lock(hashtext(?))", key).Scan(&ok).Error; err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}
	return ok, nil
}

// lockTx returns the transaction on ctx, or nil without error on SQLite
func (c *Client) lockTx(ctx context.Context, caller string) (*gorm.DB, error) {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return nil, ierr.NewErrorf("%s must be called inside a transaction", caller).
			Mark(ierr.ErrInternal)
	}
	if IsSQLite(tx) {
		return nil, nil
	}
	return tx, nil
}

func errLockHeld(cause error, key string, waited time.Duration) error {
	var b *ierr.ErrorBuilder
	if cause != nil {
		b = ierr.WithError(cause)
	} else {
		b = ierr.NewError("advisory lock already held")
	}
	return b.
		WithHintf("Another update for this subscriber is in progress, lock not acquired within %v", waited).
		WithReportableDetails(map[string]interface{}{
			"key": key,
		}).
		Mark(ierr.ErrLockNotAcquire)
}

func isLockTimeoutError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqLockNotAvailable
}
