package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/installments/internal/postgres"
	"github.com/flexprice/installments/internal/types"
	"gorm.io/gorm"
)

// InMemoryDB implements postgres.IClient for services backed by in-memory stores.
// Transactions are not rolled back; LockKey serializes callers per key.
type InMemoryDB struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	txCount   int
	lockCount int
}

type inMemoryTxKey struct{}

var _ postgres.IClient = (*InMemoryDB)(nil)

func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{locks: make(map[string]*sync.Mutex)}
}

func (d *InMemoryDB) Querier(ctx context.Context) *gorm.DB {
	return nil
}

func (d *InMemoryDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if held, ok := ctx.Value(inMemoryTxKey{}).(*[]*sync.Mutex); ok && held != nil {
		return fn(ctx)
	}

	d.mu.Lock()
	d.txCount++
	d.mu.Unlock()

	held := make([]*sync.Mutex, 0, 1)
	defer func() {
		for _, m := range held {
			m.Unlock()
		}
	}()
	return fn(context.WithValue(ctx, inMemoryTxKey{}, &held))
}

func (d *InMemoryDB) LockKey(ctx context.Context, req types.LockRequest) error {
	held, ok := ctx.Value(inMemoryTxKey{}).(*[]*sync.Mutex)
	if !ok {
		return nil
	}

	d.mu.Lock()
	m, exists := d.locks[req.Key]
	if !exists {
		m = &sync.Mutex{}
		d.locks[req.Key] = m
	}
	d.lockCount++
	d.mu.Unlock()

	m.Lock()
	*held = append(*held, m)
	return nil
}

// TxCount returns the number of top level transactions started
func (d *InMemoryDB) TxCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txCount
}

// LockCount returns the number of locks taken
func (d *InMemoryDB) LockCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lockCount
}
