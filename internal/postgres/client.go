package postgres

import (
	"context"
	"time"

	"github.com/flexprice/installments/internal/config"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/types"
	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// IClient is the database handle services depend on
type IClient interface {
	// Querier returns the transaction on ctx if there is one, else the pool bound to ctx
	Querier(ctx context.Context) *gorm.DB

	// WithTx runs fn inside a transaction carried on the ctx passed to fn. Nested calls
	// join the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// LockKey takes a transaction scoped advisory lock. Must be called inside WithTx.
	LockKey(ctx context.Context, req types.LockRequest) error
}

type Client struct {
	db     *gorm.DB
	logger *logger.Logger
}

type txKey struct{}

// NewDB opens the configured database. The postgres dialect runs on lib/pq.
func NewDB(cfg *config.Configuration, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Postgres.Driver {
	case DialectPostgres:
		dialector = postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        cfg.Postgres.DSN,
		})
	case DialectSQLite:
		dialector = sqlite.Open(cfg.Postgres.DSN)
	default:
		return nil, ierr.NewErrorf("unsupported database driver %q", cfg.Postgres.Driver).
			WithHint("postgres.driver must be postgres or sqlite").
			Mark(ierr.ErrValidation)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         log.GetGormLogger(cfg.Logging.Level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to the database").
			Mark(ierr.ErrDatabase)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to access the database pool").
			Mark(ierr.ErrDatabase)
	}
	if cfg.Postgres.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Infow("connected to database", "driver", cfg.Postgres.Driver)
	return db, nil
}

func NewClient(db *gorm.DB, log *logger.Logger) IClient {
	return &Client{db: db, logger: log}
}

// DialectName returns the active dialect name
func DialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return ""
	}
	return db.Dialector.Name()
}

func IsSQLite(db *gorm.DB) bool {
	return DialectName(db) == DialectSQLite
}

// TxFromContext returns the transaction stored on ctx, or nil
func (c *Client) TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

func (c *Client) Querier(ctx context.Context) *gorm.DB {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db.WithContext(ctx)
}

func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
