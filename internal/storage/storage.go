// Package storage persists strategy state snapshots, one per bot.
//
// Three backends share the StateStore contract:
//   - memory: process-local map, used by tests and dry runs
//   - duckdb: single-file embedded database for a standalone agent
//   - postgres: shared server database for a fleet of agents
package storage

import (
	"context"

	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

// StateStore persists the latest strategy state of each bot.
type StateStore interface {
	// Save inserts or replaces the record of rec.BotID.
	Save(ctx context.Context, rec types.StateRecord) error
	// Load returns the record of botID or an ErrCodeStateNotFound error.
	Load(ctx context.Context, botID string) (types.StateRecord, error)
	// Delete removes the record of botID or returns an ErrCodeStateNotFound error.
	Delete(ctx context.Context, botID string) error
	// List returns every record ordered by bot ID.
	List(ctx context.Context) ([]types.StateRecord, error)
	// Close releases the backend.
	Close() error
}

// Driver names a StateStore backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverDuckDB   Driver = "duckdb"
	DriverPostgres Driver = "postgres"
)

// AllDrivers lists every supported backend.
var AllDrivers = []any{
	DriverMemory,
	DriverDuckDB,
	DriverPostgres,
}

// Config selects and configures a StateStore backend.
type Config struct {
	Driver Driver `yaml:"driver" json:"driver" jsonschema:"title=Driver,description=State store backend" validate:"required,oneof=memory duckdb postgres"`
	// Path is the DuckDB database file. Empty or ":memory:" keeps the database in memory.
	Path string `yaml:"path" json:"path" jsonschema:"title=Path,description=DuckDB database file"`
	// DSN is the Postgres connection string.
	DSN string `yaml:"dsn" json:"dsn" jsonschema:"title=DSN,description=Postgres connection string" validate:"required_if=Driver postgres"`
}

// Open creates the StateStore selected by cfg.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (StateStore, error) {
	log.Debug("Opening state store", zap.String("driver", string(cfg.Driver)))

	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverDuckDB:
		store, err := NewDuckDBStore(cfg.Path, log)
		if err != nil {
			return nil, err
		}

		return store, nil
	case DriverPostgres:
		pool, err := NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}

		if err := RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()

			return nil, err
		}

		return NewPostgresStore(pool, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStore, "unsupported state store driver: %s", cfg.Driver)
	}
}

func errNotFound(botID string) error {
	return errors.Newf(errors.ErrCodeStateNotFound, "no state stored for bot %s", botID)
}

func validateRecord(rec types.StateRecord) error {
	if rec.BotID == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "bot id is required")
	}

	if rec.StrategyID == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy id is required")
	}

	return nil
}
