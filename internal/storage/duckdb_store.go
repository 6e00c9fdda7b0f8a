package storage

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBStore implements StateStore on an embedded DuckDB database.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens the database file at path. An empty path keeps the database in memory.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to open database", err)
	}

	// Test connection to ensure database is properly initialized
	if err := db.Ping(); err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to connect to database", err)
	}

	store := &DuckDBStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := runMigrations(context.Background(), store, "migrations/duckdb"); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (s *DuckDBStore) exec(ctx context.Context, query string) error {
	_, err := s.db.ExecContext(ctx, query)

	return err
}

// Save implements StateStore. The previous record is replaced inside one transaction.
func (s *DuckDBStore) Save(ctx context.Context, rec types.StateRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to begin transaction", err)
	}

	deleteQuery := s.sq.
		Delete("strategy_state").
		Where(squirrel.Eq{"bot_id": rec.BotID}).
		RunWith(tx)

	if _, err := deleteQuery.ExecContext(ctx); err != nil {
		_ = tx.Rollback()

		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to replace state of bot %s", rec.BotID)
	}

	insertQuery := s.sq.
		Insert("strategy_state").
		Columns("bot_id", "strategy_id", "version", "state", "updated_at").
		Values(rec.BotID, rec.StrategyID, rec.Version, rec.State, rec.UpdatedAt).
		RunWith(tx)

	if _, err := insertQuery.ExecContext(ctx); err != nil {
		_ = tx.Rollback()
		s.logger.Error("Failed to insert state", zap.String("bot_id", rec.BotID), zap.Error(err))

		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to insert state of bot %s", rec.BotID)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to commit state", err)
	}

	return nil
}

// Load implements StateStore.
func (s *DuckDBStore) Load(ctx context.Context, botID string) (types.StateRecord, error) {
	row := s.sq.
		Select("bot_id", "strategy_id", "version", "state", "updated_at").
		From("strategy_state").
		Where(squirrel.Eq{"bot_id": botID}).
		RunWith(s.db).
		QueryRowContext(ctx)

	var rec types.StateRecord

	err := row.Scan(&rec.BotID, &rec.StrategyID, &rec.Version, &rec.State, &rec.UpdatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return types.StateRecord{}, errNotFound(botID) //nolint:exhaustruct
		}

		return types.StateRecord{}, errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to load state of bot %s", botID) //nolint:exhaustruct
	}

	return rec, nil
}

// Delete implements StateStore.
func (s *DuckDBStore) Delete(ctx context.Context, botID string) error {
	res, err := s.sq.
		Delete("strategy_state").
		Where(squirrel.Eq{"bot_id": botID}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to delete state of bot %s", botID)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to count deleted rows", err)
	}

	if affected == 0 {
		return errNotFound(botID)
	}

	return nil
}

// List implements StateStore.
func (s *DuckDBStore) List(ctx context.Context) ([]types.StateRecord, error) {
	rows, err := s.sq.
		Select("bot_id", "strategy_id", "version", "state", "updated_at").
		From("strategy_state").
		OrderBy("bot_id ASC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to query states", err)
	}
	defer rows.Close()

	out := []types.StateRecord{}

	for rows.Next() {
		var rec types.StateRecord
		if err := rows.Scan(&rec.BotID, &rec.StrategyID, &rec.Version, &rec.State, &rec.UpdatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to scan state", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "error iterating states", err)
	}

	return out, nil
}

// Close closes the database connection.
func (s *DuckDBStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}
