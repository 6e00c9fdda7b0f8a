package storage

import (
	"context"

	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

// PostgresStore is a PostgreSQL implementation of StateStore.
type PostgresStore struct {
	pool   *Pool
	logger *logger.Logger
}

// NewPostgresStore creates a new PostgreSQL state store. The schema must already be migrated.
func NewPostgresStore(pool *Pool, log *logger.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: log}
}

// Save implements StateStore with an upsert on bot_id.
func (s *PostgresStore) Save(ctx context.Context, rec types.StateRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO strategy_state (bot_id, strategy_id, version, state, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bot_id) DO UPDATE
		SET strategy_id = EXCLUDED.strategy_id,
		    version = EXCLUDED.version,
		    state = EXCLUDED.state,
		    updated_at = EXCLUDED.updated_at
	`, rec.BotID, rec.StrategyID, rec.Version, rec.State, rec.UpdatedAt)
	if err != nil {
		s.logger.Error("Failed to save state", zap.String("bot_id", rec.BotID), zap.Error(err))

		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "save state of bot %s", rec.BotID)
	}

	return nil
}

// Load implements StateStore.
func (s *PostgresStore) Load(ctx context.Context, botID string) (types.StateRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT bot_id, strategy_id, version, state, updated_at
		FROM strategy_state
		WHERE bot_id = $1
	`, botID)

	var rec types.StateRecord

	err := row.Scan(&rec.BotID, &rec.StrategyID, &rec.Version, &rec.State, &rec.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return types.StateRecord{}, errNotFound(botID) //nolint:exhaustruct
		}

		return types.StateRecord{}, errors.Wrapf(errors.ErrCodeStorageFailed, err, "load state of bot %s", botID) //nolint:exhaustruct
	}

	return rec, nil
}

// Delete implements StateStore.
func (s *PostgresStore) Delete(ctx context.Context, botID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM strategy_state WHERE bot_id = $1`, botID)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "delete state of bot %s", botID)
	}

	if tag.RowsAffected() == 0 {
		return errNotFound(botID)
	}

	return nil
}

// List implements StateStore.
func (s *PostgresStore) List(ctx context.Context) ([]types.StateRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT bot_id, strategy_id, version, state, updated_at
		FROM strategy_state
		ORDER BY bot_id
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "list states", err)
	}
	defer rows.Close()

	out := []types.StateRecord{}

	for rows.Next() {
		var rec types.StateRecord
		if err := rows.Scan(&rec.BotID, &rec.StrategyID, &rec.Version, &rec.State, &rec.UpdatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, "scan state", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "iterate states", err)
	}

	return out, nil
}

// Close implements StateStore.
func (s *PostgresStore) Close() error {
	s.pool.Close()

	return nil
}
