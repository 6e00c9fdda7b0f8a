package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

// FileName is the Parquet file written by Write.
const FileName = "fills.parquet"

// DuckDBJournal implements Journal on an in-memory DuckDB database.
type DuckDBJournal struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBJournal creates a new in-memory journal.
func NewDuckDBJournal(log *logger.Logger) (*DuckDBJournal, error) {
	db, err := sql.Open("duckdb", ":memory:")
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

	j := &DuckDBJournal{
		logger: log,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := j.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return j, nil
}

// Record implements Journal.
func (j *DuckDBJournal) Record(entry Entry) error {
	if j == nil || j.db == nil {
		return errors.New(errors.ErrCodeStorageFailed, "journal or database is nil")
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := j.sq.
		Insert("fills").
		Columns(
			"id", "bot_id", "strategy_id", "time", "price", "size",
			"norm_profit", "norm_accum", "neutral_price", "alert",
		).
		Values(
			entry.ID, entry.BotID, entry.StrategyID, entry.Time, entry.Price, entry.Size,
			entry.NormProfit, entry.NormAccum, entry.NeutralPrice, entry.Alert,
		).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to insert fill", err)
	}

	return nil
}

// Entries implements Journal.
func (j *DuckDBJournal) Entries(filter Filter) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, errors.New(errors.ErrCodeStorageFailed, "journal or database is nil")
	}

	query := j.sq.
		Select(
			"id", "bot_id", "strategy_id", "time", "price", "size",
			"norm_profit", "norm_accum", "neutral_price", "alert",
		).
		From("fills").
		OrderBy("time ASC", "seq ASC")

	if filter.BotID.IsSome() {
		query = query.Where(squirrel.Eq{"bot_id": filter.BotID.Unwrap()})
	}

	if filter.Since.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": filter.Since.Unwrap()})
	}

	if filter.Limit.IsSome() {
		query = query.Limit(filter.Limit.Unwrap())
	}

	rows, err := query.RunWith(j.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to query fills", err)
	}
	defer rows.Close()

	entries := []Entry{}

	for rows.Next() {
		var e Entry

		err := rows.Scan(
			&e.ID, &e.BotID, &e.StrategyID, &e.Time, &e.Price, &e.Size,
			&e.NormProfit, &e.NormAccum, &e.NeutralPrice, &e.Alert,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to scan fill", err)
		}

		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "error iterating fills", err)
	}

	return entries, nil
}

// Write saves the fills to a Parquet file in the specified directory.
func (j *DuckDBJournal) Write(dir string) error {
	if j == nil || j.db == nil || j.logger == nil {
		return errors.New(errors.ErrCodeStorageFailed, "journal, database, or logger is nil")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to create directory", err)
	}

	path := filepath.Join(dir, FileName)

	_, err := j.db.Exec(fmt.Sprintf(`COPY (SELECT * EXCLUDE (seq) FROM fills ORDER BY time, seq) TO '%s' (FORMAT PARQUET)`,
		strings.ReplaceAll(path, "'", "''")))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to export fills to Parquet", err)
	}

	j.logger.Info("Successfully exported fills to Parquet file",
		zap.String("fills", path),
	)

	return nil
}

// Cleanup resets the database state.
func (j *DuckDBJournal) Cleanup() error {
	if j == nil || j.db == nil {
		return errors.New(errors.ErrCodeStorageFailed, "journal or database is nil")
	}

	_, err := j.db.Exec(`
		DROP TABLE IF EXISTS fills;
		DROP SEQUENCE IF EXISTS fill_seq;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to cleanup fills table", err)
	}

	return j.initialize()
}

// Close closes the database connection.
func (j *DuckDBJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}

	return j.db.Close()
}

// initialize creates the fills table. seq keeps insertion order for fills with equal time.
func (j *DuckDBJournal) initialize() error {
	if j == nil || j.db == nil {
		return errors.New(errors.ErrCodeStorageFailed, "journal or database is nil")
	}

	_, err := j.db.Exec(`CREATE SEQUENCE IF NOT EXISTS fill_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to create sequence", err)
	}

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			seq BIGINT DEFAULT nextval('fill_seq'),
			id TEXT PRIMARY KEY,
			bot_id TEXT,
			strategy_id TEXT,
			time TIMESTAMP,
			price DOUBLE,
			size DOUBLE,
			norm_profit DOUBLE,
			norm_accum DOUBLE,
			neutral_price DOUBLE,
			alert BOOLEAN
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to create fills table", err)
	}

	return nil
}
