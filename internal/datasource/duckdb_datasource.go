package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBDataSource reads a Parquet price series through an in-memory DuckDB view.
type DuckDBDataSource struct {
	db          *sql.DB
	logger      *logger.Logger
	sq          squirrel.StatementBuilderType
	initialized bool
}

func NewDuckDBDataSource(log *logger.Logger) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to open database", err)
	}

	return &DuckDBDataSource{
		db:          db,
		logger:      log,
		sq:          squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		initialized: false,
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to drop existing view", err)
	}

	// squirrel does not build CREATE VIEW
	query := fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT time, symbol, open, high, low, close, volume FROM read_parquet('%s');
	`, strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to read %s", path)
	}

	d.initialized = true

	return nil
}

func (d *DuckDBDataSource) where(query squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return query
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	if !d.initialized {
		return 0, errors.New(errors.ErrCodeNoMarketData, "data source is not initialized")
	}

	var count int

	err := d.where(d.sq.Select("COUNT(*)").From("market_data"), start, end).
		RunWith(d.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStorageFailed, "failed to count market data", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		if !d.initialized {
			yield(types.MarketData{}, errors.New(errors.ErrCodeNoMarketData, "data source is not initialized")) //nolint:exhaustruct

			return
		}

		rows, err := d.where(
			d.sq.Select("time", "symbol", "open", "high", "low", "close", "volume").From("market_data"),
			start, end,
		).OrderBy("time ASC").RunWith(d.db).Query()
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeStorageFailed, "failed to query market data", err)) //nolint:exhaustruct

			return
		}
		defer rows.Close()

		row := 0

		for rows.Next() {
			row++

			var bar types.MarketData

			if err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
				yield(types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to scan row %d", row)) //nolint:exhaustruct

				return
			}

			if err := validateBar(row, bar); err != nil {
				yield(types.MarketData{}, err) //nolint:exhaustruct

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeStorageFailed, "error iterating market data", err)) //nolint:exhaustruct
		}
	}
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}
