// Package datasource reads historical price bars for paper replays.
package datasource

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

type DataSource interface {
	// Initialize loads the price series at path.
	Initialize(path string) error
	// ReadAll yields the bars between start and end (inclusive) in time order.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	// Count returns the number of bars ReadAll would yield.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases the data source.
	Close() error
}

// Open creates and initializes the data source matching the file extension of path.
// ".csv" files are read with gocsv, ".parquet" files through DuckDB.
func Open(path string, log *logger.Logger) (DataSource, error) {
	var (
		ds  DataSource
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ds = NewCSVDataSource(log)
	case ".parquet":
		ds, err = NewDuckDBDataSource(log)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported market data file %s", path)
	}

	if err := ds.Initialize(path); err != nil {
		ds.Close()

		return nil, err
	}

	return ds, nil
}

func inRange(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}

func validateBar(row int, bar types.MarketData) error {
	if bar.Close <= 0 || bar.High < bar.Low {
		return errors.Newf(errors.ErrCodeMarketDataParseFailed, "invalid bar at row %d: close=%f high=%f low=%f",
			row, bar.Close, bar.High, bar.Low)
	}

	return nil
}
