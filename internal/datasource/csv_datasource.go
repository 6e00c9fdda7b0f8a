package datasource

import (
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

// CSVDataSource holds a CSV price series in memory.
// The header is time,symbol,open,high,low,close,volume with RFC 3339 times.
type CSVDataSource struct {
	logger *logger.Logger
	bars   []types.MarketData
}

func NewCSVDataSource(log *logger.Logger) *CSVDataSource {
	return &CSVDataSource{
		logger: log,
		bars:   nil,
	}
}

// Initialize implements DataSource.
func (c *CSVDataSource) Initialize(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeNoMarketData, err, "failed to open %s", path)
	}
	defer file.Close()

	var bars []types.MarketData
	if err := gocsv.UnmarshalFile(file, &bars); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse %s", path)
	}

	for i, bar := range bars {
		if err := validateBar(i+1, bar); err != nil {
			return err
		}
	}

	if bars == nil {
		bars = []types.MarketData{}
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	c.bars = bars

	c.logger.Debug("Loaded market data", zap.String("path", path), zap.Int("bars", len(bars)))

	return nil
}

// ReadAll implements DataSource.
func (c *CSVDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		if c.bars == nil {
			yield(types.MarketData{}, errors.New(errors.ErrCodeNoMarketData, "data source is not initialized")) //nolint:exhaustruct

			return
		}

		for _, bar := range c.bars {
			if !inRange(bar.Time, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (c *CSVDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	if c.bars == nil {
		return 0, errors.New(errors.ErrCodeNoMarketData, "data source is not initialized")
	}

	count := 0

	for _, bar := range c.bars {
		if inRange(bar.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements DataSource.
func (c *CSVDataSource) Close() error {
	c.bars = nil

	return nil
}
