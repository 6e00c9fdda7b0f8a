package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-sizing/internal/types"
)

// PriceGenerator generates price series for replay tests.
type PriceGenerator struct {
	rng *rand.Rand
}

// NewPriceGenerator creates a new PriceGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewPriceGenerator(seed int64) *PriceGenerator {
	return &PriceGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// SeriesConfig configures a generated series.
type SeriesConfig struct {
	// Symbol is the traded pair (e.g., "BTCUSDT")
	Symbol string
	// StartTime is the time of the first bar
	StartTime time.Time
	// Interval is the duration between bars
	Interval time.Duration
	// Count is the number of bars
	Count int
	// InitialPrice is the first open
	InitialPrice float64
	// Volatility is the per-bar standard deviation (0.01 = 1%)
	Volatility float64
	// Trend is the total drift spread over the series (-0.5 to 0.5)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
}

// DefaultSeriesConfig returns a sensible default configuration.
func DefaultSeriesConfig() SeriesConfig {
	return SeriesConfig{
		Symbol:       "BTCUSDT",
		StartTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:     time.Minute,
		Count:        1000,
		InitialPrice: 100.0,
		Volatility:   0.01,
		Trend:        0.0,
		VolumeBase:   1000,
	}
}

// RandomWalk creates bars following a geometric Brownian motion.
func (g *PriceGenerator) RandomWalk(config SeriesConfig) []types.MarketData {
	data := make([]types.MarketData, config.Count)
	price := config.InitialPrice
	drift := 0.0

	if config.Count > 0 {
		drift = config.Trend / float64(config.Count)
	}

	for i := 0; i < config.Count; i++ {
		open := price

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		data[i] = g.bar(config, i, open, closePrice)
		price = closePrice
	}

	return data
}

// Wave creates bars whose close oscillates around InitialPrice with the given
// relative amplitude and period in bars. The series is deterministic apart from volume.
func (g *PriceGenerator) Wave(config SeriesConfig, amplitude float64, period int) []types.MarketData {
	data := make([]types.MarketData, config.Count)
	prev := config.InitialPrice

	for i := 0; i < config.Count; i++ {
		phase := 2 * math.Pi * float64(i) / float64(max(period, 1))
		closePrice := config.InitialPrice * (1 + amplitude*math.Sin(phase))

		data[i] = g.bar(config, i, prev, closePrice)
		prev = closePrice
	}

	return data
}

// Closes returns the close prices of data.
func Closes(data []types.MarketData) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = d.Close
	}

	return out
}

func (g *PriceGenerator) bar(config SeriesConfig, i int, open, closePrice float64) types.MarketData {
	ext := config.Volatility * open * 0.5

	high := math.Max(open, closePrice) + math.Abs(g.rng.Float64()*ext)

	low := math.Min(open, closePrice) - math.Abs(g.rng.Float64()*ext)
	if low <= 0 {
		low = math.Min(open, closePrice) * 0.99
	}

	return types.MarketData{
		Symbol: config.Symbol,
		Time:   config.StartTime.Add(time.Duration(i) * config.Interval),
		Open:   roundToDecimals(open, 4),
		High:   roundToDecimals(high, 4),
		Low:    roundToDecimals(low, 4),
		Close:  roundToDecimals(closePrice, 4),
		Volume: roundToDecimals(config.VolumeBase*(0.7+g.rng.Float64()*0.6), 2),
	}
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
