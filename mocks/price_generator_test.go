package mocks

import (
	"math"
	"testing"
	"time"
)

func TestPriceGenerator_RandomWalk(t *testing.T) {
	gen := NewPriceGenerator(42) // Fixed seed for reproducibility
	config := DefaultSeriesConfig()
	config.Count = 100

	data := gen.RandomWalk(config)

	if len(data) != 100 {
		t.Errorf("expected 100 data points, got %d", len(data))
	}

	for i, d := range data {
		if d.Symbol != config.Symbol {
			t.Errorf("expected symbol %s at index %d, got %s", config.Symbol, i, d.Symbol)
		}

		if d.Open <= 0 || d.High <= 0 || d.Low <= 0 || d.Close <= 0 {
			t.Errorf("invalid OHLC values at index %d: O=%f H=%f L=%f C=%f",
				i, d.Open, d.High, d.Low, d.Close)
		}

		if d.High < d.Low {
			t.Errorf("High < Low at index %d: H=%f L=%f", i, d.High, d.Low)
		}

		if i > 0 && d.Time.Sub(data[i-1].Time) != config.Interval {
			t.Errorf("unexpected interval at index %d", i)
		}
	}
}

func TestPriceGenerator_Reproducibility(t *testing.T) {
	config := DefaultSeriesConfig()
	config.Count = 10

	data1 := NewPriceGenerator(42).RandomWalk(config)
	data2 := NewPriceGenerator(42).RandomWalk(config)

	for i := range data1 {
		if data1[i].Close != data2[i].Close {
			t.Errorf("data not reproducible at index %d: got %f and %f",
				i, data1[i].Close, data2[i].Close)
		}
	}

	data3 := NewPriceGenerator(123).RandomWalk(config)

	same := 0
	for i := range data1 {
		if data1[i].Close == data3[i].Close {
			same++
		}
	}

	if same == len(data1) {
		t.Error("different seeds produced identical data")
	}
}

func TestPriceGenerator_Wave(t *testing.T) {
	config := DefaultSeriesConfig()
	config.Count = 40

	closes := Closes(NewPriceGenerator(1).Wave(config, 0.1, 20))

	if closes[0] != 100 {
		t.Errorf("expected first close 100, got %f", closes[0])
	}

	if math.Abs(closes[5]-110) > 1e-9 {
		t.Errorf("expected peak 110, got %f", closes[5])
	}

	if math.Abs(closes[15]-90) > 1e-9 {
		t.Errorf("expected trough 90, got %f", closes[15])
	}

	if closes[25] != closes[5] {
		t.Errorf("expected periodic series, got %f and %f", closes[25], closes[5])
	}
}

func TestDefaultSeriesConfig(t *testing.T) {
	config := DefaultSeriesConfig()

	if config.Interval != time.Minute {
		t.Errorf("expected default interval 1m, got %v", config.Interval)
	}

	if config.InitialPrice != 100.0 {
		t.Errorf("expected default initial price 100.0, got %f", config.InitialPrice)
	}
}
