package strategy

import (
	"math"

	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clamp limits v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// floorToMinSize drops sizes the exchange would not accept.
func floorToMinSize(size, minSize float64) float64 {
	if math.Abs(size) < minSize {
		return 0
	}

	return size
}

func signOf(v float64) int64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func errNotInitialized(id ID) error {
	return errors.Newf(errors.ErrCodeStrategyNotInitialized, "strategy %s is not initialized", id)
}

func errValidation(msg string) error {
	return errors.New(errors.ErrCodeStrategyValidation, "unable to initialize strategy: "+msg)
}
