package types

import "math"

// TradeResult is reported by a strategy after recording a fill.
type TradeResult struct {
	// NormProfit is the realized, bookable profit.
	NormProfit float64 `json:"norm_profit"`
	// NormAccum is the amount of assets folded back into the position.
	NormAccum float64 `json:"norm_accum"`
	// NeutralPrice is the (possibly revised) equilibrium or entry price. Zero when unknown.
	NeutralPrice float64 `json:"neutral_price"`
	// OpenPrice is the price of a newly opened position. Zero when unknown.
	OpenPrice float64 `json:"open_price"`
}

// MinMax is a price interval.
type MinMax struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Unbounded returns the interval [0, +Inf).
func Unbounded() MinMax {
	return MinMax{Min: 0, Max: math.Inf(1)}
}

// BudgetInfo projects the budget held by a strategy.
type BudgetInfo struct {
	Total  float64 `json:"total"`
	Assets float64 `json:"assets"`
}

// ChartPoint is one sample of the strategy curve.
type ChartPoint struct {
	Valid    bool    `json:"valid"`
	Position float64 `json:"position"`
	Budget   float64 `json:"budget"`
}

// DiagnosticEntry is one labeled value of a diagnostic snapshot.
type DiagnosticEntry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Diagnostics is a human-labeled projection of strategy state for dashboards.
// Order is preserved for display.
type Diagnostics []DiagnosticEntry

// Get returns the value stored under label.
func (d Diagnostics) Get(label string) (float64, bool) {
	for _, e := range d {
		if e.Label == label {
			return e.Value, true
		}
	}

	return 0, false
}
