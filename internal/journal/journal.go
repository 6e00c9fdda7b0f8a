// Package journal records every fill the agent feeds to its strategy, along
// with the strategy's report, in an embedded DuckDB database that can be
// exported to Parquet for offline analysis.
package journal

import (
	"time"

	"github.com/moznion/go-optional"
)

// Entry is one processed fill.
type Entry struct {
	ID           string    `json:"id"`
	BotID        string    `json:"bot_id"`
	StrategyID   string    `json:"strategy_id"`
	Time         time.Time `json:"time"`
	Price        float64   `json:"price"`
	Size         float64   `json:"size"`
	NormProfit   float64   `json:"norm_profit"`
	NormAccum    float64   `json:"norm_accum"`
	NeutralPrice float64   `json:"neutral_price"`
	// Alert is true for zero size fills, which record an alert or a rejected order.
	Alert bool `json:"alert"`
}

// Filter narrows Entries.
type Filter struct {
	BotID optional.Option[string]
	Since optional.Option[time.Time]
	Limit optional.Option[uint64]
}

// Journal stores processed fills.
type Journal interface {
	// Record appends an entry. An empty ID is replaced by a fresh one.
	Record(entry Entry) error
	// Entries returns matching entries in time order.
	Entries(filter Filter) ([]Entry, error)
	// Write exports all entries to a Parquet file in dir.
	Write(dir string) error
	// Close releases the journal.
	Close() error
}
