package simulator

import (
	"os"
	"time"

	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Summary reports the outcome of a replay.
type Summary struct {
	// RunID is the unique identifier of this replay.
	RunID      string    `yaml:"run_id" json:"run_id"`
	BotID      string    `yaml:"bot_id" json:"bot_id"`
	StrategyID string    `yaml:"strategy_id" json:"strategy_id"`
	StartedAt  time.Time `yaml:"started_at" json:"started_at"`
	// Ticks is the number of bars replayed.
	Ticks int `yaml:"ticks" json:"ticks"`
	// Trades counts fills with a non-zero size.
	Trades int `yaml:"trades" json:"trades"`
	// Alerts counts crossed alert-only orders, reported as zero size fills.
	Alerts int `yaml:"alerts" json:"alerts"`
	// Rejected counts crossed orders the wallet could not execute.
	Rejected int `yaml:"rejected" json:"rejected"`
	// IdleFailures counts bars on which the strategy could not initialize.
	IdleFailures int `yaml:"idle_failures" json:"idle_failures"`
	// NormProfit is the sum of the normalized profit reported by the strategy.
	NormProfit float64 `yaml:"norm_profit" json:"norm_profit"`
	// NormAccum is the sum of the accumulated assets reported by the strategy.
	NormAccum     float64 `yaml:"norm_accum" json:"norm_accum"`
	Fees          float64 `yaml:"fees" json:"fees"`
	FirstPrice    float64 `yaml:"first_price" json:"first_price"`
	LastPrice     float64 `yaml:"last_price" json:"last_price"`
	StartEquity   float64 `yaml:"start_equity" json:"start_equity"`
	FinalAssets   float64 `yaml:"final_assets" json:"final_assets"`
	FinalCurrency float64 `yaml:"final_currency" json:"final_currency"`
	FinalEquity   float64 `yaml:"final_equity" json:"final_equity"`
	// HoldEquity is the value of the initial balances at the last price.
	HoldEquity float64 `yaml:"hold_equity" json:"hold_equity"`
	// MaxDrawdown is the largest relative drop of equity from a running peak.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
}

// WriteSummary writes the summary as YAML to path.
func WriteSummary(path string, summary Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSimulationFailed, "failed to marshal summary", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeSimulationFailed, err, "failed to write summary to %s", path)
	}

	return nil
}
