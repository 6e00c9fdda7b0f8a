package strategy

import (
	"github.com/rxtech-lab/argo-sizing/internal/types"
)

// ID identifies a strategy variant. It is also the key persisted next to the state.
type ID string

const (
	// IDPile is the power-law position model.
	IDPile ID = "pile"
	// IDMca is the mathematical cost averaging model.
	IDMca ID = "mathematical_cost_averaging"
)

// AllIDs lists every built-in strategy.
var AllIDs = []any{
	IDPile,
	IDMca,
}

// Strategy is a position-sizing model.
//
// Implementations are immutable values. Every transition (Init, OnTrade,
// OnIdle, ImportState, Reset) returns a new Strategy and leaves the receiver
// untouched, so a value can be read from any goroutine while the owner
// advances to its successor.
type Strategy interface {
	// ID returns the variant identifier.
	ID() ID
	// Init bootstraps the state from observed holdings.
	// Holdings the model cannot represent fail with ErrCodeStrategyValidation.
	Init(price, assets, currency float64, leveraged bool) (Strategy, error)
	// IsValid reports whether the state has been bootstrapped.
	IsValid() bool
	// GetNewOrder returns the order for a probe in direction dir (+1 buy, -1 sell)
	// at newPrice. It has no side effects.
	GetNewOrder(minfo types.MarketInfo, curPrice, newPrice, dir, assets, currency float64, rejected bool) types.OrderData
	// OnTrade records a fill and returns the successor strategy.
	// It fails with ErrCodeStrategyNotInitialized on an invalid strategy.
	OnTrade(minfo types.MarketInfo, tradePrice, tradeSize, assetsLeft, currencyLeft float64) (types.TradeResult, Strategy, error)
	// ExportState returns the persisted form of the state. Config is not included.
	ExportState() types.StateValue
	// ImportState restores a strategy from ExportState output, keeping the receiver's config.
	ImportState(src types.StateValue, minfo types.MarketInfo) (Strategy, error)
	// CalcSafeRange returns the price interval in which the model stays funded.
	CalcSafeRange(minfo types.MarketInfo, assets, currencies float64) types.MinMax
	// GetCenterPrice returns the price the model considers neutral.
	GetCenterPrice(lastPrice, assets float64) float64
	// CalcInitialPosition returns the position the model would open with.
	CalcInitialPosition(minfo types.MarketInfo, price, assets, currency float64) float64
	// GetBudgetInfo projects the current budget.
	GetBudgetInfo() types.BudgetInfo
	// GetEquilibrium returns the price at which assets is the target position.
	GetEquilibrium(assets float64) float64
	// CalcCurrencyAllocation returns the currency the model wants allocated.
	CalcCurrencyAllocation(price float64) float64
	// CalcChart samples the model curve at price.
	CalcChart(price float64) types.ChartPoint
	// OnIdle re-initializes an invalid strategy and returns a valid one unchanged.
	OnIdle(minfo types.MarketInfo, ticker types.Ticker, assets, currency float64) (Strategy, error)
	// Reset returns a fresh, unvalidated strategy with the same config.
	Reset() Strategy
	// DumpStatePretty returns a labeled snapshot for operators.
	DumpStatePretty(minfo types.MarketInfo) types.Diagnostics
}
