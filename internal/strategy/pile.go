package strategy

import (
	"math"

	"github.com/rxtech-lab/argo-sizing/internal/types"
)

// PileConfig configures the power-law model.
type PileConfig struct {
	// Ratio is the fraction of the budget held in assets when opening a position.
	Ratio float64 `yaml:"ratio" json:"ratio" jsonschema:"title=Ratio,description=Fraction of the budget held as assets,exclusiveMinimum=0,exclusiveMaximum=1" validate:"gt=0,lt=1"`
	// Accum is the fraction of the extra profit folded back into the position.
	Accum float64 `yaml:"accum" json:"accum" jsonschema:"title=Accumulation,description=Fraction of profit reinvested into the position,minimum=0,maximum=1" validate:"gte=0,lte=1"`
}

// PileState is the fitted power-law curve plus the last observed fill.
type PileState struct {
	Ratio       float64
	Kmult       float64
	LastPrice   float64
	Budget      float64
	Position    float64
	BudgetError float64
}

// Pile holds a position that follows position(p) = k*p^(r-1).
// The exponent r and the multiplier k are fitted once by Init.
type Pile struct {
	cfg PileConfig
	st  PileState
}

var _ Strategy = Pile{} //nolint:exhaustruct // compile-time interface check

// NewPile creates an unvalidated pile strategy.
func NewPile(cfg PileConfig) Pile {
	return Pile{cfg: cfg, st: PileState{}} //nolint:exhaustruct
}

// NewPileWithState creates a pile strategy from a known state.
func NewPileWithState(cfg PileConfig, st PileState) Pile {
	return Pile{cfg: cfg, st: st}
}

// Config returns the strategy configuration.
func (s Pile) Config() PileConfig { return s.cfg }

// State returns a copy of the strategy state.
func (s Pile) State() PileState { return s.st }

// CalcPosition returns the target position at price.
func CalcPosition(ratio, kmult, price float64) float64 {
	return kmult * math.Pow(price, ratio-1)
}

// CalcBudget returns the budget at price.
func CalcBudget(ratio, kmult, price float64) float64 {
	return kmult * math.Pow(price, ratio) / ratio
}

// CalcEquilibrium returns the price at which position is the target position.
func CalcEquilibrium(ratio, kmult, position float64) float64 {
	return math.Pow(position/kmult, -1.0/(1-ratio))
}

// CalcPriceFromBudget inverts CalcBudget.
func CalcPriceFromBudget(ratio, kmult, budget float64) float64 {
	return math.Pow(budget*ratio/kmult, 1.0/ratio)
}

// CalcCurrency returns the currency part of the budget at price.
func CalcCurrency(ratio, kmult, price float64) float64 {
	return kmult * (math.Pow(price, ratio)/ratio - math.Pow(price, ratio-1)*price)
}

// CalcPriceFromCurrency inverts CalcCurrency.
func CalcPriceFromCurrency(ratio, kmult, currency float64) float64 {
	return math.Pow(-(kmult-kmult/ratio)/currency, -1.0/ratio)
}

// ID implements Strategy.
func (s Pile) ID() ID {
	return IDPile
}

// Init implements Strategy.
func (s Pile) Init(price, assets, currency float64, leveraged bool) (Strategy, error) {
	v := price * assets

	b := v + currency
	if leveraged {
		b = currency
	}

	r := v / b
	if r <= 0.001 {
		return nil, errValidation("you need to buy some assets")
	}

	if r > 0.999 {
		return nil, errValidation("you need to have some currency")
	}

	m := assets / CalcPosition(r, 1, price)
	out := Pile{
		cfg: s.cfg,
		st: PileState{
			Ratio:       r,
			Kmult:       m,
			LastPrice:   price,
			Budget:      CalcBudget(r, m, price),
			Position:    assets,
			BudgetError: 0,
		},
	}

	if !out.IsValid() {
		return nil, errValidation("failed to validate state")
	}

	return out, nil
}

// IsValid implements Strategy.
func (s Pile) IsValid() bool {
	return s.st.Budget > 0 && s.st.Kmult > 0 && s.st.LastPrice > 0 && s.st.Ratio > 0
}

// calcAccum splits the drift between realized pnl and the budget curve into
// bookable profit and assets to accumulate.
func (s Pile) calcAccum(newPrice float64) (normProfit float64, accum float64) {
	b2 := CalcBudget(s.st.Ratio, s.st.Kmult, newPrice)
	pnl := s.st.Position * (newPrice - s.st.LastPrice)
	bdiff := b2 - s.st.Budget
	extra := pnl - bdiff

	accum = s.cfg.Accum * (extra / newPrice)
	normProfit = (1.0 - s.cfg.Accum) * extra

	return normProfit, accum
}

// GetNewOrder implements Strategy.
func (s Pile) GetNewOrder(minfo types.MarketInfo, curPrice, newPrice, dir, assets, currency float64, rejected bool) types.OrderData {
	if !s.IsValid() {
		return types.OrderData{Price: 0, Size: 0, Alert: false}
	}

	finPos := CalcPosition(s.st.Ratio, s.st.Kmult, newPrice)
	_, accum := s.calcAccum(newPrice)
	diff := finPos + accum - assets

	return types.OrderData{
		Price: 0,
		Size:  floorToMinSize(diff, minfo.MinOrderSize(newPrice)),
		Alert: false,
	}
}

// OnTrade implements Strategy.
func (s Pile) OnTrade(minfo types.MarketInfo, tradePrice, tradeSize, assetsLeft, currencyLeft float64) (types.TradeResult, Strategy, error) {
	if !s.IsValid() {
		return types.TradeResult{}, nil, errNotInitialized(s.ID()) //nolint:exhaustruct
	}

	normProfit, accum := s.calcAccum(tradePrice)
	cass := CalcPosition(s.st.Ratio, s.st.Kmult, tradePrice)
	diff := assetsLeft - cass - accum
	pos := assetsLeft - accum

	next := Pile{
		cfg: s.cfg,
		st: PileState{
			Ratio:       s.st.Ratio,
			Kmult:       s.st.Kmult,
			LastPrice:   tradePrice,
			Budget:      CalcBudget(s.st.Ratio, s.st.Kmult, tradePrice),
			Position:    pos,
			BudgetError: diff * tradePrice,
		},
	}

	neutral := CalcEquilibrium(s.st.Ratio, s.st.Kmult, pos)
	if !isFinite(neutral) || neutral < 0 {
		neutral = 0
	}

	return types.TradeResult{
		NormProfit:   normProfit,
		NormAccum:    accum,
		NeutralPrice: neutral,
		OpenPrice:    0,
	}, next, nil
}

// ExportState implements Strategy.
func (s Pile) ExportState() types.StateValue {
	return types.StateValue{
		"ratio":  s.st.Ratio,
		"kmult":  s.st.Kmult,
		"lastp":  s.st.LastPrice,
		"budget": s.st.Budget,
		"pos":    s.st.Position,
		"berror": s.st.BudgetError,
	}
}

// ImportState implements Strategy.
func (s Pile) ImportState(src types.StateValue, minfo types.MarketInfo) (Strategy, error) {
	var st PileState

	fields := []struct {
		key string
		dst *float64
	}{
		{"ratio", &st.Ratio},
		{"kmult", &st.Kmult},
		{"lastp", &st.LastPrice},
		{"budget", &st.Budget},
		{"pos", &st.Position},
		{"berror", &st.BudgetError},
	}

	for _, f := range fields {
		v, err := src.Number(f.key)
		if err != nil {
			return nil, err
		}

		*f.dst = v
	}

	return Pile{cfg: s.cfg, st: st}, nil
}

// CalcSafeRange implements Strategy.
func (s Pile) CalcSafeRange(minfo types.MarketInfo, assets, currencies float64) types.MinMax {
	pos := CalcPosition(s.st.Ratio, s.st.Kmult, s.st.LastPrice)
	r := types.Unbounded()

	if pos > assets {
		r.Max = CalcEquilibrium(s.st.Ratio, s.st.Kmult, pos-assets)
	}

	cur := CalcCurrency(s.st.Ratio, s.st.Kmult, s.st.LastPrice)

	avail := currencies
	if assets > pos {
		avail += (assets - pos) * s.st.LastPrice
	}

	if cur > avail {
		r.Min = CalcPriceFromCurrency(s.st.Ratio, s.st.Kmult, cur-avail)
	}

	return r
}

// GetCenterPrice implements Strategy.
func (s Pile) GetCenterPrice(lastPrice, assets float64) float64 {
	return s.GetEquilibrium(assets)
}

// CalcInitialPosition implements Strategy.
func (s Pile) CalcInitialPosition(minfo types.MarketInfo, price, assets, currency float64) float64 {
	budget := currency + price*assets
	if minfo.Leverage {
		budget = currency
	}

	return (budget * s.cfg.Ratio) / price
}

// GetBudgetInfo implements Strategy.
func (s Pile) GetBudgetInfo() types.BudgetInfo {
	return types.BudgetInfo{
		Total:  CalcBudget(s.st.Ratio, s.st.Kmult, s.st.LastPrice),
		Assets: CalcPosition(s.st.Ratio, s.st.Kmult, s.st.LastPrice),
	}
}

// GetEquilibrium implements Strategy.
func (s Pile) GetEquilibrium(assets float64) float64 {
	return CalcEquilibrium(s.st.Ratio, s.st.Kmult, assets)
}

// CalcCurrencyAllocation implements Strategy.
func (s Pile) CalcCurrencyAllocation(price float64) float64 {
	return CalcCurrency(s.st.Ratio, s.st.Kmult, s.st.LastPrice) + s.st.BudgetError
}

// CalcChart implements Strategy.
func (s Pile) CalcChart(price float64) types.ChartPoint {
	return types.ChartPoint{
		Valid:    true,
		Position: CalcPosition(s.st.Ratio, s.st.Kmult, price),
		Budget:   CalcBudget(s.st.Ratio, s.st.Kmult, price),
	}
}

// OnIdle implements Strategy.
func (s Pile) OnIdle(minfo types.MarketInfo, ticker types.Ticker, assets, currency float64) (Strategy, error) {
	if !s.IsValid() {
		return s.Init(ticker.Last, assets, currency, minfo.Leverage)
	}

	return s, nil
}

// Reset implements Strategy.
func (s Pile) Reset() Strategy {
	return NewPile(s.cfg)
}

// DumpStatePretty implements Strategy.
func (s Pile) DumpStatePretty(minfo types.MarketInfo) types.Diagnostics {
	pos := s.st.Position
	price := s.st.LastPrice

	if minfo.InvertPrice {
		price = 1.0 / price
		pos = -pos
	}

	return types.Diagnostics{
		{Label: "Unprocessed volume", Value: s.st.BudgetError},
		{Label: "Budget", Value: s.st.Budget},
		{Label: "Multiplier", Value: s.st.Kmult},
		{Label: "Last price", Value: price},
		{Label: "Ratio", Value: s.st.Ratio * 100},
		{Label: "Position", Value: pos},
	}
}
