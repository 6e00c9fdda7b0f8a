package strategy

import (
	"math"

	"github.com/rxtech-lab/argo-sizing/internal/types"
)

// HistorySize is the number of trade directions remembered for the sentiment score.
const HistorySize = 6

// McaConfig configures the cost averaging model.
type McaConfig struct {
	// BuyStrength controls how fast the position grows as price falls below entry.
	BuyStrength float64 `yaml:"buy_strength" json:"buy_strength" jsonschema:"title=Buy Strength,description=Aggressiveness of buying below entry,minimum=0,maximum=1" validate:"gte=0,lte=1"`
	// SellStrength controls how fast the position is reduced above entry. 1 sells everything, 0 never sells.
	SellStrength float64 `yaml:"sell_strength" json:"sell_strength" jsonschema:"title=Sell Strength,description=Aggressiveness of selling above entry,minimum=0,maximum=1" validate:"gte=0,lte=1"`
	// InitBet is the percent of the budget used to open a position.
	InitBet float64 `yaml:"init_bet" json:"init_bet" jsonschema:"title=Initial Bet,description=Percent of budget for a new position,minimum=0,maximum=100" validate:"gte=0,lte=100"`
	// MinAboveEnter is the percent above entry price below which nothing is sold.
	MinAboveEnter float64 `yaml:"min_above_enter" json:"min_above_enter" jsonschema:"title=Minimum Above Enter,description=Dead zone above entry in percent,minimum=0" validate:"gte=0"`
	// UseSentiment damps re-buys while the recent trades are mostly sells.
	UseSentiment bool `yaml:"use_sentiment" json:"use_sentiment" jsonschema:"title=Use Sentiment,description=Damp buying during a confirmed downtrend"`
}

// McaState is the blended entry of the open position and the recent trade history.
type McaState struct {
	Ep        float64
	Enter     float64
	Budget    float64
	Assets    float64
	Currency  float64
	LastPrice float64
	Alerts    int64
	History   [HistorySize]int64
	Sentiment int64
}

// Mca averages into a position below the entry price and sells it above.
type Mca struct {
	cfg McaConfig
	st  McaState
}

var _ Strategy = Mca{} //nolint:exhaustruct // compile-time interface check

// NewMca creates an unvalidated cost averaging strategy.
func NewMca(cfg McaConfig) Mca {
	return Mca{
		cfg: cfg,
		st: McaState{ //nolint:exhaustruct
			Enter:  math.NaN(),
			Budget: math.NaN(),
		},
	}
}

// NewMcaWithState creates a cost averaging strategy from a known state.
func NewMcaWithState(cfg McaConfig, st McaState) Mca {
	return Mca{cfg: cfg, st: st}
}

// Config returns the strategy configuration.
func (s Mca) Config() McaConfig { return s.cfg }

// State returns a copy of the strategy state.
func (s Mca) State() McaState { return s.st }

// ID implements Strategy.
func (s Mca) ID() ID {
	return IDMca
}

// Init implements Strategy. The leverage flag is ignored, the budget is always
// the full account value.
func (s Mca) Init(price, assets, currency float64, leveraged bool) (Strategy, error) {
	enter := math.NaN()
	if assets > 0 {
		enter = price
	}

	out := Mca{
		cfg: s.cfg,
		st: McaState{
			Ep:        assets * price,
			Enter:     enter,
			Budget:    currency + assets*price,
			Assets:    assets,
			Currency:  currency,
			LastPrice: 0,
			Alerts:    0,
			History:   [HistorySize]int64{},
			Sentiment: 0,
		},
	}

	if !out.IsValid() {
		return nil, errValidation("failed to validate state")
	}

	return out, nil
}

// IsValid implements Strategy.
func (s Mca) IsValid() bool {
	return s.st.Ep >= 0 && isFinite(s.st.Budget) && s.st.Budget > 0
}

// BuyStrength maps the distance from entry d in [0, 1] to the fraction of the
// budget that should be held. The result is always in [0, 1].
func BuyStrength(cfgStrength, d float64) float64 {
	cb := clamp01(cfgStrength)
	if cb == 0 || cb == 1 {
		return clamp01(math.Sin(d * d * math.Pi / 2))
	}

	return clamp01(math.Sin(d*d) / math.Pow(1-cb, 4))
}

// SellStrength maps the distance from entry d in [0, 1] to the fraction of the
// budget that should stay held while selling. The result is always in [0, 1].
func SellStrength(cfgStrength, d float64) float64 {
	cs := clamp01(cfgStrength)

	switch {
	case cs >= 1:
		return 1
	case cs <= 0:
		return 0
	default:
		return clamp01(math.Sin(d*d+math.Pi)/math.Pow(1-cs, 4) + 1)
	}
}

func (s Mca) initialBet(price float64) float64 {
	bet := clamp(s.cfg.InitBet, 0, 100)

	v := bet / 100 * s.st.Budget / price
	if !isFinite(v) {
		return 0
	}

	return v
}

// downtrend is true when sentiment is enabled and the latest trade was a sell.
func (s Mca) downtrend() bool {
	return s.cfg.UseSentiment && s.st.History[HistorySize-1] < 0
}

func (s Mca) sentimentDenominator() float64 {
	if s.cfg.UseSentiment && s.st.Sentiment <= -3 {
		return float64(-s.st.Sentiment - 1)
	}

	return 1
}

// coldStart sizes the opening bet when there is no position to average.
func (s Mca) coldStart(price, dir, minSize float64) (float64, bool) {
	if dir < 0 {
		return 0, true
	}

	size := math.Max(minSize, s.initialBet(price))
	alert := false

	switch {
	case s.st.LastPrice > 0 && price > s.st.LastPrice:
		// price ran away without us
		alert = true
	case s.st.Sentiment > 0 && !s.downtrend():
		alert = true
	case s.st.Alerts > 0:
		size = math.Max(size/2, minSize)
	}

	return size, alert
}

func (s Mca) calculateSize(price, assets, dir, minSize float64) (float64, bool) {
	eff := math.Max(0, math.Min(s.st.Assets, assets))
	avail := math.Max(0, s.st.Currency)

	if !isFinite(s.st.Enter) || eff < minSize {
		return s.coldStart(price, dir, minSize)
	}

	if dir == 0 {
		return 0, false
	}

	if (dir > 0 && s.st.Enter < price) || (dir < 0 && s.st.Enter > price) {
		return 0, false
	}

	var d float64
	if s.st.Enter > price {
		d = (s.st.Enter - price) / s.st.Enter
	} else {
		d = (price - s.st.Enter) / price
	}

	d = clamp01(d)

	if dir > 0 {
		holdBuy := s.st.Budget * BuyStrength(s.cfg.BuyStrength, d) / price / s.sentimentDenominator()

		size := holdBuy - eff
		if size < 0 {
			return 0, false
		}

		size = math.Min(size, avail/price)
		if size < minSize {
			return 0, true
		}

		return size, true
	}

	if price <= s.st.Enter*(1+s.cfg.MinAboveEnter/100) {
		return 0, false
	}

	pnl := eff * (price - s.st.Enter)
	if pnl < 0 {
		return 0, false
	}

	cs := clamp01(s.cfg.SellStrength)

	var size float64

	switch {
	case cs >= 1:
		size = eff
	case cs <= 0:
		size = 0
	default:
		holdSell := s.st.Budget * SellStrength(cs, d) / price
		size = math.Max(0, math.Min(math.Abs(holdSell-eff), eff))
	}

	if size < minSize {
		return 0, true
	}

	return -size, true
}

// GetNewOrder implements Strategy.
func (s Mca) GetNewOrder(minfo types.MarketInfo, curPrice, newPrice, dir, assets, currency float64, rejected bool) types.OrderData {
	size, alert := s.calculateSize(newPrice, assets, dir, minfo.MinOrderSize(newPrice))

	return types.OrderData{Price: 0, Size: size, Alert: alert}
}

// OnTrade implements Strategy.
func (s Mca) OnTrade(minfo types.MarketInfo, tradePrice, tradeSize, assetsLeft, currencyLeft float64) (types.TradeResult, Strategy, error) {
	if !s.IsValid() {
		return types.TradeResult{}, nil, errNotInitialized(s.ID()) //nolint:exhaustruct
	}

	effSize := tradeSize
	if tradeSize > 0 && s.st.Assets > assetsLeft-tradeSize {
		effSize = math.Max(assetsLeft-s.st.Assets, 0)
	}

	newAssets := math.Max(0, s.st.Assets+effSize)
	cost := tradePrice * effSize

	normProfit := 0.0
	if effSize < 0 {
		normProfit = (tradePrice - s.st.Enter) * -effSize
		if math.IsNaN(normProfit) {
			normProfit = 0
		}
	}

	var ep float64

	switch {
	case effSize >= 0:
		ep = s.st.Ep + cost
	case s.st.Assets > 0:
		ep = s.st.Ep / s.st.Assets * newAssets
	default:
		ep = 0
	}

	enter := ep / newAssets

	var dir int64
	if tradeSize != 0 {
		dir = signOf(tradeSize)
	} else if s.st.LastPrice > 0 {
		dir = signOf(tradePrice - s.st.LastPrice)
	}

	var history [HistorySize]int64

	copy(history[:], s.st.History[1:])
	history[HistorySize-1] = dir

	var sentiment int64
	for _, h := range history {
		sentiment += h
	}

	alerts := int64(0)
	if tradeSize == 0 {
		alerts = s.st.Alerts + 1
	}

	next := Mca{
		cfg: s.cfg,
		st: McaState{
			Ep:        ep,
			Enter:     enter,
			Budget:    s.st.Budget,
			Assets:    newAssets,
			Currency:  math.Min(s.st.Budget, s.st.Currency-cost),
			LastPrice: tradePrice,
			Alerts:    alerts,
			History:   history,
			Sentiment: sentiment,
		},
	}

	neutral := enter
	if !isFinite(neutral) {
		neutral = tradePrice
	}

	return types.TradeResult{
		NormProfit:   normProfit,
		NormAccum:    0,
		NeutralPrice: neutral,
		OpenPrice:    0,
	}, next, nil
}

// ExportState implements Strategy.
func (s Mca) ExportState() types.StateValue {
	history := make([]int64, HistorySize)
	copy(history, s.st.History[:])

	return types.StateValue{
		"ep":         s.st.Ep,
		"enter":      s.st.Enter,
		"budget":     s.st.Budget,
		"assets":     s.st.Assets,
		"currency":   s.st.Currency,
		"last_price": s.st.LastPrice,
		"alerts":     s.st.Alerts,
		"history":    history,
		"sentiment":  s.st.Sentiment,
	}
}

// ImportState implements Strategy.
func (s Mca) ImportState(src types.StateValue, minfo types.MarketInfo) (Strategy, error) {
	var st McaState

	fields := []struct {
		key string
		dst *float64
	}{
		{"ep", &st.Ep},
		{"enter", &st.Enter},
		{"budget", &st.Budget},
		{"assets", &st.Assets},
		{"currency", &st.Currency},
		{"last_price", &st.LastPrice},
	}

	for _, f := range fields {
		v, err := src.Number(f.key)
		if err != nil {
			return nil, err
		}

		*f.dst = v
	}

	alerts, err := src.Int("alerts")
	if err != nil {
		return nil, err
	}

	sentiment, err := src.Int("sentiment")
	if err != nil {
		return nil, err
	}

	history, err := src.IntArray("history", HistorySize)
	if err != nil {
		return nil, err
	}

	st.Alerts = alerts
	st.Sentiment = sentiment
	copy(st.History[:], history)

	return Mca{cfg: s.cfg, st: st}, nil
}

// CalcSafeRange implements Strategy.
func (s Mca) CalcSafeRange(minfo types.MarketInfo, assets, currencies float64) types.MinMax {
	return types.Unbounded()
}

// GetCenterPrice implements Strategy.
func (s Mca) GetCenterPrice(lastPrice, assets float64) float64 {
	if s.st.LastPrice > 0 {
		lastPrice = s.st.LastPrice
	}

	eff := math.Max(0, math.Min(s.st.Assets, assets))
	dust := s.st.Budget / lastPrice * 0.01

	if !isFinite(s.st.Enter) || s.st.Enter == 0 || eff < dust {
		return lastPrice
	}

	return s.st.Enter
}

// CalcInitialPosition implements Strategy. The opening bet is sized by GetNewOrder instead.
func (s Mca) CalcInitialPosition(minfo types.MarketInfo, price, assets, currency float64) float64 {
	return 0
}

// GetBudgetInfo implements Strategy.
func (s Mca) GetBudgetInfo() types.BudgetInfo {
	return types.BudgetInfo{Total: s.st.Budget, Assets: s.st.Assets}
}

// GetEquilibrium implements Strategy.
func (s Mca) GetEquilibrium(assets float64) float64 {
	return s.st.Enter
}

// CalcCurrencyAllocation implements Strategy.
func (s Mca) CalcCurrencyAllocation(price float64) float64 {
	return s.st.Budget
}

// CalcChart implements Strategy.
func (s Mca) CalcChart(price float64) types.ChartPoint {
	return types.ChartPoint{Valid: false, Position: s.st.Assets, Budget: s.st.Budget}
}

// OnIdle implements Strategy.
func (s Mca) OnIdle(minfo types.MarketInfo, ticker types.Ticker, assets, currency float64) (Strategy, error) {
	if !s.IsValid() {
		return s.Init(ticker.Last, assets, currency, minfo.Leverage)
	}

	return s, nil
}

// Reset implements Strategy.
func (s Mca) Reset() Strategy {
	return NewMca(s.cfg)
}

// DumpStatePretty implements Strategy.
func (s Mca) DumpStatePretty(minfo types.MarketInfo) types.Diagnostics {
	enter := s.st.Enter
	last := s.st.LastPrice
	assets := s.st.Assets

	if minfo.InvertPrice {
		enter = 1.0 / enter
		last = 1.0 / last
		assets = -assets
	}

	return types.Diagnostics{
		{Label: "Enter price", Value: enter},
		{Label: "Entry value", Value: s.st.Ep},
		{Label: "Budget", Value: s.st.Budget},
		{Label: "Assets", Value: assets},
		{Label: "Currency", Value: s.st.Currency},
		{Label: "Last price", Value: last},
		{Label: "Alerts", Value: float64(s.st.Alerts)},
		{Label: "Sentiment", Value: float64(s.st.Sentiment)},
	}
}
