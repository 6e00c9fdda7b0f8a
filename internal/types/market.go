package types

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

// MarketData is a single bar of a price series.
type MarketData struct {
	Time   time.Time `csv:"time" json:"time"`
	Symbol string    `csv:"symbol" json:"symbol"`
	Open   float64   `csv:"open" json:"open"`
	High   float64   `csv:"high" json:"high"`
	Low    float64   `csv:"low" json:"low"`
	Close  float64   `csv:"close" json:"close"`
	Volume float64   `csv:"volume" json:"volume"`
}

// MarketInfo describes the trading rules of the market a strategy runs on.
// Strategies only read it.
type MarketInfo struct {
	// MinSize is the smallest order quantity the exchange accepts.
	MinSize float64 `yaml:"min_size" json:"min_size" jsonschema:"title=Minimum Size,description=Smallest accepted order quantity,minimum=0" validate:"gte=0"`
	// MinVolume is the smallest accepted order value in currency.
	MinVolume float64 `yaml:"min_volume" json:"min_volume" jsonschema:"title=Minimum Volume,description=Smallest accepted order value in currency,minimum=0" validate:"gte=0"`
	// AssetStep is the quantity granularity.
	AssetStep float64 `yaml:"asset_step" json:"asset_step" jsonschema:"title=Asset Step,description=Order quantity granularity,minimum=0" validate:"gte=0"`
	// Leverage is true for margin markets, where the budget is the currency balance only.
	Leverage bool `yaml:"leverage" json:"leverage" jsonschema:"title=Leverage,description=Margin market flag"`
	// InvertPrice is true when the market quotes the inverse price. Only affects diagnostics.
	InvertPrice bool `yaml:"invert_price" json:"invert_price" jsonschema:"title=Invert Price,description=Display inverted prices"`
}

// MinOrderSize returns the effective minimal tradable quantity at the given price.
func (m MarketInfo) MinOrderSize(price float64) float64 {
	return math.Max(m.MinSize, math.Max(m.MinVolume/price, m.AssetStep))
}

// Validate validates the MarketInfo struct.
func (m *MarketInfo) Validate() error {
	validate := validator.New()
	if err := validate.Struct(m); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidMarketInfo, "invalid market info", err)
	}

	return nil
}

// Ticker is the latest market quote.
type Ticker struct {
	Last float64   `json:"last"`
	Time time.Time `json:"time"`
}
