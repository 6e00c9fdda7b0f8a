package simulator

import (
	"math"

	"github.com/rxtech-lab/argo-sizing/internal/simulator/commission_fee"
	"github.com/rxtech-lab/argo-sizing/internal/utils"
	"github.com/shopspring/decimal"
)

// Wallet holds the paper balances of a replay.
// Balances are updated with decimal arithmetic so long replays do not drift.
type Wallet struct {
	assets     decimal.Decimal
	currency   decimal.Decimal
	fees       decimal.Decimal
	commission commission_fee.CommissionFee
	step       float64
}

// NewWallet creates a wallet. step is the asset quantity granularity.
func NewWallet(assets, currency float64, commission commission_fee.CommissionFee, step float64) *Wallet {
	return &Wallet{
		assets:     decimal.NewFromFloat(assets),
		currency:   decimal.NewFromFloat(currency),
		fees:       decimal.Zero,
		commission: commission,
		step:       step,
	}
}

func (w *Wallet) Assets() float64 {
	f, _ := w.assets.Float64()

	return f
}

func (w *Wallet) Currency() float64 {
	f, _ := w.currency.Float64()

	return f
}

// Fees returns the total commission paid.
func (w *Wallet) Fees() float64 {
	f, _ := w.fees.Float64()

	return f
}

// Equity values the wallet at price.
func (w *Wallet) Equity(price float64) float64 {
	f, _ := w.assets.Mul(decimal.NewFromFloat(price)).Add(w.currency).Float64()

	return f
}

// Buy buys up to size at price, limited by the currency left after fees.
// It returns the executed quantity, which is a multiple of the step.
func (w *Wallet) Buy(price, size float64) float64 {
	if price <= 0 || size <= 0 {
		return 0
	}

	affordable := utils.CalculateMaxQuantity(w.Currency(), price, w.commission)

	qty := utils.RoundToStep(math.Min(size, affordable), w.step)
	if qty <= 0 {
		return 0
	}

	fee := decimal.NewFromFloat(w.commission.Calculate(qty, price))
	cost := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price)).Add(fee)

	w.currency = w.currency.Sub(cost)
	w.assets = w.assets.Add(decimal.NewFromFloat(qty))
	w.fees = w.fees.Add(fee)

	return qty
}

// Sell sells up to size at price, limited by the assets held.
// It returns the executed quantity, which is a multiple of the step.
func (w *Wallet) Sell(price, size float64) float64 {
	if price <= 0 || size <= 0 {
		return 0
	}

	qty := utils.RoundToStep(math.Min(size, w.Assets()), w.step)
	if qty <= 0 {
		return 0
	}

	fee := decimal.NewFromFloat(w.commission.Calculate(qty, price))
	proceeds := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price)).Sub(fee)

	w.currency = w.currency.Add(proceeds)
	w.assets = w.assets.Sub(decimal.NewFromFloat(qty))
	w.fees = w.fees.Add(fee)

	return qty
}
