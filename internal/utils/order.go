package utils

import (
	"github.com/rxtech-lab/argo-sizing/internal/simulator/commission_fee"
	"github.com/shopspring/decimal"
)

// CalculateMaxQuantity calculates the maximum quantity that can be bought with the given balance, fees included.
func CalculateMaxQuantity(balance float64, price float64, commissionFee commission_fee.CommissionFee) float64 {
	if price <= 0 || balance <= 0 {
		return 0
	}

	maxQty := balance / price

	// converges in a few rounds for proportional fees
	for i := 0; i < 10; i++ {
		totalCost := maxQty*price + commissionFee.Calculate(maxQty, price)
		if totalCost <= balance {
			break
		}

		maxQty *= balance / totalCost
	}

	return maxQty
}

// RoundToStep rounds a signed quantity toward zero to a multiple of step.
// A non-positive step leaves the quantity unchanged.
func RoundToStep(quantity float64, step float64) float64 {
	if step <= 0 {
		return quantity
	}

	q := decimal.NewFromFloat(quantity)
	s := decimal.NewFromFloat(step)

	steps := q.Div(s).Truncate(0)
	out, _ := steps.Mul(s).Float64()

	return out
}
