package commission_fee

import "math"

// PercentageCommissionFee charges a fixed fraction of the traded notional.
type PercentageCommissionFee struct {
	Rate float64
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	return &PercentageCommissionFee{Rate: rate}
}

func (c *PercentageCommissionFee) Calculate(quantity float64, price float64) float64 {
	return math.Abs(quantity*price) * c.Rate
}
