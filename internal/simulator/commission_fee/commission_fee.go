package commission_fee

type CommissionFee interface {
	// Calculate the commission fee for a fill of quantity at price and returns the fee in currency
	Calculate(quantity float64, price float64) float64
}

type Broker string

const (
	BrokerPercentage Broker = "percentage"
	BrokerZero       Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerPercentage,
	BrokerZero,
}

// DefaultRate is the taker fee applied by the percentage model when no rate is configured.
const DefaultRate = 0.001

func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerPercentage:
		if rate <= 0 {
			rate = DefaultRate
		}

		return NewPercentageCommissionFee(rate)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
