package strategy

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type PileTestSuite struct {
	suite.Suite
	minfo types.MarketInfo
}

func TestPileSuite(t *testing.T) {
	suite.Run(t, new(PileTestSuite))
}

func (suite *PileTestSuite) SetupTest() {
	suite.minfo = types.MarketInfo{MinSize: 0.01, MinVolume: 0, AssetStep: 0.0001}
}

// initPile returns a pile fitted at price 100 with half of a 100 budget in assets.
func (suite *PileTestSuite) initPile(accum float64) Pile {
	s, err := NewPile(PileConfig{Ratio: 0.5, Accum: accum}).Init(100, 0.5, 50, false)
	suite.Require().NoError(err)

	return s.(Pile)
}

func (suite *PileTestSuite) TestInit() {
	tests := []struct {
		name        string
		price       float64
		assets      float64
		currency    float64
		leveraged   bool
		expectError bool
		ratio       float64
		kmult       float64
	}{
		{"balanced", 100, 0.5, 50, false, false, 0.5, 5},
		{"all assets", 100, 1, 0, false, true, 0, 0},
		{"no assets", 100, 0, 100, false, true, 0, 0},
		{"below lower bound", 100, 0.001, 100, false, true, 0, 0},
		{"leveraged", 100, 0.25, 100, true, false, 0.25, 0},
		{"empty account", 100, 0, 0, false, true, 0, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			s, err := NewPile(DefaultPileConfig()).Init(tc.price, tc.assets, tc.currency, tc.leveraged)
			if tc.expectError {
				suite.Error(err)
				suite.True(errors.IsValidationError(err))
				suite.Nil(s)

				return
			}

			suite.Require().NoError(err)
			suite.True(s.IsValid())

			st := s.(Pile).State()
			suite.InDelta(tc.ratio, st.Ratio, 1e-12)
			suite.Equal(tc.price, st.LastPrice)
			suite.Equal(tc.assets, st.Position)
			suite.Equal(0.0, st.BudgetError)

			if tc.kmult > 0 {
				suite.InDelta(tc.kmult, st.Kmult, 1e-12)
			}
		})
	}
}

func (suite *PileTestSuite) TestInitErrorMessages() {
	_, err := NewPile(DefaultPileConfig()).Init(100, 1, 0, false)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "you need to have some currency")

	_, err = NewPile(DefaultPileConfig()).Init(100, 0, 100, false)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "you need to buy some assets")
}

func (suite *PileTestSuite) TestPowerLawInverse() {
	s := suite.initPile(0)
	st := s.State()

	for _, price := range []float64{0.5, 1, 10, 81, 100, 121, 1000, 25000} {
		pos := CalcPosition(st.Ratio, st.Kmult, price)
		suite.InDelta(price, s.GetEquilibrium(pos), price*1e-9)

		budget := CalcBudget(st.Ratio, st.Kmult, price)
		suite.InDelta(price, CalcPriceFromBudget(st.Ratio, st.Kmult, budget), price*1e-9)

		currency := CalcCurrency(st.Ratio, st.Kmult, price)
		suite.InDelta(price, CalcPriceFromCurrency(st.Ratio, st.Kmult, currency), price*1e-9)
	}

	suite.InDelta(100.0, s.GetEquilibrium(CalcPosition(0.5, st.Kmult, 100)), 1e-9)
}

func (suite *PileTestSuite) TestGetNewOrder() {
	s := suite.initPile(0)

	tests := []struct {
		name     string
		minfo    types.MarketInfo
		price    float64
		assets   float64
		expected float64
	}{
		{"at equilibrium", suite.minfo, 100, 0.5, 0},
		{"buy below", suite.minfo, 81, 0.5, 5.0/9 - 0.5},
		{"sell above", suite.minfo, 121, 0.5, 5.0/11 - 0.5},
		{"below min size", types.MarketInfo{MinSize: 0.1}, 81, 0.5, 0},
		{"min volume floor", types.MarketInfo{MinVolume: 5}, 81, 0.5, 0},
		{"assets drifted", suite.minfo, 100, 0.4, 0.1},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			for _, dir := range []float64{1, -1} {
				order := s.GetNewOrder(tc.minfo, 100, tc.price, dir, tc.assets, 50, false)
				suite.InDelta(tc.expected, order.Size, 1e-9)
				suite.False(order.Alert)
				suite.Equal(0.0, order.Price)
			}
		})
	}
}

func (suite *PileTestSuite) TestGetNewOrderInvalid() {
	order := NewPile(DefaultPileConfig()).GetNewOrder(suite.minfo, 100, 90, 1, 0.5, 50, false)
	suite.Equal(types.OrderData{}, order)
}

func (suite *PileTestSuite) TestMinSizeFloor() {
	s := suite.initPile(0)
	minfo := types.MarketInfo{MinSize: 0.02}

	for price := 90.0; price <= 110; price += 0.25 {
		order := s.GetNewOrder(minfo, 100, price, 1, 0.5, 50, false)
		if order.Size != 0 {
			suite.GreaterOrEqual(math.Abs(order.Size), minfo.MinOrderSize(price))
		}
	}
}

func (suite *PileTestSuite) TestOnTradeAccumulation() {
	s := suite.initPile(0.5)
	tradeSize := 5.0/9 - 0.5

	res, next, err := s.OnTrade(suite.minfo, 81, tradeSize, 5.0/9, 50-tradeSize*81)
	suite.Require().NoError(err)

	// budget curve 100 -> 90, realized -9.5, extra 0.5 split in half
	suite.InDelta(0.25, res.NormProfit, 1e-9)
	suite.InDelta(0.25/81, res.NormAccum, 1e-12)
	suite.Equal(0.0, res.OpenPrice)

	st := next.(Pile).State()
	suite.Equal(81.0, st.LastPrice)
	suite.InDelta(90.0, st.Budget, 1e-9)
	suite.InDelta(5.0/9-0.25/81, st.Position, 1e-12)
	suite.InDelta(-0.25/81*81, st.BudgetError, 1e-9)
	suite.InDelta(CalcEquilibrium(0.5, 5, st.Position), res.NeutralPrice, 1e-9)

	// receiver is unchanged
	suite.Equal(100.0, s.State().LastPrice)
	suite.Equal(0.5, s.State().Position)
}

func (suite *PileTestSuite) TestOnTradeWithoutAccumulation() {
	s := suite.initPile(0)

	res, next, err := s.OnTrade(suite.minfo, 121, 5.0/11-0.5, 5.0/11, 50)
	suite.Require().NoError(err)
	suite.Equal(0.0, res.NormAccum)
	suite.InDelta(121.0, res.NeutralPrice, 1e-9)
	suite.InDelta(5.0/11, next.(Pile).State().Position, 1e-12)
	suite.InDelta(0.0, next.(Pile).State().BudgetError, 1e-9)
}

func (suite *PileTestSuite) TestOnTradeInvalid() {
	_, next, err := NewPile(DefaultPileConfig()).OnTrade(suite.minfo, 100, 1, 1, 0)
	suite.Error(err)
	suite.Nil(next)
	suite.True(errors.IsIllegalStateError(err))
}

func (suite *PileTestSuite) TestCalcSafeRange() {
	s := suite.initPile(0)

	tests := []struct {
		name     string
		assets   float64
		currency float64
		min      float64
		max      float64
	}{
		{"funded", 0.5, 50, 0, math.Inf(1)},
		{"short of currency", 0.5, 20, 36, math.Inf(1)},
		{"short of assets", 0.3, 50, 0, 625},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			r := s.CalcSafeRange(suite.minfo, tc.assets, tc.currency)
			suite.InDelta(tc.min, r.Min, 1e-9)

			if math.IsInf(tc.max, 1) {
				suite.True(math.IsInf(r.Max, 1))
			} else {
				suite.InDelta(tc.max, r.Max, 1e-9)
			}
		})
	}
}

func (suite *PileTestSuite) TestProjections() {
	s := suite.initPile(0)

	suite.InDelta(100.0, s.GetCenterPrice(0, 0.5), 1e-9)
	suite.InDelta(100.0, s.GetBudgetInfo().Total, 1e-9)
	suite.InDelta(0.5, s.GetBudgetInfo().Assets, 1e-12)
	suite.InDelta(50.0, s.CalcCurrencyAllocation(100), 1e-9)

	chart := s.CalcChart(81)
	suite.True(chart.Valid)
	suite.InDelta(5.0/9, chart.Position, 1e-12)
	suite.InDelta(90.0, chart.Budget, 1e-9)

	// projections have no side effects
	suite.Equal(s.GetBudgetInfo(), s.GetBudgetInfo())
	suite.Equal(s.GetEquilibrium(0.4), s.GetEquilibrium(0.4))
	suite.Equal(s.ExportState(), s.ExportState())
}

func (suite *PileTestSuite) TestCalcInitialPosition() {
	s := NewPile(PileConfig{Ratio: 0.5, Accum: 0})

	suite.InDelta(5.0, s.CalcInitialPosition(types.MarketInfo{}, 100, 0, 1000), 1e-12)
	suite.InDelta(6.0, s.CalcInitialPosition(types.MarketInfo{}, 100, 2, 1000), 1e-12)
	suite.InDelta(5.0, s.CalcInitialPosition(types.MarketInfo{Leverage: true}, 100, 2, 1000), 1e-12)
}

func (suite *PileTestSuite) TestStateRoundTrip() {
	s := NewPileWithState(DefaultPileConfig(), PileState{
		Ratio:       0.37,
		Kmult:       12.5,
		LastPrice:   math.Inf(1),
		Budget:      1234.5,
		Position:    0.75,
		BudgetError: -0.001,
	})

	restored, err := NewPile(DefaultPileConfig()).ImportState(s.ExportState(), suite.minfo)
	suite.Require().NoError(err)
	suite.Equal(s.State(), restored.(Pile).State())
}

func (suite *PileTestSuite) TestImportStateBadField() {
	_, err := NewPile(DefaultPileConfig()).ImportState(types.StateValue{"ratio": "half"}, suite.minfo)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStateImport))
}

func (suite *PileTestSuite) TestOnIdleAndReset() {
	fresh := NewPile(DefaultPileConfig())

	s, err := fresh.OnIdle(suite.minfo, types.Ticker{Last: 100}, 0.5, 50)
	suite.Require().NoError(err)
	suite.True(s.IsValid())

	same, err := s.OnIdle(suite.minfo, types.Ticker{Last: 200}, 1, 1)
	suite.Require().NoError(err)
	suite.Equal(s, same)

	_, err = fresh.OnIdle(suite.minfo, types.Ticker{Last: 100}, 0, 0)
	suite.True(errors.IsValidationError(err))

	reset := s.Reset()
	suite.False(reset.IsValid())
	suite.Equal(DefaultPileConfig(), reset.(Pile).Config())
}

func (suite *PileTestSuite) TestDumpStatePretty() {
	s := suite.initPile(0)

	d := s.DumpStatePretty(suite.minfo)
	v, ok := d.Get("Last price")
	suite.True(ok)
	suite.Equal(100.0, v)

	v, _ = d.Get("Ratio")
	suite.InDelta(50.0, v, 1e-9)

	inverted := s.DumpStatePretty(types.MarketInfo{InvertPrice: true})
	v, _ = inverted.Get("Last price")
	suite.InDelta(0.01, v, 1e-12)

	v, _ = inverted.Get("Position")
	suite.Equal(-0.5, v)
}
