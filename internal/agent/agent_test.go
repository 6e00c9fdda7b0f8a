package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-sizing/internal/codec"
	"github.com/rxtech-lab/argo-sizing/internal/journal"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/metrics"
	"github.com/rxtech-lab/argo-sizing/internal/storage"
	"github.com/rxtech-lab/argo-sizing/internal/strategy"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/internal/version"
	"github.com/rxtech-lab/argo-sizing/mocks"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AgentTestSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	store   *storage.MemoryStore
	metrics *metrics.Metrics
	cfg     Config
	now     time.Time
}

func TestAgentSuite(t *testing.T) {
	suite.Run(t, new(AgentTestSuite))
}

func (suite *AgentTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.ctrl = gomock.NewController(suite.T())
	suite.store = storage.NewMemoryStore()
	suite.metrics = metrics.New(prometheus.NewRegistry())
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.cfg = Config{
		BotID:    "bot-1",
		Strategy: strategy.Config{Type: strategy.IDPile}, //nolint:exhaustruct
		Market:   types.MarketInfo{MinSize: 0.01, AssetStep: 0.0001}, //nolint:exhaustruct
		Store:    storage.Config{Driver: storage.DriverMemory}, //nolint:exhaustruct
		LogLevel: "info",
	}
}

func (suite *AgentTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *AgentTestSuite) newAgent(store storage.StateStore, j optional.Option[journal.Journal]) *Agent {
	a, err := New(suite.cfg, strategy.NewPile(strategy.DefaultPileConfig()), Deps{
		Store:   store,
		Journal: j,
		Metrics: suite.metrics,
		Logger:  logger.NewNopLogger(),
		Now:     func() time.Time { return suite.now },
	})
	suite.Require().NoError(err)

	return a
}

// initialized returns an agent holding a pile fitted at 100 with 0.5 assets and 50 currency.
func (suite *AgentTestSuite) initialized(j optional.Option[journal.Journal]) *Agent {
	a := suite.newAgent(suite.store, j)

	s, err := a.OnIdle(suite.ctx, types.Ticker{Last: 100}, 0.5, 50)
	suite.Require().NoError(err)
	suite.Require().True(s.IsValid())

	return a
}

func (suite *AgentTestSuite) TestNew() {
	pile := strategy.NewPile(strategy.DefaultPileConfig())

	tests := []struct {
		name  string
		cfg   Config
		s     strategy.Strategy
		store storage.StateStore
	}{
		{"missing strategy", suite.cfg, nil, suite.store},
		{"missing store", suite.cfg, pile, nil},
		{"missing bot id", Config{}, pile, suite.store}, //nolint:exhaustruct
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			a, err := New(tc.cfg, tc.s, Deps{Store: tc.store}) //nolint:exhaustruct
			suite.Error(err)
			suite.Nil(a)
			suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
		})
	}

	a, err := New(suite.cfg, pile, Deps{Store: suite.store}) //nolint:exhaustruct
	suite.Require().NoError(err)
	suite.False(a.Strategy().IsValid())
	suite.Equal("bot-1", a.Config().BotID)
}

func (suite *AgentTestSuite) TestOnIdleInitializes() {
	a := suite.newAgent(suite.store, optional.None[journal.Journal]())
	sub := a.Subscribe()

	s, err := a.OnIdle(suite.ctx, types.Ticker{Last: 100}, 0.5, 50)
	suite.Require().NoError(err)
	suite.True(s.IsValid())
	suite.Equal(s, a.Strategy())

	rec, err := suite.store.Load(suite.ctx, "bot-1")
	suite.Require().NoError(err)
	suite.Equal(string(strategy.IDPile), rec.StrategyID)
	suite.Equal(version.StateSchemaVersion, rec.Version)
	suite.True(suite.now.Equal(rec.UpdatedAt))

	ev := <-sub.Events()
	suite.Equal(EventInit, ev.Type)
	suite.True(ev.Valid)
	suite.Equal(100.0, ev.State["lastp"])

	suite.Equal(1.0, testutil.ToFloat64(suite.metrics.Reinitializations.WithLabelValues("bot-1", "pile")))
	suite.Equal(1.0, testutil.ToFloat64(suite.metrics.StrategyValid.WithLabelValues("bot-1", "pile")))

	// a valid strategy is left alone
	same, err := a.OnIdle(suite.ctx, types.Ticker{Last: 200}, 1, 1)
	suite.Require().NoError(err)
	suite.Equal(s, same)
	suite.Equal(1.0, testutil.ToFloat64(suite.metrics.Reinitializations.WithLabelValues("bot-1", "pile")))
}

func (suite *AgentTestSuite) TestOnIdleRejectsHoldings() {
	store := mocks.NewMockStateStore(suite.ctrl)
	a := suite.newAgent(store, optional.None[journal.Journal]())

	s, err := a.OnIdle(suite.ctx, types.Ticker{Last: 100}, 0, 100)
	suite.Error(err)
	suite.Nil(s)
	suite.True(errors.IsValidationError(err))
	suite.False(a.Strategy().IsValid())
}

func (suite *AgentTestSuite) TestPropose() {
	a := suite.initialized(optional.None[journal.Journal]())

	buy, sell := a.Propose(100, 81, 121, 0.5, 50, false)
	suite.InDelta(5.0/9-0.5, buy.Size, 1e-9)
	suite.InDelta(5.0/11-0.5, sell.Size, 1e-9)

	suite.Equal(1.0, testutil.ToFloat64(suite.metrics.OrdersProposed.WithLabelValues("bot-1", "pile", "BUY")))
	suite.Equal(1.0, testutil.ToFloat64(suite.metrics.OrdersProposed.WithLabelValues("bot-1", "pile", "SELL")))

	// proposing has no side effects on the strategy
	before := a.Strategy().ExportState()
	a.Propose(100, 50, 150, 0.5, 50, false)
	suite.Equal(before, a.Strategy().ExportState())
}

func (suite *AgentTestSuite) TestOnFill() {
	j := mocks.NewMockJournal(suite.ctrl)
	a := suite.initialized(optional.Some[journal.Journal](j))
	sub := a.Subscribe()

	size := 5.0/9 - 0.5
	fill := types.Fill{ID: "fill-1", Price: 81, Size: size} //nolint:exhaustruct

	j.EXPECT().Record(gomock.Any()).DoAndReturn(func(e journal.Entry) error {
		suite.Equal("fill-1", e.ID)
		suite.Equal("bot-1", e.BotID)
		suite.Equal("pile", e.StrategyID)
		suite.Equal(81.0, e.Price)
		suite.True(suite.now.Equal(e.Time))
		suite.False(e.Alert)

		return nil
	})

	res, err := a.OnFill(suite.ctx, fill, 5.0/9, 50-size*81)
	suite.Require().NoError(err)
	suite.InDelta(81.0, res.NeutralPrice, 1e-9)

	st := a.Strategy().(strategy.Pile).State()
	suite.Equal(81.0, st.LastPrice)

	rec, err := suite.store.Load(suite.ctx, "bot-1")
	suite.Require().NoError(err)

	stored, err := codec.Decode(rec.State)
	suite.Require().NoError(err)
	suite.Equal(81.0, stored["lastp"])

	ev := <-sub.Events()
	suite.Equal(EventTrade, ev.Type)
	suite.Require().NotNil(ev.Fill)
	suite.Equal("fill-1", ev.Fill.ID)
	suite.Require().NotNil(ev.Result)
	suite.Equal(res, *ev.Result)

	suite.Equal(1.0, testutil.ToFloat64(suite.metrics.TradesRecorded.WithLabelValues("bot-1", "pile")))
}

func (suite *AgentTestSuite) TestOnFillInvalidStrategy() {
	store := mocks.NewMockStateStore(suite.ctrl)
	j := mocks.NewMockJournal(suite.ctrl)
	a := suite.newAgent(store, optional.Some[journal.Journal](j))

	_, err := a.OnFill(suite.ctx, types.Fill{Price: 100, Size: 1}, 1, 0) //nolint:exhaustruct
	suite.Error(err)
	suite.True(errors.IsIllegalStateError(err))
}

func (suite *AgentTestSuite) TestOnFillPersistFailure() {
	store := mocks.NewMockStateStore(suite.ctrl)
	a := suite.newAgent(store, optional.None[journal.Journal]())

	gomock.InOrder(
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New(errors.ErrCodeStorageFailed, "disk full")),
	)

	_, err := a.OnIdle(suite.ctx, types.Ticker{Last: 100}, 0.5, 50)
	suite.Require().NoError(err)

	_, err = a.OnFill(suite.ctx, types.Fill{Price: 121, Size: 5.0/11 - 0.5}, 5.0/11, 50) //nolint:exhaustruct
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStorageFailed))

	// the fill happened, so the successor is current
	suite.Equal(121.0, a.Strategy().(strategy.Pile).State().LastPrice)
}

func (suite *AgentTestSuite) TestRestore() {
	first := suite.initialized(optional.None[journal.Journal]())
	_, err := first.OnFill(suite.ctx, types.Fill{Price: 81, Size: 5.0/9 - 0.5}, 5.0/9, 50) //nolint:exhaustruct
	suite.Require().NoError(err)

	second := suite.newAgent(suite.store, optional.None[journal.Journal]())
	sub := second.Subscribe()

	restored, err := second.Restore(suite.ctx)
	suite.Require().NoError(err)
	suite.True(restored)
	suite.True(second.Strategy().IsValid())
	suite.Equal(first.Strategy().ExportState(), second.Strategy().ExportState())

	ev := <-sub.Events()
	suite.Equal(EventRestore, ev.Type)
}

func (suite *AgentTestSuite) TestRestoreNothingStored() {
	a := suite.newAgent(suite.store, optional.None[journal.Journal]())

	restored, err := a.Restore(suite.ctx)
	suite.Require().NoError(err)
	suite.False(restored)
	suite.False(a.Strategy().IsValid())
}

func (suite *AgentTestSuite) TestRestoreRejectsRecord() {
	state, err := codec.Encode(strategy.NewPile(strategy.DefaultPileConfig()).ExportState())
	suite.Require().NoError(err)

	tests := []struct {
		name string
		rec  types.StateRecord
		code errors.ErrorCode
	}{
		{
			"other strategy",
			types.StateRecord{BotID: "bot-1", StrategyID: string(strategy.IDMca), Version: version.StateSchemaVersion, State: state}, //nolint:exhaustruct
			errors.ErrCodeStateImport,
		},
		{
			"newer schema",
			types.StateRecord{BotID: "bot-1", StrategyID: string(strategy.IDPile), Version: "2.0.0", State: state}, //nolint:exhaustruct
			errors.ErrCodeVersionMismatch,
		},
		{
			"corrupt state",
			types.StateRecord{BotID: "bot-1", StrategyID: string(strategy.IDPile), Version: version.StateSchemaVersion, State: []byte("ratio: [")}, //nolint:exhaustruct
			errors.ErrCodeStateEncoding,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			store := mocks.NewMockStateStore(suite.ctrl)
			store.EXPECT().Load(gomock.Any(), "bot-1").Return(tc.rec, nil)

			a := suite.newAgent(store, optional.None[journal.Journal]())

			restored, err := a.Restore(suite.ctx)
			suite.Error(err)
			suite.False(restored)
			suite.True(errors.HasCode(err, tc.code))
			suite.False(a.Strategy().IsValid())
		})
	}
}

func (suite *AgentTestSuite) TestReset() {
	a := suite.initialized(optional.None[journal.Journal]())
	sub := a.Subscribe()

	suite.Require().NoError(a.Reset(suite.ctx))
	suite.False(a.Strategy().IsValid())

	_, err := suite.store.Load(suite.ctx, "bot-1")
	suite.True(errors.IsNotFound(err))

	ev := <-sub.Events()
	suite.Equal(EventReset, ev.Type)
	suite.False(ev.Valid)

	// nothing stored is fine
	suite.NoError(a.Reset(suite.ctx))
}

func (suite *AgentTestSuite) TestUnsubscribe() {
	a := suite.newAgent(suite.store, optional.None[journal.Journal]())
	sub := a.Subscribe()
	a.Unsubscribe(sub)

	_, ok := <-sub.Events()
	suite.False(ok)

	// unsubscribing twice is a no-op
	suite.NotPanics(func() { a.Unsubscribe(sub) })

	other := a.Subscribe()
	a.Close()

	_, ok = <-other.Events()
	suite.False(ok)
}

func (suite *AgentTestSuite) TestConcurrentReaders() {
	a := suite.initialized(optional.None[journal.Journal]())

	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for k := 0; k < 100; k++ {
				s := a.Strategy()
				s.GetBudgetInfo()
				a.Propose(100, 95, 105, 0.5, 50, false)
			}
		}()
	}

	price := 100.0
	for k := 0; k < 20; k++ {
		price *= 0.99
		_, err := a.OnFill(suite.ctx, types.Fill{Price: price, Size: 0}, 0.5, 50) //nolint:exhaustruct
		suite.Require().NoError(err)
	}

	wg.Wait()
	suite.InDelta(price, a.Strategy().(strategy.Pile).State().LastPrice, 1e-9)
}
