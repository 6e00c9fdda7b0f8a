// Package agent owns the current strategy of one bot. It feeds market events
// to the strategy, swaps in each successor value, persists the exported state
// and reports transitions to the journal, metrics and event subscribers.
package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/codec"
	"github.com/rxtech-lab/argo-sizing/internal/journal"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/metrics"
	"github.com/rxtech-lab/argo-sizing/internal/storage"
	"github.com/rxtech-lab/argo-sizing/internal/strategy"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/internal/version"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

// Deps are the collaborators of an Agent.
type Deps struct {
	Store   storage.StateStore
	Journal optional.Option[journal.Journal]
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Logger may be nil, in which case nothing is logged.
	Logger *logger.Logger
	// Now may be nil, in which case time.Now is used.
	Now func() time.Time
}

type current struct {
	strategy strategy.Strategy
}

// Agent drives one strategy.
//
// Writers (OnIdle, OnFill, Reset, Restore) are serialized. Strategy and
// Propose read the current value without locking.
type Agent struct {
	cfg     Config
	store   storage.StateStore
	journal optional.Option[journal.Journal]
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time

	cur    atomic.Pointer[current]
	mu     sync.Mutex
	events *broadcaster
}

// New creates an agent around an unvalidated or restored strategy.
func New(cfg Config, s strategy.Strategy, deps Deps) (*Agent, error) {
	if s == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "strategy is required")
	}

	if deps.Store == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "state store is required")
	}

	if cfg.BotID == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "bot id is required")
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	a := &Agent{
		cfg:     cfg,
		store:   deps.Store,
		journal: deps.Journal,
		metrics: deps.Metrics,
		log:     log,
		now:     now,
		events:  newBroadcaster(),
	}
	a.cur.Store(&current{strategy: s})
	a.updateGauges(s)

	return a, nil
}

// Config returns the agent config.
func (a *Agent) Config() Config {
	return a.cfg
}

// Strategy returns the current strategy value.
func (a *Agent) Strategy() strategy.Strategy {
	return a.cur.Load().strategy
}

// Subscribe registers a new event subscriber.
func (a *Agent) Subscribe() *Subscription {
	return a.events.subscribe()
}

// Unsubscribe removes sub and closes its channel.
func (a *Agent) Unsubscribe(sub *Subscription) {
	a.events.unsubscribe(sub)
}

// Close closes every subscription.
func (a *Agent) Close() {
	a.events.close()
}

// Restore loads the stored state of the bot into the current strategy.
// It returns false when no state is stored.
func (a *Agent) Restore(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.store.Load(ctx, a.cfg.BotID)
	if err != nil {
		if errors.IsNotFound(err) {
			a.log.Info("No stored state, starting fresh", zap.String("bot_id", a.cfg.BotID))

			return false, nil
		}

		return false, err
	}

	cur := a.Strategy()

	if rec.StrategyID != string(cur.ID()) {
		return false, errors.Newf(errors.ErrCodeStateImport, "stored state of bot %s belongs to strategy %s, not %s",
			a.cfg.BotID, rec.StrategyID, cur.ID())
	}

	if err := version.CheckVersionCompatibility(version.StateSchemaVersion, rec.Version); err != nil {
		return false, err
	}

	src, err := codec.Decode(rec.State)
	if err != nil {
		return false, err
	}

	next, err := cur.ImportState(src, a.cfg.Market)
	if err != nil {
		return false, err
	}

	a.swap(next)
	a.log.Info("Restored strategy state",
		zap.String("bot_id", a.cfg.BotID),
		zap.String("strategy", string(next.ID())),
		zap.String("version", rec.Version),
		zap.Time("updated_at", rec.UpdatedAt),
		zap.Bool("valid", next.IsValid()),
	)
	a.publish(EventRestore, next, nil, nil)

	return true, nil
}

// OnIdle gives the strategy a chance to initialize from the current holdings.
// A successful re-initialization is persisted and counted.
func (a *Agent) OnIdle(ctx context.Context, ticker types.Ticker, assets, currency float64) (strategy.Strategy, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.Strategy()
	if cur.IsValid() {
		return cur, nil
	}

	next, err := cur.OnIdle(a.cfg.Market, ticker, assets, currency)
	if err != nil {
		a.log.Warn("Strategy initialization failed",
			zap.String("bot_id", a.cfg.BotID),
			zap.Float64("price", ticker.Last),
			zap.Float64("assets", assets),
			zap.Float64("currency", currency),
			zap.Error(err),
		)

		return nil, err
	}

	a.swap(next)

	if !next.IsValid() {
		return next, nil
	}

	a.metrics.RecordReinit(a.cfg.BotID, string(next.ID()))
	a.log.Info("Strategy initialized",
		zap.String("bot_id", a.cfg.BotID),
		zap.String("strategy", string(next.ID())),
		zap.Float64("price", ticker.Last),
		zap.Float64("assets", assets),
		zap.Float64("currency", currency),
	)
	a.publish(EventInit, next, nil, nil)

	if err := a.persist(ctx, next); err != nil {
		return next, err
	}

	return next, nil
}

// Propose returns the buy and sell orders the current strategy wants at the
// given probe prices. It does not change any state apart from metrics.
func (a *Agent) Propose(curPrice, buyPrice, sellPrice, assets, currency float64, rejected bool) (types.OrderData, types.OrderData) {
	s := a.Strategy()

	buy := s.GetNewOrder(a.cfg.Market, curPrice, buyPrice, 1, assets, currency, rejected)
	sell := s.GetNewOrder(a.cfg.Market, curPrice, sellPrice, -1, assets, currency, rejected)

	a.metrics.RecordOrder(a.cfg.BotID, string(s.ID()), buy)
	a.metrics.RecordOrder(a.cfg.BotID, string(s.ID()), sell)

	a.log.Debug("Proposed orders",
		zap.String("bot_id", a.cfg.BotID),
		zap.Float64("price", curPrice),
		zap.Float64("buy_price", buyPrice),
		zap.Float64("buy_size", buy.Size),
		zap.Bool("buy_alert", buy.Alert),
		zap.Float64("sell_price", sellPrice),
		zap.Float64("sell_size", sell.Size),
		zap.Bool("sell_alert", sell.Alert),
	)

	return buy, sell
}

// OnFill records a fill with the strategy and returns its report. The
// successor becomes current even when persisting or journaling fails.
func (a *Agent) OnFill(ctx context.Context, fill types.Fill, assetsLeft, currencyLeft float64) (types.TradeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.Strategy()

	res, next, err := cur.OnTrade(a.cfg.Market, fill.Price, fill.Size, assetsLeft, currencyLeft)
	if err != nil {
		a.log.Error("Failed to record fill",
			zap.String("bot_id", a.cfg.BotID),
			zap.String("fill_id", fill.ID),
			zap.Float64("price", fill.Price),
			zap.Float64("size", fill.Size),
			zap.Error(err),
		)

		return types.TradeResult{}, err
	}

	if fill.Time.IsZero() {
		fill.Time = a.now()
	}

	a.swap(next)
	a.metrics.RecordTrade(a.cfg.BotID, string(next.ID()), res)
	a.log.Info("Fill recorded",
		zap.String("bot_id", a.cfg.BotID),
		zap.String("fill_id", fill.ID),
		zap.Float64("price", fill.Price),
		zap.Float64("size", fill.Size),
		zap.Float64("assets_left", assetsLeft),
		zap.Float64("currency_left", currencyLeft),
		zap.Float64("norm_profit", res.NormProfit),
		zap.Float64("norm_accum", res.NormAccum),
		zap.Float64("neutral_price", res.NeutralPrice),
	)
	a.publish(EventTrade, next, &fill, &res)

	if err := a.persist(ctx, next); err != nil {
		return res, err
	}

	if a.journal.IsSome() {
		err := a.journal.Unwrap().Record(journal.Entry{
			ID:           fill.ID,
			BotID:        a.cfg.BotID,
			StrategyID:   string(next.ID()),
			Time:         fill.Time,
			Price:        fill.Price,
			Size:         fill.Size,
			NormProfit:   res.NormProfit,
			NormAccum:    res.NormAccum,
			NeutralPrice: res.NeutralPrice,
			Alert:        fill.Size == 0,
		})
		if err != nil {
			a.log.Error("Failed to journal fill", zap.String("fill_id", fill.ID), zap.Error(err))

			return res, err
		}
	}

	return res, nil
}

// Reset replaces the current strategy with a fresh one and deletes the stored state.
func (a *Agent) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.Strategy().Reset()
	a.swap(next)
	a.log.Info("Strategy reset", zap.String("bot_id", a.cfg.BotID))
	a.publish(EventReset, next, nil, nil)

	if err := a.store.Delete(ctx, a.cfg.BotID); err != nil && !errors.IsNotFound(err) {
		return err
	}

	return nil
}

func (a *Agent) swap(next strategy.Strategy) {
	a.cur.Store(&current{strategy: next})
	a.updateGauges(next)
}

func (a *Agent) updateGauges(s strategy.Strategy) {
	a.metrics.UpdateState(a.cfg.BotID, string(s.ID()), s.IsValid(), s.GetBudgetInfo())
}

func (a *Agent) persist(ctx context.Context, s strategy.Strategy) error {
	data, err := codec.Encode(s.ExportState())
	if err != nil {
		return err
	}

	err = a.store.Save(ctx, types.StateRecord{
		BotID:      a.cfg.BotID,
		StrategyID: string(s.ID()),
		Version:    version.StateSchemaVersion,
		State:      data,
		UpdatedAt:  a.now().UTC(),
	})
	if err != nil {
		a.log.Error("Failed to persist strategy state", zap.String("bot_id", a.cfg.BotID), zap.Error(err))

		return err
	}

	a.log.Debug("Persisted strategy state", zap.String("bot_id", a.cfg.BotID), zap.Int("bytes", len(data)))

	return nil
}

func (a *Agent) publish(kind EventType, s strategy.Strategy, fill *types.Fill, res *types.TradeResult) {
	ev := Event{
		Type:       kind,
		BotID:      a.cfg.BotID,
		StrategyID: s.ID(),
		Time:       a.now(),
		Valid:      s.IsValid(),
		Fill:       fill,
		Result:     res,
		State:      codec.ToJSONSafe(s.ExportState()),
	}

	if dropped := a.events.publish(ev); dropped > 0 {
		a.log.Warn("Dropped event for slow subscribers",
			zap.String("type", string(kind)),
			zap.Int("subscribers", dropped),
		)
	}
}
