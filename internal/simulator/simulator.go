// Package simulator replays a price series against an agent, standing in for
// the exchange: it places the agent's orders as limit orders around each
// close, fills them when a later bar crosses them and feeds the fills back.
package simulator

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sizing/internal/agent"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/simulator/commission_fee"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

// OnTickCallback is called after every replayed bar.
type OnTickCallback func(tick int)

type pendingOrder struct {
	id    string
	side  types.PurchaseType
	price float64
	// size is the absolute quantity. Zero for alert-only orders.
	size  float64
	alert bool
}

// crosses reports whether bar trades through the order price.
func (o pendingOrder) crosses(bar types.MarketData) bool {
	if o.side == types.PurchaseTypeBuy {
		return bar.Low <= o.price
	}

	return bar.High >= o.price
}

// Simulator drives one agent over a price series.
type Simulator struct {
	cfg      Config
	agent    *agent.Agent
	wallet   *Wallet
	log      *logger.Logger
	pending  []pendingOrder
	rejected bool
}

func New(cfg Config, a *agent.Agent, log *logger.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if a == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "agent is required")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	commission := commission_fee.GetCommissionFeeHandler(cfg.Broker, cfg.CommissionRate)

	return &Simulator{
		cfg:      cfg,
		agent:    a,
		wallet:   NewWallet(cfg.InitialAssets, cfg.InitialCurrency, commission, a.Config().Market.AssetStep),
		log:      log,
		pending:  nil,
		rejected: false,
	}, nil
}

// Wallet returns the paper wallet.
func (s *Simulator) Wallet() *Wallet {
	return s.wallet
}

// Run replays bars until the series ends, ctx is done or the agent fails.
func (s *Simulator) Run(ctx context.Context, bars func(yield func(types.MarketData, error) bool), onTick optional.Option[OnTickCallback]) (Summary, error) {
	summary := Summary{
		RunID:      uuid.New().String(),
		BotID:      s.agent.Config().BotID,
		StrategyID: string(s.agent.Strategy().ID()),
		StartedAt:  time.Now().UTC(),
	}

	peak := 0.0

	s.log.Info("Starting replay", zap.String("run_id", summary.RunID), zap.String("bot_id", summary.BotID))

	for bar, err := range bars {
		if err != nil {
			return summary, err
		}

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if summary.Ticks == 0 {
			summary.FirstPrice = bar.Close
			summary.StartEquity = s.wallet.Equity(bar.Close)
		}

		summary.Ticks++
		summary.LastPrice = bar.Close

		if err := s.fillPending(ctx, bar, &summary); err != nil {
			return summary, err
		}

		if err := s.tick(ctx, bar, &summary); err != nil {
			return summary, err
		}

		equity := s.wallet.Equity(bar.Close)
		peak = math.Max(peak, equity)

		if peak > 0 {
			summary.MaxDrawdown = math.Max(summary.MaxDrawdown, (peak-equity)/peak)
		}

		if onTick.IsSome() {
			onTick.Unwrap()(summary.Ticks)
		}
	}

	if summary.Ticks == 0 {
		return summary, errors.New(errors.ErrCodeNoMarketData, "no market data to replay")
	}

	summary.Fees = s.wallet.Fees()
	summary.FinalAssets = s.wallet.Assets()
	summary.FinalCurrency = s.wallet.Currency()
	summary.FinalEquity = s.wallet.Equity(summary.LastPrice)
	summary.HoldEquity = s.cfg.InitialAssets*summary.LastPrice + s.cfg.InitialCurrency

	s.log.Info("Replay finished",
		zap.String("run_id", summary.RunID),
		zap.Int("ticks", summary.Ticks),
		zap.Int("trades", summary.Trades),
		zap.Int("alerts", summary.Alerts),
		zap.Float64("norm_profit", summary.NormProfit),
		zap.Float64("final_equity", summary.FinalEquity),
	)

	return summary, nil
}

// tick initializes the strategy if needed and places the next probes.
func (s *Simulator) tick(ctx context.Context, bar types.MarketData, summary *Summary) error {
	ticker := types.Ticker{Last: bar.Close, Time: bar.Time}

	if _, err := s.agent.OnIdle(ctx, ticker, s.wallet.Assets(), s.wallet.Currency()); err != nil {
		if !errors.IsValidationError(err) {
			return err
		}

		summary.IdleFailures++

		return nil
	}

	buyPrice := bar.Close * (1 - s.cfg.Spread)
	sellPrice := bar.Close * (1 + s.cfg.Spread)

	buy, sell := s.agent.Propose(bar.Close, buyPrice, sellPrice, s.wallet.Assets(), s.wallet.Currency(), s.rejected)
	s.rejected = false

	s.place(buy, buyPrice, types.PurchaseTypeBuy)
	s.place(sell, sellPrice, types.PurchaseTypeSell)

	return nil
}

// place queues order. Empty orders are dropped; alert-only orders keep the probe side.
func (s *Simulator) place(order types.OrderData, probePrice float64, probeSide types.PurchaseType) {
	if !order.HasOrder() && !order.Alert {
		return
	}

	price := probePrice
	if order.Price > 0 {
		price = order.Price
	}

	side := probeSide
	if order.HasOrder() {
		side = order.Side()
	}

	s.pending = append(s.pending, pendingOrder{
		id:    uuid.New().String(),
		side:  side,
		price: price,
		size:  math.Abs(order.Size),
		alert: order.Alert,
	})
}

// fillPending executes at most one crossed order, the one nearest to the
// open, and cancels the rest.
func (s *Simulator) fillPending(ctx context.Context, bar types.MarketData, summary *Summary) error {
	pending := s.pending
	s.pending = nil

	var (
		best  pendingOrder
		found bool
	)

	for _, o := range pending {
		if !o.crosses(bar) {
			continue
		}

		if !found || math.Abs(o.price-bar.Open) < math.Abs(best.price-bar.Open) {
			best = o
			found = true
		}
	}

	if !found {
		return nil
	}

	executed := 0.0

	switch {
	case best.size == 0:
	case best.side == types.PurchaseTypeBuy:
		executed = s.wallet.Buy(best.price, best.size)
	default:
		executed = -s.wallet.Sell(best.price, best.size)
	}

	if best.size > 0 && executed == 0 {
		s.rejected = true
		summary.Rejected++

		s.log.Debug("Order rejected by wallet",
			zap.String("order_id", best.id),
			zap.String("side", string(best.side)),
			zap.Float64("price", best.price),
			zap.Float64("size", best.size),
		)

		return nil
	}

	fill := types.Fill{ID: best.id, Price: best.price, Size: executed, Time: bar.Time}

	res, err := s.agent.OnFill(ctx, fill, s.wallet.Assets(), s.wallet.Currency())
	if err != nil {
		return err
	}

	if executed == 0 {
		summary.Alerts++
	} else {
		summary.Trades++
	}

	summary.NormProfit += res.NormProfit
	summary.NormAccum += res.NormAccum

	return nil
}
