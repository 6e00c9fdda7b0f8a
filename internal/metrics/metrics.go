// Package metrics provides Prometheus metrics for the sizing agent.
package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rxtech-lab/argo-sizing/internal/types"
)

const namespace = "argo_sizing"

// Metrics holds all Prometheus metrics for one process. Every series is
// labeled by bot and strategy so several agents can share a registry.
type Metrics struct {
	// Order metrics
	OrdersProposed *prometheus.CounterVec
	AlertsRaised   *prometheus.CounterVec

	// Trade metrics
	TradesRecorded    *prometheus.CounterVec
	NormProfitTotal   *prometheus.CounterVec
	NormAccumTotal    *prometheus.CounterVec
	Reinitializations *prometheus.CounterVec

	// State metrics
	StrategyValid *prometheus.GaugeVec
	Budget        *prometheus.GaugeVec
	BudgetAssets  *prometheus.GaugeVec
}

// New creates a Metrics instance registered on reg.
// A nil reg creates unregistered collectors, which is what tests use.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"bot_id", "strategy"}

	return &Metrics{
		OrdersProposed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "proposed_total",
			Help:      "Total number of non-empty orders proposed by side",
		}, []string{"bot_id", "strategy", "side"}),
		AlertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "alerts_total",
			Help:      "Total number of alert-only proposals",
		}, labels),

		TradesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "recorded_total",
			Help:      "Total number of fills recorded by the strategy",
		}, labels),
		NormProfitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "norm_profit_total",
			Help:      "Sum of positive normalized profit reported by the strategy",
		}, labels),
		NormAccumTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "norm_accum_total",
			Help:      "Sum of accumulated asset volume reported by the strategy",
		}, labels),
		Reinitializations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "reinitializations_total",
			Help:      "Total number of times an invalid strategy was re-initialized",
		}, labels),

		StrategyValid: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "valid",
			Help:      "1 when the current strategy state is valid",
		}, labels),
		Budget: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "budget",
			Help:      "Current budget projected by the strategy",
		}, labels),
		BudgetAssets: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "budget_assets",
			Help:      "Asset position projected by the strategy",
		}, labels),
	}
}

// RecordOrder counts a proposal. Empty orders are ignored.
func (m *Metrics) RecordOrder(botID, strategyID string, order types.OrderData) {
	if m == nil {
		return
	}

	if order.Alert && order.Size == 0 {
		m.AlertsRaised.WithLabelValues(botID, strategyID).Inc()

		return
	}

	if order.HasOrder() {
		m.OrdersProposed.WithLabelValues(botID, strategyID, string(order.Side())).Inc()
	}
}

// RecordTrade counts a fill and its report. Counters only grow, so losses
// and negative accumulation are not added.
func (m *Metrics) RecordTrade(botID, strategyID string, res types.TradeResult) {
	if m == nil {
		return
	}

	m.TradesRecorded.WithLabelValues(botID, strategyID).Inc()

	if res.NormProfit > 0 && !math.IsInf(res.NormProfit, 0) {
		m.NormProfitTotal.WithLabelValues(botID, strategyID).Add(res.NormProfit)
	}

	if res.NormAccum > 0 && !math.IsInf(res.NormAccum, 0) {
		m.NormAccumTotal.WithLabelValues(botID, strategyID).Add(res.NormAccum)
	}
}

// RecordReinit counts a re-initialization.
func (m *Metrics) RecordReinit(botID, strategyID string) {
	if m == nil {
		return
	}

	m.Reinitializations.WithLabelValues(botID, strategyID).Inc()
}

// UpdateState sets the state gauges from the strategy projections.
func (m *Metrics) UpdateState(botID, strategyID string, valid bool, budget types.BudgetInfo) {
	if m == nil {
		return
	}

	v := 0.0
	if valid {
		v = 1
	}

	m.StrategyValid.WithLabelValues(botID, strategyID).Set(v)
	m.Budget.WithLabelValues(botID, strategyID).Set(budget.Total)
	m.BudgetAssets.WithLabelValues(botID, strategyID).Set(budget.Assets)
}
