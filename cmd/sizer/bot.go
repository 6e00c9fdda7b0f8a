package main

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-sizing/internal/agent"
	"github.com/rxtech-lab/argo-sizing/internal/journal"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/metrics"
	"github.com/rxtech-lab/argo-sizing/internal/storage"
	"github.com/rxtech-lab/argo-sizing/internal/strategy"
	"go.uber.org/zap"
)

// bot bundles an agent with the resources it owns.
type bot struct {
	cfg      agent.Config
	log      *logger.Logger
	registry *prometheus.Registry
	store    storage.StateStore
	journal  optional.Option[*journal.DuckDBJournal]
	agent    *agent.Agent
}

// openBot loads the configuration at path, opens its store and restores the stored state.
// A journal is attached when withJournal is set.
func openBot(ctx context.Context, path string, withJournal bool) (*bot, error) {
	cfg, err := agent.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	s, err := strategy.NewDefaultRegistry().Create(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Store, log)
	if err != nil {
		return nil, err
	}

	b := &bot{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
		store:    store,
		journal:  optional.None[*journal.DuckDBJournal](),
		agent:    nil,
	}

	deps := agent.Deps{
		Store:   store,
		Journal: optional.None[journal.Journal](),
		Metrics: metrics.New(b.registry),
		Logger:  log,
		Now:     nil,
	}

	if withJournal {
		j, err := journal.NewDuckDBJournal(log)
		if err != nil {
			b.close()

			return nil, err
		}

		b.journal = optional.Some(j)
		deps.Journal = optional.Some[journal.Journal](j)
	}

	b.agent, err = agent.New(cfg, s, deps)
	if err != nil {
		b.close()

		return nil, err
	}

	restored, err := b.agent.Restore(ctx)
	if err != nil {
		b.close()

		return nil, err
	}

	log.Info("Bot ready",
		zap.String("bot_id", cfg.BotID),
		zap.String("strategy", string(s.ID())),
		zap.Bool("restored", restored),
	)

	return b, nil
}

func (b *bot) close() {
	if b.agent != nil {
		b.agent.Close()
	}

	if b.journal.IsSome() {
		if err := b.journal.Unwrap().Close(); err != nil {
			b.log.Warn("Failed to close journal", zap.Error(err))
		}
	}

	if err := b.store.Close(); err != nil {
		b.log.Warn("Failed to close state store", zap.Error(err))
	}

	_ = b.log.Sync()
}
