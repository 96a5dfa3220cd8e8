package main

import (
	"github.com/dusk-indust/analyst/internal/config"
	"github.com/dusk-indust/analyst/internal/history"
	"github.com/dusk-indust/analyst/internal/logging"
	"github.com/dusk-indust/analyst/internal/mock"
	"github.com/dusk-indust/analyst/internal/orchestrator"
	"go.uber.org/zap"
)

// app is the wired local stack: logger, run history and pipeline.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	history *history.Store
	pipe    *orchestrator.Pipeline
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		logger.Debug("config loaded", zap.String("path", cfg.Path))
	}

	store := history.NewStore(cfg.History.Limit)
	pipe := orchestrator.NewPipeline(
		mock.NewExecutor(latencies(cfg.Latency), logger),
		orchestrator.WithLogger(logger),
		orchestrator.WithRecorder(store),
	)
	return &app{cfg: cfg, logger: logger, history: store, pipe: pipe}, nil
}

// Close cancels any in-flight run and flushes the logger.
func (a *app) Close() {
	a.pipe.Close()
	_ = a.logger.Sync()
}

func latencies(c config.LatencyConfig) mock.Latencies {
	conv := func(l config.Latency) mock.Latency {
		return mock.Latency{Min: l.Min.D(), Jitter: l.Jitter.D()}
	}
	return mock.Latencies{
		Intent: conv(c.Intent),
		Query:  conv(c.Query),
		Fetch:  conv(c.Fetch),
	}
}
