package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clive/sprint-carryover/internal/carryover"
	"github.com/clive/sprint-carryover/internal/config"
	"github.com/clive/sprint-carryover/internal/journal"
	"github.com/clive/sprint-carryover/internal/tracker"
)

const historyFile = "history.db"

// app wires the provider, run journal and runner for one command
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider tracker.Provider
	journal  *journal.Journal
	runner   *carryover.Runner
}

func newApp(cfg *config.Config, logger *zap.Logger, dryRun bool, opts ...carryover.RunnerOption) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w (run `carryover init`)", err)
	}
	provider, err := tracker.NewProviderWithConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, provider: provider}

	// History is optional; a broken journal must not block carry-overs
	if j, err := openJournal(cfg); err != nil {
		logger.Warn("run history disabled", zap.Error(err))
	} else {
		a.journal = j
		opts = append(opts, carryover.WithRecorder(j))
	}

	opts = append(opts, carryover.WithLogger(logger), carryover.WithDryRun(dryRun))
	a.runner = carryover.NewRunner(provider, opts...)
	return a, nil
}

func openJournal(cfg *config.Config) (*journal.Journal, error) {
	path := cfg.HistoryDB
	if path == "" {
		p, err := config.DataPath(historyFile)
		if err != nil {
			return nil, err
		}
		path = p
	}
	return journal.Open(path)
}

func (a *app) newSession(opts ...carryover.Option) *carryover.Session {
	return carryover.NewSession(append([]carryover.Option{carryover.WithAutoLoad(!a.cfg.DisableAutoLoad)}, opts...)...)
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("close journal", zap.Error(err))
		}
	}
}
