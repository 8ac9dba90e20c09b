package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/collab/gcal"
	"github.com/jonathan/hiring-engine/internal/collab/gmail"
	"github.com/jonathan/hiring-engine/internal/config"
	"github.com/jonathan/hiring-engine/internal/db"
	"github.com/jonathan/hiring-engine/internal/db/sqlite"
	"github.com/jonathan/hiring-engine/internal/hiring"
	"github.com/jonathan/hiring-engine/internal/offerletter"
	"github.com/jonathan/hiring-engine/internal/ranking"
	"github.com/jonathan/hiring-engine/internal/roster"
	"github.com/jonathan/hiring-engine/internal/store"
)

// newLogger returns the process logger; verbose enables debug records.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		applied, err := pg.Migrate(ctx)
		if err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info("postgres store ready", "migrations_applied", applied)
		return pg, pg.Close, nil
	case config.StoreSQLite:
		lite, err := sqlite.NewStore(cfg.SQLiteDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite store ready", "path", lite.Path())
		return lite, func() { _ = lite.Close() }, nil
	case config.StoreMemory, "":
		logger.Warn("using in-memory store; records are lost on exit")
		return store.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// buildEngine wires the collaborators chosen by cfg around st. Without
// Google credentials, calendar events and notifications are only logged.
func buildEngine(ctx context.Context, cfg config.Config, st store.Store, logger *slog.Logger) (*hiring.Engine, error) {
	hc := hiring.Config{
		Store:       st,
		FitScores:   collab.StoredFitScores{},
		Calendar:    collab.LogCalendar{Logger: logger},
		Notifier:    collab.LogNotifier{Logger: logger},
		Letters:     &offerletter.Generator{},
		HR:          ranking.Contact{Name: cfg.HRName, Email: cfg.HREmail},
		CompanyName: cfg.CompanyName,
		Logger:      logger,
		Timeout:     cfg.Timeout(collab.DefaultTimeout),
	}

	if cfg.GoogleCredentialsFile != "" {
		cal, err := gcal.New(ctx, cfg.GoogleCredentialsFile, cfg.CalendarID)
		if err != nil {
			return nil, fmt.Errorf("failed to create calendar client: %w", err)
		}
		hc.Calendar = cal
		hc.Availability = cal

		if cfg.MailSender != "" {
			mailer, err := gmail.New(ctx, cfg.GoogleCredentialsFile, cfg.MailSender, cfg.CompanyName)
			if err != nil {
				return nil, fmt.Errorf("failed to create mail client: %w", err)
			}
			hc.Notifier = mailer
		}
	}

	if cfg.OfferPDF {
		hc.Letters.Printer = offerletter.ChromePrinter{Verbose: cfg.Verbose}
	}

	if cfg.RosterFile != "" {
		r, err := roster.Load(cfg.RosterFile)
		if err != nil {
			return nil, err
		}
		hc.Roster = r
	}

	return hiring.New(hc)
}

// openEngine loads the config and returns a ready engine with its closer.
func openEngine(ctx context.Context) (*hiring.Engine, config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	logger := newLogger(cfg.Verbose)

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, cfg, nil, err
	}
	engine, err := buildEngine(ctx, cfg, st, logger)
	if err != nil {
		closeStore()
		return nil, cfg, nil, err
	}
	return engine, cfg, closeStore, nil
}
