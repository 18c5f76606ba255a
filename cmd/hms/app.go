package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clinicware/hms/internal/config"
	"github.com/clinicware/hms/internal/controller"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/observability/metrics"
	"github.com/clinicware/hms/internal/observability/tracing"
	"github.com/clinicware/hms/internal/store"
	"github.com/clinicware/hms/internal/workflow"
	"github.com/clinicware/hms/pkg/breaker"
	"github.com/clinicware/hms/pkg/serial"
)

// app holds everything a subcommand needs: the wrapped store and the
// controllers built on top of it.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	coord    *serial.Coordinator
	tracing  *tracing.Provider
	store    store.Store
	metrics  *metrics.Metrics
	breakers *breaker.Manager

	journal   *journal.Journal
	engine    *workflow.Engine
	accounts  *controller.Accounts
	inventory *controller.Inventory
	pharmacy  *controller.Pharmacy
	billing   *controller.Billing
	records   *controller.MedicalRecords
	feedback  *controller.Feedback
	resets    *controller.PasswordResets
}

// newApp loads configuration and wires the full stack: base store, circuit
// breakers, single-writer coordinator, metrics, journal, workflow engine
// and controllers.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}

	var provider *tracing.Provider
	if cfg.TracingEnabled {
		provider, err = tracing.Init(ctx, tracing.DefaultConfig("hms"))
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	base, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	coord := serial.New(serial.Config{QueueSize: cfg.QueueSize, ShutdownTimeout: serial.DefaultConfig().ShutdownTimeout}, logger)
	coord.Start()

	breakers := breaker.NewManager(logger)
	m := metrics.New(prometheus.NewRegistry())
	wrapped := metrics.InstrumentStore(
		serial.WrapStore(
			breaker.WrapStore(base, breakers),
			coord),
		m)

	var jrnl *journal.Journal
	if cfg.JournalEnabled {
		jrnl = journal.New(wrapped.Table(store.TableJournal), logger)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		coord:    coord,
		tracing:  provider,
		store:    wrapped,
		metrics:  m,
		breakers: breakers,
		journal:  jrnl,
		engine:   workflow.NewEngine(wrapped, jrnl, m, logger),
	}
	a.accounts = controller.NewAccounts(wrapped, jrnl, logger)
	a.inventory = controller.NewInventory(wrapped, jrnl, m, logger)
	a.pharmacy = controller.NewPharmacy(wrapped, a.inventory, jrnl, m, logger)
	a.billing = controller.NewBilling(wrapped, jrnl, logger)
	a.records = controller.NewMedicalRecords(wrapped, jrnl, logger)
	a.feedback = controller.NewFeedback(wrapped, jrnl, logger)
	a.resets = controller.NewPasswordResets(wrapped, a.accounts, jrnl, logger)
	return a, nil
}

// close drains pending mutations and releases the store.
func (a *app) close(ctx context.Context) {
	if err := a.coord.Stop(); err != nil {
		a.logger.Warn("coordinator stop failed", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", zap.Error(err))
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemStore(), nil
	case config.BackendBolt:
		return store.OpenBoltStore(filepath.Join(cfg.DataDir, "hms.db"), logger)
	default:
		return store.NewFileStore(afero.NewOsFs(), cfg.DataDir, logger)
	}
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Environment == "production" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", cfg.LogLevel, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// withApp wraps a subcommand body with app setup and teardown.
func withApp(fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)
		return fn(ctx, a)
	}
}
