// Command warningd runs the missile-warning agent: it polls the public
// alert feed on a configurable cadence, keeps the active warning set in a
// local store, and serves the popup/settings UI over a local HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/redalert-watch/warningd/internal/alertsource"
	"github.com/redalert-watch/warningd/internal/api"
	"github.com/redalert-watch/warningd/internal/config"
	"github.com/redalert-watch/warningd/internal/controller"
	"github.com/redalert-watch/warningd/internal/dedup"
	"github.com/redalert-watch/warningd/internal/geo"
	"github.com/redalert-watch/warningd/internal/presenter"
	"github.com/redalert-watch/warningd/internal/scheduler"
	"github.com/redalert-watch/warningd/internal/settings"
	"github.com/redalert-watch/warningd/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Agent failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	st, err := store.Open(cfg.StorePath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	settingsService := settings.NewService(st, logger)
	if err := settingsService.Seed(seedDefaults(cfg)); err != nil {
		logger.Error("Failed to seed default settings", zap.Error(err))
	}

	var sensor geo.PreciseProvider
	if cfg.SensorURL != "" {
		sensor = geo.NewHTTPSensor(cfg.SensorURL)
	}
	location := geo.NewCachedProvider(sensor, geo.NewIPLookup(cfg.GeoIPURL, logger), st, logger)

	client := alertsource.NewClient(cfg.AlertAPIURL, cfg.FetchTimeout, logger)

	surface := presenter.NewWebSurface(logger)

	recorder := dedup.New(logger)
	defer recorder.Stop()

	ctrl := controller.New(
		settingsService,
		location,
		client,
		st,
		surface,
		recorder,
		cfg.PopupURL,
		logger,
	)

	sched := scheduler.New(ctrl, settingsService, logger)
	sched.Start()
	defer sched.Stop()

	// Settings writes re-arm the scheduler so cadence changes apply
	// without waiting out the previous period.
	changes, cancelWatch := st.Watch()
	defer cancelWatch()
	go watchSettings(changes, sched)

	handler := api.New(settingsService, ctrl, surface, st, sched, logger)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("API listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Initial check on startup, same as the scheduled cycles.
	go ctrl.RunCycle(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down API server", zap.Error(err))
	}

	return nil
}

func watchSettings(changes <-chan []store.Change, sched *scheduler.Scheduler) {
	for batch := range changes {
		for _, change := range batch {
			if change.Key == settings.KeyPollInterval || change.Key == settings.KeyPollingEnabled {
				sched.Kick()
				break
			}
		}
	}
}

func seedDefaults(cfg *config.Config) settings.Settings {
	defaults := settings.Defaults()
	defaults.PollIntervalMinutes = cfg.DefaultPollIntervalMinutes
	defaults.AlertTimeoutMs = cfg.DefaultAlertTimeoutMs
	defaults.Language = cfg.DefaultLanguage
	return defaults
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.LogFormat == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
