package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/yishaik/winter-wellness-bot/internal/controllers/management"
	"github.com/yishaik/winter-wellness-bot/internal/controllers/telegram"
	"github.com/yishaik/winter-wellness-bot/internal/history"
	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/state"
	"github.com/yishaik/winter-wellness-bot/internal/weather"
	"github.com/yishaik/winter-wellness-bot/pkg/config"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("could not open state store: %w", err)
	}
	defer store.Close()

	histChain, err := history.NewChainFromConfig(cfg.History)
	if err != nil {
		return fmt.Errorf("could not set up history sources: %w", err)
	}
	defer histChain.Close()

	wx := weather.NewClient(cfg.Weather.APIEndpoint, cfg.Bot.Timezone)

	// Initialize the Telegram bot controller
	bot, err := telegram.NewController(ctx, &wg, cfg, store, histChain, wx, a.logger)
	if err != nil {
		return fmt.Errorf("could not create Telegram controller: %w", err)
	}
	if err := bot.StartController(); err != nil {
		return fmt.Errorf("could not start Telegram controller: %w", err)
	}

	// Initialize the management API controller
	mgmt, err := management.NewController(ctx, &wg, cfg, histChain, a.logger)
	if err != nil {
		return fmt.Errorf("could not create management controller: %w", err)
	}
	if err := mgmt.StartController(); err != nil {
		return fmt.Errorf("could not start management controller: %w", err)
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
