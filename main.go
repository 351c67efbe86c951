package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/AIB0I/MyGPT/internal/adapter/llm"
	"github.com/AIB0I/MyGPT/internal/cache"
	"github.com/AIB0I/MyGPT/internal/config"
	"github.com/AIB0I/MyGPT/internal/logging"
	"github.com/AIB0I/MyGPT/internal/policy"
	"github.com/AIB0I/MyGPT/internal/repository"
	"github.com/AIB0I/MyGPT/internal/service"
	handler "github.com/AIB0I/MyGPT/internal/transport/http"
	"github.com/AIB0I/MyGPT/internal/transport/ws"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Int("port", cfg.HTTP.Port).
		Str("database", cfg.DB.Path).
		Str("llm_provider", cfg.LLM.Provider).
		Str("llm_model", cfg.LLM.Model).
		Msg("starting mygpt")

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DB.Path, logger,
		repository.WithMaxConns(cfg.DB.MaxConns),
		repository.WithBusyTimeout(cfg.DB.BusyTimeoutMs),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// Initialize LLM client
	llmClient, err := llm.NewModelClient(cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize llm client: %w", err)
	}

	// Initialize session index
	driver := cache.DriverMemory
	if cfg.Cache.RedisURL != "" {
		driver = cache.DriverRedis
	}
	index, err := cache.NewIndex(driver, cache.WithRedisURL(cfg.Cache.RedisURL), cache.WithTTL(cfg.Cache.TTL))
	if err != nil {
		return fmt.Errorf("failed to initialize session index: %w", err)
	}
	defer index.Close()
	logger.Info().Str("driver", string(driver)).Msg("session index ready")

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, cfg.Policy.MaxMessageBytes)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Initialize service and transports
	svc := service.New(db, llmClient, index, policyEngine, cfg, logger)
	wsServer := ws.NewServer(svc, cfg.WS, logger)
	server := handler.NewServer(svc, wsServer, logger)

	var wg conc.WaitGroup
	serveErr := make(chan error, 1)
	wg.Go(func() {
		addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})
	logger.Info().Int("port", cfg.HTTP.Port).Msg("HTTP API started")

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serveErr:
		wg.Wait()
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("failed to shutdown server gracefully")
	}
	wg.Wait()

	logger.Info().Msg("mygpt stopped")
	return nil
}
