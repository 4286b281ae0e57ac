package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/internal/bank"
	"wallet-ledger/internal/config"
	"wallet-ledger/internal/handlers"
	"wallet-ledger/internal/logging"
	"wallet-ledger/internal/notify"
	"wallet-ledger/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("db_path", cfg.DBPath))

	publisher, closePublisher := notify.NewPublisher(cfg.Notify, logger)
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Warn("failed to close publisher", zap.Error(err))
		}
	}()
	dispatcher := notify.NewDispatcher(db, publisher, notify.WithLogger(logger))

	svc := bank.NewService(db, cfg.BankIBAN, bank.WithLogger(logger), bank.WithDispatcher(dispatcher))
	h := handlers.NewHandlers(svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go dispatcher.Run(ctx, cfg.Notify.DispatchInterval)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(h, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting ledger server", zap.String("addr", server.Addr), zap.String("currency", cfg.Currency))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(h *handlers.Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.Health)
	r.Mount("/api/v1", h.Routes())

	return r
}
