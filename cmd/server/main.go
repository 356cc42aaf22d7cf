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

	"spending-tracker/internal/config"
	"spending-tracker/internal/handlers"
	"spending-tracker/internal/logging"
	"spending-tracker/internal/storage"
	"spending-tracker/internal/tracker"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	t := tracker.New(db, tracker.Options{UserID: cfg.UserID, Logger: logger})
	h := handlers.NewHandlers(t, logger.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           logRequests(logger, setupRouter(h)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", zap.String("addr", srv.Addr), zap.String("db", cfg.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func setupRouter(h *handlers.Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /api/events", h.Events)
	mux.HandleFunc("GET /api/months", h.Months)

	mux.HandleFunc("GET /api/expenses/{month}", h.ListExpenses)
	mux.HandleFunc("POST /api/expenses", h.CreateExpense)
	mux.HandleFunc("PUT /api/expenses", h.UpdateExpense)
	mux.HandleFunc("POST /api/expenses/delete", h.DeleteExpense)

	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("POST /api/categories", h.CreateCategory)
	mux.HandleFunc("POST /api/categories/rename", h.RenameCategory)
	mux.HandleFunc("DELETE /api/categories/{name}", h.DeleteCategory)

	mux.HandleFunc("GET /api/income", h.GetIncome)
	mux.HandleFunc("PUT /api/income/universal", h.SetUniversalIncome)
	mux.HandleFunc("PUT /api/income/{month}", h.SetMonthlyIncome)
	mux.HandleFunc("DELETE /api/income/{month}", h.DeleteMonthlyIncome)

	mux.HandleFunc("GET /api/insight/{month}", h.Insight)
	mux.HandleFunc("GET /api/stats/{month}", h.Statistics)

	mux.HandleFunc("GET /api/lendings", h.ListLendings)
	mux.HandleFunc("GET /api/lendings/totals", h.LendingTotals)
	mux.HandleFunc("POST /api/lendings", h.CreateLending)
	mux.HandleFunc("PUT /api/lendings/{id}", h.UpdateLending)
	mux.HandleFunc("DELETE /api/lendings/{id}", h.DeleteLending)
	mux.HandleFunc("POST /api/lendings/{id}/repaid", h.MarkRepaid)

	mux.HandleFunc("GET /api/export", h.Export)
	mux.HandleFunc("POST /api/import", h.Import)
	mux.HandleFunc("POST /api/split", h.Split)

	return mux
}

func logRequests(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
