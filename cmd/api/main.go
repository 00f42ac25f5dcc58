package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aluiziolira/go-books-api/api"
	"github.com/aluiziolira/go-books-api/config"
	"github.com/aluiziolira/go-books-api/dataset"
	"github.com/aluiziolira/go-books-api/predict"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Server.Addr, "API listen address")
	silverDir := flag.String("silver-dir", cfg.Data.SilverDir, "Silver dataset directory")
	predictionsDir := flag.String("predictions-dir", cfg.Data.PredictionsDir, "Prediction output directory")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	store := dataset.NewStore(dataset.NewLoader(*silverDir))
	intake := predict.NewIntake(*predictionsDir)
	auth := api.NewAuth(cfg.Auth)
	metrics := api.NewMetrics()
	handler := api.NewHandler(store, intake, auth, metrics)

	if ds := store.Snapshot(); ds != nil {
		metrics.SetDatasetRows(len(ds.Records))
	} else {
		slog.Warn("starting degraded: no dataset available",
			slog.String("silver_dir", *silverDir),
		)
	}

	server := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("api listening", slog.String("addr", *addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
