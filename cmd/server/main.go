// Package main is the entry point for the facturkit server binary.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/facturkit/facturkit/internal/api"
	"github.com/facturkit/facturkit/internal/config"
	"github.com/facturkit/facturkit/internal/invoice"
	"github.com/facturkit/facturkit/internal/pdf"
	"github.com/facturkit/facturkit/internal/session"
	"github.com/facturkit/facturkit/internal/sweeper"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Error("init storage dirs", "error", err)
		os.Exit(1)
	}

	store := session.NewStore(cfg.UploadDir, cfg.OutputDir, cfg.MaxUploadBytes, pdf.CountPages, log)
	svc := invoice.NewService(
		store,
		pdf.NewArchivalConverter(),
		pdf.NewInvoiceEmbedder(),
		pdf.NewConformanceValidator(cfg.Profile),
		cfg.ValidateOutput,
		log,
	)
	sweep := sweeper.New(store, cfg.SweepInterval, cfg.Retention, log)
	srv := api.New(cfg, store, svc, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweep.Run(ctx)

	log.Info("facturkit listening", "address", cfg.Address)
	if err := srv.Serve(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
