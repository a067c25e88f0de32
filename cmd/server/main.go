package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewbaird/partmanager/internal/app"
	"github.com/matthewbaird/partmanager/internal/config"
	"github.com/matthewbaird/partmanager/internal/live"
	"github.com/matthewbaird/partmanager/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	log := cfg.Logger(os.Stdout)
	slog.SetDefault(log)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Error("opening portfolio", "error", err)
		os.Exit(1)
	}

	hub := live.NewHub(a.Portfolio, a.Decoder, log)
	a.Bus.Subscribe("live", hub)
	a.Start(ctx)
	defer a.Stop()

	if err := server.Run(ctx, server.Config{
		Port:      cfg.Port,
		Portfolio: a.Portfolio,
		Activity:  a.Activity,
		Live:      hub,
		AuthUser:  cfg.AuthUser,
		AuthPass:  cfg.AuthPass,
		AutoRent:  cfg.AutoRent,
		Logger:    log,
	}); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
