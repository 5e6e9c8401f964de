package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/focusflowhq/focusflow/pkg/focusflow"
	"github.com/focusflowhq/focusflow/pkg/runner"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := focusflow.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config_load_failed", "path", *configPath, "error", err)
		os.Exit(1)
	}

	engine, err := focusflow.NewEngine(focusflow.EngineOptions{Config: cfg})
	if err != nil {
		slog.Error("engine_init_failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lifecycle := runner.NewLifecycleRunner(engine, runner.Hooks{
		OnStart: func() {
			if err := engine.Start(ctx); err != nil {
				slog.Error("engine_start_failed", "error", err)
				stop()
			}
		},
		OnStop: func() {
			slog.Info("focusflow_stopped")
		},
	}, 20*time.Second)

	if err := lifecycle.Run(ctx); err != nil {
		slog.Error("shutdown_error", "error", err)
		os.Exit(1)
	}
}
