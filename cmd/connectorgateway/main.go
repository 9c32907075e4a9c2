package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"

	"github.com/Digitlify-Inc/cmp-platform/internal/connectorgatewayapp"
)

func main() {
	var cfg connectorgatewayapp.Config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := connectorgatewayapp.Run(ctx, &cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
