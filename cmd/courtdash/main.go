// File: cmd/courtdash/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fengtianyu/courtdash/cmd"
	"github.com/fengtianyu/courtdash/internal/observability"
)

func main() {
	// Graceful shutdown on Ctrl+C: the deadline wait and every browser
	// action observe this context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
