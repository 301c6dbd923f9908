// Package main is the entry point for the taskapi server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"taskapi/internal/backend"
	"taskapi/internal/cli"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := cli.NewRunner(backend.Open)

	code := runner.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
