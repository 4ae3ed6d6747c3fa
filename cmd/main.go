package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/twlogin/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "twlogin",
		Usage:    "Log in to Twitch from the terminal without a public redirect endpoint",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   runner.Before,
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrUserCancelled):
		logger.Warn("login cancelled")
		os.Exit(1)
	default:
		logger.Fatalf("application error: %v", err)
	}
}
