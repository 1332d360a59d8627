// Package main starts the ceplookup terminal application.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/thomhuang/CepLookup/internal/cli"
	"github.com/thomhuang/CepLookup/internal/platform/config"
)

func main() {
	cfg, err := config.ParseEnv()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "ceplookup: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cfg).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cli.ErrReported) {
			color.New(color.FgRed).Fprintf(os.Stderr, "ceplookup: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
