// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/canonical/graphair"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "graphair-demo",
	Short:         "Walkthrough of the graphair node store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file")
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(listCmd)
}

// openStore builds a store from the loaded configuration. The caller owns the
// returned store and must close it.
func openStore() (*graphair.Store, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(io.Discard, nil)
	if cfg.Debug {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return graphair.NewStore(graphair.NewDB(sqldb),
		graphair.WithLogger(slog.New(handler)),
		graphair.WithTimeout(cfg.Timeout)), nil
}
