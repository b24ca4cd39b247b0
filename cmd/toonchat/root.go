package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rmarinho/toonchat/internal/config"
	"github.com/rmarinho/toonchat/internal/gateway"
	"github.com/rmarinho/toonchat/internal/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "toonchat",
	Short: "A terminal client for the toonchat answering service",
	Long: `toonchat is a terminal client that drives turn-based conversations
with a remote answering service, keeping conversation history in a local
database.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and opens the shared collaborators used by the
// subcommands.
func setup() (*config.Config, *sqlite.Store, *gateway.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		log.Logger = log.Logger.Level(level)
	}

	store, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}

	client := gateway.NewClient(cfg.Service.BaseURL, cfg.Service.SendTimeout, cfg.Service.QuickTimeout)
	return cfg, store, client, nil
}
