package main

import (
	"fmt"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/config"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/logging"
	"github.com/spf13/cobra"
)

// initializeLogging loads configuration, ensures state directories
// exist, and initializes the logging system. It runs before every
// command via PersistentPreRunE.
func initializeLogging(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.EnsureStateDir(); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	level := cfg.Logging.Level
	if getVerbose() {
		level = "debug"
	} else if getQuiet() {
		level = "error"
	}

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	if err := logging.Init(logging.Config{
		Level:      level,
		Path:       logPath,
		Components: cfg.Logging.Components,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	return nil
}
