package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/config"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/download"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/engine"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/output"
	"github.com/spf13/viper"
)

// resolveWorkdir picks the working directory: positional argument first,
// then the workdir config key. The directory is not required to exist
// yet; the engine creates it.
func resolveWorkdir(args []string) (string, error) {
	dir := viper.GetString("workdir")
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}

	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("invalid workdir %q: %w", dir, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("invalid workdir %q: %w", dir, err)
	}
	return abs, nil
}

// buildEngineOptions assembles engine options from configuration for a
// run rooted at workdir.
func buildEngineOptions(workdir string) (engine.Options, error) {
	dl, err := buildDownloadConfig()
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.Options{
		Workdir:        workdir,
		ManifestSource: viper.GetString("manifest"),
		Workers:        viper.GetInt("workers"),
		MaxAttempts:    viper.GetInt("retry.max_attempts"),
		Downloader:     dl,
		NoCache:        viper.GetBool("no_cache"),
		Force:          viper.GetBool("force"),
	}

	if raw := viper.GetString("retry.delay"); raw != "" {
		delay, err := time.ParseDuration(raw)
		if err != nil {
			return engine.Options{}, fmt.Errorf("invalid retry.delay %q: %w", raw, err)
		}
		opts.RetryDelay = delay
	}

	return opts, nil
}

// buildDownloadConfig assembles the downloader invocation from
// configuration, starting from the built-in aria2c defaults.
func buildDownloadConfig() (download.Config, error) {
	cfg := download.DefaultConfig()

	if command := viper.GetString("download.command"); command != "" {
		cfg.Command = command
	}
	if args := viper.GetStringSlice("download.args"); len(args) > 0 {
		cfg.Args = args
	}

	if raw := viper.GetString("download.start_timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return download.Config{}, fmt.Errorf("invalid download.start_timeout %q: %w", raw, err)
		}
		cfg.StartTimeout = d
	}
	if raw := viper.GetString("download.stall_timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return download.Config{}, fmt.Errorf("invalid download.stall_timeout %q: %w", raw, err)
		}
		cfg.StallTimeout = d
	}
	if raw := viper.GetString("download.min_free_disk"); raw != "" {
		bytes, err := humanize.ParseBytes(raw)
		if err != nil {
			return download.Config{}, fmt.Errorf("invalid download.min_free_disk %q: %w", raw, err)
		}
		cfg.MinFreeDisk = int64(bytes)
	}

	return cfg, nil
}

// outputFormatter resolves the output format from configuration. The
// json flag is a shorthand that overrides the format name.
func outputFormatter() (output.Formatter, error) {
	format := viper.GetString("output")
	if viper.GetBool("json") {
		format = "json"
	}
	if format == "" {
		format = "pretty"
	}

	formatter, err := output.Get(format)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}
	return formatter, nil
}

// parseCommaSeparated splits a comma-separated string into a slice.
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
