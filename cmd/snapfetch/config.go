package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage snapfetch configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/snapfetch/config.yaml (if set)
  2. ~/.config/snapfetch/config.yaml

Environment variables can override config file settings using the SNAPFETCH_ prefix:
  SNAPFETCH_WORKDIR=/data/snapshots
  SNAPFETCH_WORKERS=8
  SNAPFETCH_RETRY_MAX_ATTEMPTS=5`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		printError("Failed to load configuration: %v", err)
		// Show defaults anyway
		cfg = &config.Config{
			Workdir: config.DefaultWorkdir,
			Output:  config.DefaultOutput,
		}
		cfg.Download.Command = config.DefaultDownloader
		cfg.Download.Args = config.DefaultDownloaderArgs
		cfg.Download.StartTimeout = config.DefaultStartTimeout
		cfg.Download.StallTimeout = config.DefaultStallTimeout
		cfg.Download.MinFreeDisk = config.DefaultMinFreeDisk
		cfg.Retry.MaxAttempts = config.DefaultMaxAttempts
		cfg.Retry.Delay = config.DefaultRetryDelay
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("workdir:                 %s\n", cfg.Workdir)
	fmt.Printf("manifest:                %s\n", cfg.Manifest)
	fmt.Printf("workers:                 %d\n", cfg.Workers)
	fmt.Printf("no_cache:                %t\n", cfg.NoCache)
	fmt.Printf("output:                  %s\n", cfg.Output)
	fmt.Printf("download.command:        %s\n", cfg.Download.Command)
	fmt.Printf("download.args:           %v\n", cfg.Download.Args)
	fmt.Printf("download.start_timeout:  %s\n", cfg.Download.StartTimeout)
	fmt.Printf("download.stall_timeout:  %s\n", cfg.Download.StallTimeout)
	fmt.Printf("download.min_free_disk:  %s\n", cfg.Download.MinFreeDisk)
	fmt.Printf("retry.max_attempts:      %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("retry.delay:             %s\n", cfg.Retry.Delay)
	fmt.Printf("logging.level:           %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:            %s\n", cfg.Logging.Path)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"SNAPFETCH_WORKDIR",
		"SNAPFETCH_MANIFEST",
		"SNAPFETCH_WORKERS",
		"SNAPFETCH_NO_CACHE",
		"SNAPFETCH_OUTPUT",
		"SNAPFETCH_DOWNLOAD_COMMAND",
		"SNAPFETCH_DOWNLOAD_START_TIMEOUT",
		"SNAPFETCH_DOWNLOAD_STALL_TIMEOUT",
		"SNAPFETCH_DOWNLOAD_MIN_FREE_DISK",
		"SNAPFETCH_RETRY_MAX_ATTEMPTS",
		"SNAPFETCH_RETRY_DELAY",
		"SNAPFETCH_LOGGING_LEVEL",
		"SNAPFETCH_LOGGING_PATH",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'snapfetch config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
