package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "snapfetch",
		Short: "Fetch and verify blockchain node snapshots",
		Long: `Snapfetch downloads blockchain node snapshots and verifies every part
against its manifest checksum.

A snapshot ships as a manifest (sha256sum-style text) plus a set of large
parts. Snapfetch hands the bulk transfer to an external downloader such as
aria2c, verifies parts in parallel backed by a persistent checksum cache,
and re-downloads only the parts that failed until the snapshot is provably
intact.

Examples:
  snapfetch fetch /data/snapshots -m https://snapshots.example.com/manifest.txt
  snapfetch verify --manifest ./manifest.txt
  snapfetch verify 2 <sum-a>,<sum-b> part-000.tar.zst,part-001.tar.zst
  snapfetch recover /data/snapshots -m https://snapshots.example.com/manifest.txt
  snapfetch status /data/snapshots
  snapfetch cache stats /data/snapshots`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/snapfetch/config.yaml)")
	rootCmd.PersistentFlags().String("workdir", "", "working directory holding snapshot parts")
	rootCmd.PersistentFlags().StringP("manifest", "m", "", "manifest URL or local path")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "verification worker count (0=auto)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (pretty, plain, json, jsonl)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "shorthand for -o json")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "ignore an existing validation marker")
	rootCmd.PersistentFlags().Bool("no-cache", false, "bypass the checksum cache, rehash every part")
	rootCmd.PersistentFlags().Int("max-attempts", 0, "recovery attempt budget (0=config default)")
	rootCmd.PersistentFlags().String("retry-delay", "", "pause between recovery attempts (e.g. 10s)")
	rootCmd.PersistentFlags().Bool("no-progress", false, "disable the verification progress bar")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("workdir", rootCmd.PersistentFlags().Lookup("workdir"))
	_ = viper.BindPFlag("manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
	_ = viper.BindPFlag("retry.max_attempts", rootCmd.PersistentFlags().Lookup("max-attempts"))
	_ = viper.BindPFlag("retry.delay", rootCmd.PersistentFlags().Lookup("retry-delay"))
	_ = viper.BindPFlag("no_progress", rootCmd.PersistentFlags().Lookup("no-progress"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Set config name and type
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Add config paths in order of precedence
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "snapfetch"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "snapfetch"))
		}
	}

	// Set environment variable prefix and enable auto env binding
	viper.SetEnvPrefix("SNAPFETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Set defaults from config package
	viper.SetDefault("workdir", config.DefaultWorkdir)
	viper.SetDefault("output", config.DefaultOutput)
	viper.SetDefault("download.command", config.DefaultDownloader)
	viper.SetDefault("download.args", config.DefaultDownloaderArgs)
	viper.SetDefault("download.start_timeout", config.DefaultStartTimeout)
	viper.SetDefault("download.stall_timeout", config.DefaultStallTimeout)
	viper.SetDefault("download.min_free_disk", config.DefaultMinFreeDisk)
	viper.SetDefault("retry.max_attempts", config.DefaultMaxAttempts)
	viper.SetDefault("retry.delay", config.DefaultRetryDelay)

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
