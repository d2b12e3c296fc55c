package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// DownloadConfig configures the external bulk downloader.
type DownloadConfig struct {
	Command      string   `mapstructure:"command"`
	Args         []string `mapstructure:"args"`
	StartTimeout string   `mapstructure:"start_timeout"`
	StallTimeout string   `mapstructure:"stall_timeout"`
	MinFreeDisk  string   `mapstructure:"min_free_disk"`
}

// RetryConfig configures recovery of parts that fail checksum validation.
type RetryConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts"`
	Delay       string `mapstructure:"delay"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	Workdir  string         `mapstructure:"workdir"`
	Manifest string         `mapstructure:"manifest"`
	Workers  int            `mapstructure:"workers"`
	NoCache  bool           `mapstructure:"no_cache"`
	Output   string         `mapstructure:"output"`
	Download DownloadConfig `mapstructure:"download"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/snapfetch/config.yaml
//   - $HOME/.config/snapfetch/config.yaml
//
// Environment variables are prefixed with SNAPFETCH_ (e.g. SNAPFETCH_WORKDIR).
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Add config paths
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "snapfetch"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "snapfetch"))

	// Set environment variable prefix and enable auto env binding
	v.SetEnvPrefix("SNAPFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("workdir", DefaultWorkdir)
	v.SetDefault("manifest", "")
	v.SetDefault("workers", 0)
	v.SetDefault("no_cache", false)
	v.SetDefault("output", DefaultOutput)

	// Downloader defaults
	v.SetDefault("download.command", DefaultDownloader)
	v.SetDefault("download.args", DefaultDownloaderArgs)
	v.SetDefault("download.start_timeout", DefaultStartTimeout)
	v.SetDefault("download.stall_timeout", DefaultStallTimeout)
	v.SetDefault("download.min_free_disk", DefaultMinFreeDisk)

	// Retry defaults
	v.SetDefault("retry.max_attempts", DefaultMaxAttempts)
	v.SetDefault("retry.delay", DefaultRetryDelay)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.components", map[string]string{
		"engine":   "info",
		"download": "info",
		"verify":   "info",
		"manifest": "warn",
	})

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in workdir if present
	if strings.HasPrefix(cfg.Workdir, "~") {
		cfg.Workdir = filepath.Join(homeDir, cfg.Workdir[1:])
	}

	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	// Check XDG_CONFIG_HOME first
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "snapfetch"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "snapfetch"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Snapfetch Snapshot Fetcher Configuration

# Working directory for snapshot parts
workdir: %s

# Manifest URL or local path (usually given on the command line instead)
manifest: ""

# Verification worker count (0 sizes the pool from the host)
workers: 0

# Skip the persistent checksum cache and rehash every part
no_cache: false

# Output format: pretty, plain, json
output: %s

# Bulk downloader invocation
download:
  command: %s
  # {input} expands to the generated download list, {dir} to the workdir
  args:
    - --continue=true
    - --auto-file-renaming=false
    - --max-concurrent-downloads=4
    - --summary-interval=30
    - --input-file={input}
    - --dir={dir}
  # Kill the downloader if it produced no output at all for this long
  start_timeout: %s
  # Kill the downloader if output stalls for this long
  stall_timeout: %s
  # Refuse to start a bulk download with less free space than this
  min_free_disk: %s

# Recovery of parts that fail checksum validation
retry:
  max_attempts: %d
  delay: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/snapfetch/snapfetch.log)
  path: ""
  # Per-component log levels
  components:
    engine: info
    download: info
    verify: info
    manifest: warn
`, DefaultWorkdir, DefaultOutput, DefaultDownloader, DefaultStartTimeout,
		DefaultStallTimeout, DefaultMinFreeDisk, DefaultMaxAttempts, DefaultRetryDelay)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// StateDir returns $XDG_STATE_HOME/snapfetch/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "snapfetch")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "snapfetch.log")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
