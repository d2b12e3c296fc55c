// Package config provides configuration management for the snapfetch
// snapshot fetcher.
package config

// Default configuration values for snapfetch.
const (
	// DefaultWorkdir is where snapshot parts land when no directory is
	// specified.
	DefaultWorkdir = "."

	// DefaultConfigDir is the default configuration directory path.
	DefaultConfigDir = "~/.config/snapfetch"

	// DefaultMaxAttempts bounds delete-redownload-reverify cycles for
	// parts that keep failing checksum validation.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the pause between recovery cycles.
	DefaultRetryDelay = "10s"

	// DefaultMinFreeDisk is the free-space floor checked before a bulk
	// download starts.
	DefaultMinFreeDisk = "10GB"

	// DefaultStartTimeout kills a downloader that never produced output.
	DefaultStartTimeout = "60s"

	// DefaultStallTimeout kills a downloader whose output stopped.
	DefaultStallTimeout = "5m"

	// DefaultDownloader is the bulk downloader command.
	DefaultDownloader = "aria2c"

	// DefaultOutput is the default output format.
	DefaultOutput = "pretty"
)

// DefaultDownloaderArgs is the aria2c argument template. {input} expands to
// the generated input list and {dir} to the working directory.
var DefaultDownloaderArgs = []string{
	"--continue=true",
	"--auto-file-renaming=false",
	"--max-concurrent-downloads=4",
	"--summary-interval=30",
	"--input-file={input}",
	"--dir={dir}",
}
