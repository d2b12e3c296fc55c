package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestBuildDownloadConfig(t *testing.T) {
	tests := []struct {
		name             string
		setup            func()
		wantCommand      string
		wantStartTimeout time.Duration
		wantStallTimeout time.Duration
		wantMinFreeDisk  int64
		wantErr          bool
	}{
		{
			name:             "defaults pass through",
			setup:            func() {},
			wantCommand:      "aria2c",
			wantStartTimeout: 60 * time.Second,
			wantStallTimeout: 5 * time.Minute,
			wantMinFreeDisk:  0,
			wantErr:          false,
		},
		{
			name: "custom command",
			setup: func() {
				viper.Set("download.command", "wget2")
			},
			wantCommand:      "wget2",
			wantStartTimeout: 60 * time.Second,
			wantStallTimeout: 5 * time.Minute,
			wantErr:          false,
		},
		{
			name: "custom timeouts",
			setup: func() {
				viper.Set("download.start_timeout", "90s")
				viper.Set("download.stall_timeout", "10m")
			},
			wantCommand:      "aria2c",
			wantStartTimeout: 90 * time.Second,
			wantStallTimeout: 10 * time.Minute,
			wantErr:          false,
		},
		{
			name: "min free disk in decimal units",
			setup: func() {
				viper.Set("download.min_free_disk", "10GB")
			},
			wantCommand:      "aria2c",
			wantStartTimeout: 60 * time.Second,
			wantStallTimeout: 5 * time.Minute,
			wantMinFreeDisk:  10_000_000_000,
			wantErr:          false,
		},
		{
			name: "min free disk in binary units",
			setup: func() {
				viper.Set("download.min_free_disk", "1GiB")
			},
			wantCommand:      "aria2c",
			wantStartTimeout: 60 * time.Second,
			wantStallTimeout: 5 * time.Minute,
			wantMinFreeDisk:  1073741824,
			wantErr:          false,
		},
		{
			name: "invalid start timeout",
			setup: func() {
				viper.Set("download.start_timeout", "soon")
			},
			wantErr: true,
		},
		{
			name: "invalid stall timeout",
			setup: func() {
				viper.Set("download.stall_timeout", "whenever")
			},
			wantErr: true,
		},
		{
			name: "invalid min free disk",
			setup: func() {
				viper.Set("download.min_free_disk", "plenty")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setup()

			cfg, err := buildDownloadConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("buildDownloadConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if cfg.Command != tt.wantCommand {
				t.Errorf("Command = %q, want %q", cfg.Command, tt.wantCommand)
			}
			if cfg.StartTimeout != tt.wantStartTimeout {
				t.Errorf("StartTimeout = %v, want %v", cfg.StartTimeout, tt.wantStartTimeout)
			}
			if cfg.StallTimeout != tt.wantStallTimeout {
				t.Errorf("StallTimeout = %v, want %v", cfg.StallTimeout, tt.wantStallTimeout)
			}
			if cfg.MinFreeDisk != tt.wantMinFreeDisk {
				t.Errorf("MinFreeDisk = %d, want %d", cfg.MinFreeDisk, tt.wantMinFreeDisk)
			}
		})
	}
}

func TestBuildEngineOptions(t *testing.T) {
	tests := []struct {
		name            string
		setup           func()
		wantManifest    string
		wantWorkers     int
		wantMaxAttempts int
		wantRetryDelay  time.Duration
		wantNoCache     bool
		wantForce       bool
		wantErr         bool
	}{
		{
			name:  "empty configuration",
			setup: func() {},
		},
		{
			name: "full configuration",
			setup: func() {
				viper.Set("manifest", "https://example.com/manifest.txt")
				viper.Set("workers", 8)
				viper.Set("retry.max_attempts", 5)
				viper.Set("retry.delay", "30s")
				viper.Set("no_cache", true)
				viper.Set("force", true)
			},
			wantManifest:    "https://example.com/manifest.txt",
			wantWorkers:     8,
			wantMaxAttempts: 5,
			wantRetryDelay:  30 * time.Second,
			wantNoCache:     true,
			wantForce:       true,
		},
		{
			name: "invalid retry delay",
			setup: func() {
				viper.Set("retry.delay", "later")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setup()

			opts, err := buildEngineOptions("/tmp/snapshots")
			if (err != nil) != tt.wantErr {
				t.Errorf("buildEngineOptions() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if opts.Workdir != "/tmp/snapshots" {
				t.Errorf("Workdir = %q, want %q", opts.Workdir, "/tmp/snapshots")
			}
			if opts.ManifestSource != tt.wantManifest {
				t.Errorf("ManifestSource = %q, want %q", opts.ManifestSource, tt.wantManifest)
			}
			if opts.Workers != tt.wantWorkers {
				t.Errorf("Workers = %d, want %d", opts.Workers, tt.wantWorkers)
			}
			if opts.MaxAttempts != tt.wantMaxAttempts {
				t.Errorf("MaxAttempts = %d, want %d", opts.MaxAttempts, tt.wantMaxAttempts)
			}
			if opts.RetryDelay != tt.wantRetryDelay {
				t.Errorf("RetryDelay = %v, want %v", opts.RetryDelay, tt.wantRetryDelay)
			}
			if opts.NoCache != tt.wantNoCache {
				t.Errorf("NoCache = %v, want %v", opts.NoCache, tt.wantNoCache)
			}
			if opts.Force != tt.wantForce {
				t.Errorf("Force = %v, want %v", opts.Force, tt.wantForce)
			}
		})
	}
}

func TestResolveWorkdir(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		viperDir string
		wantBase string
	}{
		{
			name:     "positional argument wins",
			args:     []string{"/data/snapshots"},
			viperDir: "/elsewhere",
			wantBase: "snapshots",
		},
		{
			name:     "config fallback",
			args:     nil,
			viperDir: "/data/archive",
			wantBase: "archive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			if tt.viperDir != "" {
				viper.Set("workdir", tt.viperDir)
			}

			got, err := resolveWorkdir(tt.args)
			if err != nil {
				t.Fatalf("resolveWorkdir() error = %v", err)
			}
			if !filepath.IsAbs(got) {
				t.Errorf("resolveWorkdir() = %q, want absolute path", got)
			}
			if filepath.Base(got) != tt.wantBase {
				t.Errorf("resolveWorkdir() = %q, want base %q", got, tt.wantBase)
			}
		})
	}

	t.Run("defaults to current directory", func(t *testing.T) {
		viper.Reset()
		got, err := resolveWorkdir(nil)
		if err != nil {
			t.Fatalf("resolveWorkdir() error = %v", err)
		}
		if !filepath.IsAbs(got) {
			t.Errorf("resolveWorkdir() = %q, want absolute path", got)
		}
	})
}

func TestParseVerifyArgs(t *testing.T) {
	sumA := strings.Repeat("a", 64)
	sumB := strings.Repeat("b", 64)

	tests := []struct {
		name    string
		args    []string
		wantLen int
		wantErr bool
	}{
		{
			name:    "two parts",
			args:    []string{"2", sumA + "," + sumB, "part-000.tar.zst,part-001.tar.zst"},
			wantLen: 2,
		},
		{
			name:    "single part",
			args:    []string{"1", sumA, "part-000.tar.zst"},
			wantLen: 1,
		},
		{
			name:    "uppercase checksum is normalized",
			args:    []string{"1", strings.ToUpper(sumA), "part-000.tar.zst"},
			wantLen: 1,
		},
		{
			name:    "count is not a number",
			args:    []string{"two", sumA, "part-000.tar.zst"},
			wantErr: true,
		},
		{
			name:    "count is zero",
			args:    []string{"0", "", ""},
			wantErr: true,
		},
		{
			name:    "checksum count mismatch",
			args:    []string{"2", sumA, "part-000.tar.zst,part-001.tar.zst"},
			wantErr: true,
		},
		{
			name:    "filename count mismatch",
			args:    []string{"2", sumA + "," + sumB, "part-000.tar.zst"},
			wantErr: true,
		},
		{
			name:    "malformed checksum",
			args:    []string{"1", "nothex", "part-000.tar.zst"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := parseVerifyArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseVerifyArgs() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if len(entries) != tt.wantLen {
				t.Fatalf("parseVerifyArgs() returned %d entries, want %d", len(entries), tt.wantLen)
			}
			for _, e := range entries {
				if e.Checksum != strings.ToLower(e.Checksum) {
					t.Errorf("Checksum %q not lowercase", e.Checksum)
				}
				if e.Filename == "" {
					t.Errorf("entry has empty filename")
				}
			}
		})
	}
}

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{
			name:  "two values",
			value: "a.tar.zst,b.tar.zst",
			want:  []string{"a.tar.zst", "b.tar.zst"},
		},
		{
			name:  "with spaces",
			value: "a.tar.zst, b.tar.zst",
			want:  []string{"a.tar.zst", "b.tar.zst"},
		},
		{
			name:  "single value",
			value: "a.tar.zst",
			want:  []string{"a.tar.zst"},
		},
		{
			name:  "empty",
			value: "",
			want:  nil,
		},
		{
			name:  "trailing comma",
			value: "a.tar.zst,",
			want:  []string{"a.tar.zst"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCommaSeparated(tt.value)
			if len(got) != len(tt.want) {
				t.Errorf("parseCommaSeparated() = %v, want %v", got, tt.want)
				return
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseCommaSeparated()[%d] = %q, want %q", i, v, tt.want[i])
				}
			}
		})
	}
}
