package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/manifest"
)

func testEntries(names ...string) []manifest.Entry {
	entries := make([]manifest.Entry, len(names))
	for i, name := range names {
		entries[i] = manifest.Entry{
			Filename:  name,
			SourceURL: "https://snapshots.example.com/" + name,
			Checksum:  strings.Repeat("a", 64),
		}
	}
	return entries
}

// shellRunner builds a runner whose "downloader" is a shell script. The
// script sees {input} and {dir} substituted like a real configuration.
func shellRunner(t *testing.T, workdir, script string, tweak func(*Config)) *Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub downloader requires a POSIX shell")
	}

	cfg := Config{
		Command:      "/bin/sh",
		Args:         []string{"-c", script + " # {input}"},
		PollInterval: 20 * time.Millisecond,
	}
	if tweak != nil {
		tweak(&cfg)
	}

	r, err := NewRunner(workdir, t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return r
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default config", DefaultConfig(), false},
		{"missing command", Config{Args: []string{"{input}"}}, true},
		{"no input placeholder", Config{Command: "aria2c", Args: []string{"--dir={dir}"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs(
		[]string{"--continue=true", "--input-file={input}", "--dir={dir}"},
		"/state/download-abc.list", "/snapshots/mainnet")

	want := []string{"--continue=true", "--input-file=/state/download-abc.list", "--dir=/snapshots/mainnet"}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestWriteInputList(t *testing.T) {
	job := newJob(t.TempDir(), testEntries("part-000.tar.zst", "part-001.tar.zst"))
	if err := job.writeInputList(); err != nil {
		t.Fatalf("writeInputList() error = %v", err)
	}

	data, err := os.ReadFile(job.InputPath)
	if err != nil {
		t.Fatalf("read input list: %v", err)
	}
	want := "https://snapshots.example.com/part-000.tar.zst\n  out=part-000.tar.zst\n" +
		"https://snapshots.example.com/part-001.tar.zst\n  out=part-001.tar.zst\n"
	if string(data) != want {
		t.Errorf("input list = %q, want %q", data, want)
	}
}

func TestFetchSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub downloader requires a POSIX shell")
	}
	workdir := t.TempDir()
	entries := testEntries("part-000.tar.zst", "part-001.tar.zst")

	// The stub "downloads" by creating every out= name from the list.
	script := `INPUT="$1"; DIR="$2"; ` +
		`grep 'out=' "$INPUT" | sed 's/.*out=//' | while read f; do echo data > "$DIR/$f"; done`
	cfg := Config{
		Command:      "/bin/sh",
		Args:         []string{"-c", script, "sh", "{input}", "{dir}"},
		PollInterval: 20 * time.Millisecond,
	}
	r, err := NewRunner(workdir, t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if err := r.Fetch(context.Background(), entries); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	for _, e := range entries {
		if _, err := os.Stat(filepath.Join(workdir, e.Filename)); err != nil {
			t.Errorf("part %s not created: %v", e.Filename, err)
		}
	}
}

func TestFetchCleansJobFilesOnSuccess(t *testing.T) {
	workdir := t.TempDir()
	stateRoot := t.TempDir()

	cfg := Config{
		Command:      "/bin/sh",
		Args:         []string{"-c", `INPUT="$1"; DIR="$2"; touch "$DIR/part-000.tar.zst"`, "sh", "{input}", "{dir}"},
		PollInterval: 20 * time.Millisecond,
	}
	r, err := NewRunner(workdir, stateRoot, cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if err := r.Fetch(context.Background(), testEntries("part-000.tar.zst")); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	leftovers, err := os.ReadDir(stateRoot)
	if err != nil {
		t.Fatalf("read state root: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("job files left behind after success: %v", leftovers)
	}
}

func TestFetchDownloaderExitFailure(t *testing.T) {
	r := shellRunner(t, t.TempDir(), "exit 3", nil)

	err := r.Fetch(context.Background(), testEntries("part-000.tar.zst"))
	if err == nil {
		t.Fatal("Fetch() nil error for failing downloader")
	}

	var jerr *JobError
	if !errors.As(err, &jerr) {
		t.Fatalf("error %v is not a JobError", err)
	}
	if errors.Is(err, ErrJobTimeout) || errors.Is(err, ErrJobVanished) {
		t.Errorf("plain exit failure misclassified: %v", err)
	}
}

func TestFetchMissingCommand(t *testing.T) {
	cfg := Config{
		Command: "definitely-not-a-downloader-7c2a",
		Args:    []string{"{input}"},
	}
	r, err := NewRunner(t.TempDir(), t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if err := r.Fetch(context.Background(), testEntries("part-000.tar.zst")); err == nil {
		t.Fatal("Fetch() nil error for missing downloader binary")
	}
}

func TestFetchIncompleteScopeIsVanished(t *testing.T) {
	// Exit 0 without creating the scoped files.
	r := shellRunner(t, t.TempDir(), "exit 0", nil)

	err := r.Fetch(context.Background(), testEntries("part-000.tar.zst"))
	if !errors.Is(err, ErrJobVanished) {
		t.Errorf("error = %v, want ErrJobVanished", err)
	}
}

func TestFetchStartTimeout(t *testing.T) {
	r := shellRunner(t, t.TempDir(), "sleep 30", func(cfg *Config) {
		cfg.StartTimeout = 150 * time.Millisecond
	})

	start := time.Now()
	err := r.Fetch(context.Background(), testEntries("part-000.tar.zst"))
	if !errors.Is(err, ErrJobTimeout) {
		t.Fatalf("error = %v, want ErrJobTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("timeout took %v, supervision not killing promptly", elapsed)
	}
}

func TestFetchStallTimeout(t *testing.T) {
	workdir := t.TempDir()
	script := `DIR="$2"; touch "$DIR/part-000.tar.zst"; sleep 30`
	cfg := Config{
		Command:      "/bin/sh",
		Args:         []string{"-c", script, "sh", "{input}", "{dir}"},
		StallTimeout: 200 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
	}
	r, err := NewRunner(workdir, t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	err = r.Fetch(context.Background(), testEntries("part-000.tar.zst"))
	if !errors.Is(err, ErrJobTimeout) {
		t.Errorf("error = %v, want ErrJobTimeout for stalled downloader", err)
	}
}

func TestFetchContextCancel(t *testing.T) {
	r := shellRunner(t, t.TempDir(), "sleep 30", nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := r.Fetch(ctx, testEntries("part-000.tar.zst"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestPreflightLowDiskSpace(t *testing.T) {
	r := shellRunner(t, t.TempDir(), "exit 0", func(cfg *Config) {
		cfg.MinFreeDisk = 1 << 62 // nothing has this much free
	})

	err := r.Fetch(context.Background(), testEntries("part-000.tar.zst"))
	if !errors.Is(err, ErrLowDiskSpace) {
		t.Errorf("error = %v, want ErrLowDiskSpace", err)
	}
}

func TestFetchScopedSkipsPreflight(t *testing.T) {
	workdir := t.TempDir()
	script := `DIR="$2"; touch "$DIR/part-000.tar.zst"`
	cfg := Config{
		Command:      "/bin/sh",
		Args:         []string{"-c", script, "sh", "{input}", "{dir}"},
		MinFreeDisk:  1 << 62,
		PollInterval: 20 * time.Millisecond,
	}
	r, err := NewRunner(workdir, t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if err := r.FetchScoped(context.Background(), testEntries("part-000.tar.zst")); err != nil {
		t.Errorf("FetchScoped() error = %v, scoped jobs must skip the preflight", err)
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Error("ProcessAlive() false for our own pid")
	}
	// PIDs wrap below ~4 million on Linux; this one cannot be live.
	if ProcessAlive(1 << 30) {
		t.Error("ProcessAlive() true for absurd pid")
	}
}
