package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/logging"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/manifest"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/tuner"
)

// Config configures downloader invocation and supervision.
type Config struct {
	// Command is the downloader binary.
	Command string

	// Args is the argument template. {input} expands to the input list
	// path and {dir} to the working directory. At least one argument must
	// reference {input}.
	Args []string

	// StartTimeout kills a job that produced no filesystem activity since
	// launch. Zero disables the check.
	StartTimeout time.Duration

	// StallTimeout kills a job whose activity stopped for this long after
	// it had begun producing output. Zero disables the check.
	StallTimeout time.Duration

	// PollInterval is how often supervision evaluates the timeouts.
	// Zero means defaultPollInterval.
	PollInterval time.Duration

	// MinFreeDisk fails a full fetch upfront when the working directory's
	// filesystem has less than this many bytes available. Zero or negative
	// disables the preflight.
	MinFreeDisk int64
}

// Supervision defaults.
const (
	defaultStartTimeout = 60 * time.Second
	defaultStallTimeout = 5 * time.Minute
	defaultPollInterval = time.Second

	// waitGrace is how long to wait for process reaping after a kill or a
	// failed liveness probe before declaring the job vanished.
	waitGrace = 5 * time.Second
)

// DefaultConfig returns the aria2c-based configuration. aria2c owns resume
// (--continue picks partial parts back up) and parallelism.
func DefaultConfig() Config {
	return Config{
		Command: "aria2c",
		Args: []string{
			"--continue=true",
			"--auto-file-renaming=false",
			"--max-concurrent-downloads=4",
			"--summary-interval=30",
			"--input-file={input}",
			"--dir={dir}",
		},
		StartTimeout: defaultStartTimeout,
		StallTimeout: defaultStallTimeout,
	}
}

// Validate checks that the configuration can drive a downloader at all.
func (c Config) Validate() error {
	if c.Command == "" {
		return errors.New("downloader command is empty")
	}
	for _, a := range c.Args {
		if strings.Contains(a, placeholderInput) {
			return nil
		}
	}
	return fmt.Errorf("downloader args reference no %s placeholder", placeholderInput)
}

// Runner launches and supervises download jobs for one working directory.
type Runner struct {
	cfg       Config
	workdir   string
	stateRoot string
	log       *logging.Logger
}

// NewRunner returns a runner writing job files under stateRoot and parts
// into workdir.
func NewRunner(workdir, stateRoot string, cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Runner{
		cfg:       cfg,
		workdir:   workdir,
		stateRoot: stateRoot,
		log:       logging.Get("download"),
	}, nil
}

// Fetch downloads every entry into the working directory. It preflights
// free disk space first; a snapshot that cannot fit should fail before the
// downloader moves a byte.
func (r *Runner) Fetch(ctx context.Context, entries []manifest.Entry) error {
	if err := r.preflight(); err != nil {
		return err
	}
	return r.run(ctx, newJob(r.stateRoot, entries))
}

// FetchScoped downloads only the given entries. Recovery uses this to
// redownload exactly the failed parts as an isolated job. No preflight:
// the scope is a subset of something that already fit.
func (r *Runner) FetchScoped(ctx context.Context, entries []manifest.Entry) error {
	return r.run(ctx, newJob(r.stateRoot, entries))
}

// preflight checks free space at the working directory against the
// configured floor. Platforms without a space query skip the check.
func (r *Runner) preflight() error {
	if r.cfg.MinFreeDisk <= 0 {
		return nil
	}
	free, err := tuner.FreeSpace(r.workdir)
	if err != nil {
		r.log.Debug("free space unknown, skipping preflight", "error", err)
		return nil
	}
	if free < r.cfg.MinFreeDisk {
		return fmt.Errorf("%w: %s available at %s, floor is %s",
			ErrLowDiskSpace, humanize.IBytes(uint64(free)), r.workdir,
			humanize.IBytes(uint64(r.cfg.MinFreeDisk)))
	}
	return nil
}

// run executes one job to completion under supervision.
func (r *Runner) run(ctx context.Context, job *Job) (err error) {
	logger := r.log.With("job", job.ID)

	if err := job.writeInputList(); err != nil {
		return &JobError{ID: job.ID, Err: err}
	}
	defer func() {
		if err == nil {
			_ = os.Remove(job.InputPath)
			_ = os.Remove(job.LogPath)
			return
		}
		// Keep job files for inspection.
		logger.Warn("job files kept", "input", job.InputPath, "log", job.LogPath)
	}()

	logFile, err := os.Create(job.LogPath)
	if err != nil {
		return &JobError{ID: job.ID, Err: fmt.Errorf("create job log: %w", err)}
	}
	defer logFile.Close()

	args := buildArgs(r.cfg.Args, job.InputPath, r.workdir)
	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	cmd.Dir = r.workdir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	activity := watchActivity(r.workdir, logger)
	defer activity.Close()

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return &JobError{ID: job.ID, Err: fmt.Errorf("start %s: %w", r.cfg.Command, err)}
	}
	logger.Info("downloader started",
		"command", r.cfg.Command, "parts", len(job.Entries), "pid", cmd.Process.Pid)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case waitErr := <-waitCh:
			if ctx.Err() != nil && waitErr != nil {
				return &JobError{ID: job.ID, Err: ctx.Err()}
			}
			return r.finish(job, waitErr, logger)

		case <-ctx.Done():
			r.kill(cmd, waitCh, logger)
			return &JobError{ID: job.ID, Err: ctx.Err()}

		case <-ticker.C:
			if !activity.Enabled() {
				continue
			}
			last, any := activity.Last()
			switch {
			case !any && r.cfg.StartTimeout > 0 && time.Since(started) > r.cfg.StartTimeout:
				logger.Error("no output since launch, killing job",
					"waited", time.Since(started).Round(time.Second))
				r.kill(cmd, waitCh, logger)
				return &JobError{ID: job.ID, Err: fmt.Errorf("%w: no output within %s",
					ErrJobTimeout, r.cfg.StartTimeout)}

			case any && r.cfg.StallTimeout > 0 && time.Since(last) > r.cfg.StallTimeout:
				logger.Error("output stalled, killing job",
					"idle", time.Since(last).Round(time.Second))
				r.kill(cmd, waitCh, logger)
				return &JobError{ID: job.ID, Err: fmt.Errorf("%w: stalled for %s",
					ErrJobTimeout, r.cfg.StallTimeout)}
			}

			if !ProcessAlive(cmd.Process.Pid) {
				// The process is gone but Wait has not surfaced it yet.
				// Give reaping a grace period, then declare it vanished.
				select {
				case waitErr := <-waitCh:
					return r.finish(job, waitErr, logger)
				case <-time.After(waitGrace):
					return &JobError{ID: job.ID, Err: ErrJobVanished}
				}
			}
		}
	}
}

// finish interprets the downloader's exit.
func (r *Runner) finish(job *Job, waitErr error, logger *logging.Logger) error {
	if waitErr != nil {
		return &JobError{ID: job.ID, Err: fmt.Errorf("downloader failed: %w", waitErr)}
	}
	// Exit 0 is a claim, not proof: the scope must exist on disk.
	if missing := job.missingFiles(r.workdir); len(missing) > 0 {
		return &JobError{ID: job.ID, Err: fmt.Errorf("%w: %d parts never appeared (first: %s)",
			ErrJobVanished, len(missing), missing[0])}
	}
	logger.Info("downloader finished", "parts", len(job.Entries))
	return nil
}

// kill terminates the downloader and waits briefly for it to be reaped.
func (r *Runner) kill(cmd *exec.Cmd, waitCh <-chan error, logger *logging.Logger) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-waitCh:
	case <-time.After(waitGrace):
		logger.Warn("downloader did not exit after kill")
	}
}

// ProcessAlive checks whether a process with the given PID is running.
func ProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
