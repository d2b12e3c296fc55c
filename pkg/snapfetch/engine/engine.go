// Package engine runs the snapshot retrieval and verification state
// machine: fetch manifest, download parts, verify in parallel, and recover
// failed parts with bounded retries.
//
// Persisted state drives the transitions. A validation marker whose
// manifest is unchanged short-circuits the whole run; a failure ledger
// carries the corrupt set across process boundaries so recovery can run as
// its own phase.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/checksum"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/download"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/logging"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/manifest"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/state"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/verify"
)

// ErrExhausted means recovery ran out of attempts with parts still
// failing. The failure ledger on disk lists them.
var ErrExhausted = errors.New("checksum validation attempts exhausted")

// Options configure an engine.
type Options struct {
	// Workdir is where snapshot parts live.
	Workdir string

	// ManifestSource is the manifest URL or local path.
	ManifestSource string

	// Workers bounds the verification pool. Zero sizes it from the host.
	Workers int

	// MaxAttempts is the recovery cycle budget. Values below one are
	// treated as one.
	MaxAttempts int

	// RetryDelay is the fixed pause between recovery cycles.
	RetryDelay time.Duration

	// Downloader configures the bulk downloader runner.
	Downloader download.Config

	// NoCache disables the checksum cache for this engine.
	NoCache bool

	// Force ignores an existing validation marker.
	Force bool

	// OnOutcome and OnBytes stream verification progress. Both are called
	// from worker goroutines.
	OnOutcome func(verify.Outcome)
	OnBytes   func(int64)

	// OnVerifyStart fires before each verification pass with the number
	// of parts the pass covers. Recovery passes fire it again with their
	// narrower totals.
	OnVerifyStart func(parts int)
}

// Result is what a completed engine operation reports.
type Result struct {
	// Report is the last verification pass, nil when the run
	// short-circuited on the validation marker.
	Report *verify.Report

	// AllValid is true when every part is verified, whether by this run
	// or by a still-valid marker.
	AllValid bool

	// ShortCircuited is true when the marker made the run a no-op.
	ShortCircuited bool

	// Recovered is true when recovery cycles were needed.
	Recovered bool

	// Attempts counts recovery cycles consumed.
	Attempts int

	// ManifestParts is the manifest entry count for the run.
	ManifestParts int
}

// Engine coordinates one working directory.
type Engine struct {
	opts   Options
	log    *logging.Logger
	state  *state.Dir
	cache  *checksum.Cache
	runner *download.Runner
}

// New builds an engine. The working directory and state directory are
// created if missing. A cache that cannot be opened is logged and left
// nil; verification then rehashes everything, which is slower but never
// wrong.
func New(opts Options) (*Engine, error) {
	if opts.Workdir == "" {
		return nil, errors.New("working directory is empty")
	}
	workdir, err := filepath.Abs(opts.Workdir)
	if err != nil {
		return nil, fmt.Errorf("resolve workdir: %w", err)
	}
	opts.Workdir = workdir
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}

	st := state.New(workdir)
	if err := st.Ensure(); err != nil {
		return nil, err
	}

	logger := logging.Get("engine")

	var cache *checksum.Cache
	if !opts.NoCache {
		cache, err = checksum.Open(st.CachePath())
		if err != nil {
			logger.Warn("checksum cache unavailable, hashing everything", "error", err)
			cache = nil
		}
	}

	runner, err := download.NewRunner(workdir, st.Root(), opts.Downloader)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	return &Engine{
		opts:   opts,
		log:    logger,
		state:  st,
		cache:  cache,
		runner: runner,
	}, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	return e.cache.Close()
}

// State exposes the engine's state directory for status reporting.
func (e *Engine) State() *state.Dir {
	return e.state
}

// Cache exposes the checksum cache. Nil when caching is off or broken.
func (e *Engine) Cache() *checksum.Cache {
	return e.cache
}

// Run executes the full flow: manifest, short-circuit check, bulk
// download, verification, and recovery of any failures. On exhausted
// recovery the error wraps ErrExhausted and the ledger stays on disk.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	man, changed, err := e.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	if !changed && !e.opts.Force && e.state.Validated() {
		e.log.Info("validation marker present and manifest unchanged, nothing to do",
			"parts", man.Len())
		return &Result{AllValid: true, ShortCircuited: true, ManifestParts: man.Len()}, nil
	}

	e.log.Info("fetching snapshot", "parts", man.Len(), "workdir", e.opts.Workdir)
	if err := e.runner.Fetch(ctx, man.Entries); err != nil {
		return nil, fmt.Errorf("bulk download: %w", err)
	}

	report, err := e.verifyAndPersist(ctx, man.Entries)
	if err != nil {
		return nil, err
	}

	result := &Result{Report: report, ManifestParts: man.Len()}
	if report.AllPassed {
		result.AllValid = true
		return result, nil
	}

	attempts, err := e.recoverLoop(ctx, man, ledgerFromReport(report))
	result.Recovered = true
	result.Attempts = attempts
	if err != nil {
		return result, err
	}

	// Recovery succeeded on the failed subset; one full pass (cheap, the
	// cache vouches for untouched parts) decides the marker.
	final, err := e.verifyAndPersist(ctx, man.Entries)
	if err != nil {
		return result, err
	}
	result.Report = final
	if !final.AllPassed {
		return result, fmt.Errorf("%w: %d parts failed re-verification after recovery",
			ErrExhausted, len(final.Failed()))
	}
	result.AllValid = true
	return result, nil
}

// VerifyOnly runs manifest fetch and verification with no download and no
// recovery. Callers inspect Result.AllValid to decide whether recovery
// should follow.
func (e *Engine) VerifyOnly(ctx context.Context) (*Result, error) {
	man, changed, err := e.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	if !changed && !e.opts.Force && e.state.Validated() {
		e.log.Info("validation marker present and manifest unchanged, nothing to do",
			"parts", man.Len())
		return &Result{AllValid: true, ShortCircuited: true, ManifestParts: man.Len()}, nil
	}

	report, err := e.verifyAndPersist(ctx, man.Entries)
	if err != nil {
		return nil, err
	}
	return &Result{
		Report:        report,
		AllValid:      report.AllPassed,
		ManifestParts: man.Len(),
	}, nil
}

// VerifyEntries verifies an explicit checksum/filename pairing against the
// working directory, bypassing any manifest. The marker and ledger are
// still written: the caller asserts this list is the whole snapshot.
func (e *Engine) VerifyEntries(ctx context.Context, entries []manifest.Entry) (*Result, error) {
	report, err := e.verifyAndPersist(ctx, entries)
	if err != nil {
		return nil, err
	}
	return &Result{
		Report:        report,
		AllValid:      report.AllPassed,
		ManifestParts: len(entries),
	}, nil
}

// loadManifest fetches and parses the manifest, reconciles it against the
// saved copy, and persists the new copy. changed reports whether the
// manifest differs from the one prior state was built against; a changed
// manifest invalidates the validation marker immediately.
func (e *Engine) loadManifest(ctx context.Context) (*manifest.Manifest, bool, error) {
	if e.opts.ManifestSource == "" {
		return nil, false, errors.New("manifest source is empty")
	}
	man, raw, err := manifest.Fetch(ctx, e.opts.ManifestSource)
	if err != nil {
		return nil, false, err
	}

	changed, err := e.state.ManifestChanged(raw)
	if err != nil {
		e.log.Warn("saved manifest unreadable, treating manifest as changed", "error", err)
		changed = true
	}
	if changed {
		if e.state.Validated() {
			e.log.Info("manifest changed, invalidating validation marker")
		}
		if err := e.state.ClearMarker(); err != nil {
			return nil, false, err
		}
	}
	if err := e.state.SaveManifest(raw); err != nil {
		return nil, false, err
	}
	return man, changed, nil
}

// verifyAndPersist runs one pass and writes the state files the outcome
// dictates: marker plus empty ledger on success, ledger without marker on
// failure.
func (e *Engine) verifyAndPersist(ctx context.Context, entries []manifest.Entry) (*verify.Report, error) {
	if e.opts.OnVerifyStart != nil {
		e.opts.OnVerifyStart(len(entries))
	}
	report, err := verify.VerifyAll(ctx, e.opts.Workdir, entries, e.cache, verify.Options{
		Workers:   e.opts.Workers,
		OnOutcome: e.opts.OnOutcome,
		OnBytes:   e.opts.OnBytes,
	})
	if err != nil {
		return nil, err
	}

	if report.AllPassed {
		summary := fmt.Sprintf("%d parts verified", len(entries))
		if e.opts.ManifestSource != "" {
			summary += " against " + e.opts.ManifestSource
		}
		if err := e.state.WriteMarker(summary); err != nil {
			return nil, err
		}
		if err := e.state.ClearLedger(); err != nil {
			return nil, err
		}
		return report, nil
	}

	if err := e.state.ClearMarker(); err != nil {
		return nil, err
	}
	if err := e.state.WriteLedger(ledgerFromReport(report)); err != nil {
		return nil, err
	}
	return report, nil
}

// ledgerFromReport maps failed outcomes to ledger entries.
func ledgerFromReport(report *verify.Report) []state.LedgerEntry {
	failed := report.Failed()
	entries := make([]state.LedgerEntry, len(failed))
	for i, o := range failed {
		entries[i] = state.LedgerEntry{Filename: o.Filename, Checksum: o.Expected}
	}
	return entries
}
