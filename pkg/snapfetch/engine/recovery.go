package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/manifest"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/state"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/verify"
)

// Recover reruns recovery from the persisted failure ledger, for the case
// where verification and recovery run as separate processes. The manifest
// is refetched and must match the saved copy byte for byte; a ledger paired
// with a manifest that has since changed cannot be trusted to name the
// right URLs or checksums.
func (e *Engine) Recover(ctx context.Context) (*Result, error) {
	failed, err := e.state.ReadLedger()
	if err != nil {
		return nil, err
	}
	if len(failed) == 0 {
		e.log.Info("failure ledger absent or empty, nothing to recover")
		return &Result{AllValid: e.state.Validated()}, nil
	}

	man, raw, err := manifest.Fetch(ctx, e.opts.ManifestSource)
	if err != nil {
		return nil, err
	}
	saved, ok, err := e.state.SavedManifest()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("no saved manifest to pair the failure ledger with; run a full fetch")
	}
	if !bytes.Equal(saved, raw) {
		return nil, errors.New("manifest changed since failures were recorded; run a full fetch")
	}

	attempts, err := e.recoverLoop(ctx, man, failed)
	result := &Result{Recovered: true, Attempts: attempts, ManifestParts: man.Len()}
	if err != nil {
		return result, err
	}

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

// recoverLoop runs delete-redownload-reverify cycles over the failed set
// until it is empty or the attempt budget is spent. Each cycle narrows to
// the parts that failed the previous one, and the ledger is rewritten
// after every pass so a crash leaves the latest truth on disk. On
// exhaustion the still-failing parts are deleted rather than left corrupt,
// while the ledger keeps naming them.
func (e *Engine) recoverLoop(ctx context.Context, man *manifest.Manifest, failed []state.LedgerEntry) (int, error) {
	scope, err := e.resolveScope(man, failed)
	if err != nil {
		return 0, err
	}

	attempts := 0
	var fatal error // non-retryable failure, distinct from exhaustion
	cycle := func() error {
		attempts++
		e.log.Info("recovery cycle", "attempt", attempts,
			"max_attempts", e.opts.MaxAttempts, "parts", len(scope))

		for _, entry := range scope {
			path := filepath.Join(e.opts.Workdir, entry.Filename)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("delete corrupt part %s: %w", entry.Filename, err)
			}
			e.cache.Forget(e.opts.Workdir, entry.Filename)
		}

		if err := e.runner.FetchScoped(ctx, scope); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			// A command that could not be invoked at all will not start
			// working between retries.
			var execErr *exec.Error
			if errors.As(err, &execErr) {
				fatal = fmt.Errorf("redownload: %w", err)
				return backoff.Permanent(fatal)
			}
			return fmt.Errorf("redownload: %w", err)
		}

		if e.opts.OnVerifyStart != nil {
			e.opts.OnVerifyStart(len(scope))
		}
		report, err := verify.VerifyAll(ctx, e.opts.Workdir, scope, e.cache, verify.Options{
			Workers:   e.opts.Workers,
			OnOutcome: e.opts.OnOutcome,
			OnBytes:   e.opts.OnBytes,
		})
		if err != nil {
			fatal = err
			return backoff.Permanent(err)
		}

		stillFailed := ledgerFromReport(report)
		if err := e.state.WriteLedger(stillFailed); err != nil {
			fatal = err
			return backoff.Permanent(err)
		}
		if len(stillFailed) == 0 {
			return nil
		}

		// Narrow the next cycle to what is still broken.
		scope, err = e.resolveScope(man, stillFailed)
		if err != nil {
			fatal = err
			return backoff.Permanent(err)
		}
		return fmt.Errorf("%d parts still failing", len(stillFailed))
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(e.opts.RetryDelay),
			uint64(e.opts.MaxAttempts-1)),
		ctx)

	if err := backoff.Retry(cycle, schedule); err != nil {
		if ctx.Err() != nil {
			return attempts, ctx.Err()
		}
		if fatal != nil {
			return attempts, fatal
		}
		e.discardFailedParts(scope)
		return attempts, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, attempts, err)
	}
	return attempts, nil
}

// resolveScope maps ledger entries back to manifest entries, which carry
// the download URLs. A ledger that names parts the manifest does not know,
// or records a different checksum than the manifest does, means the two
// files are out of step and recovery must not guess.
func (e *Engine) resolveScope(man *manifest.Manifest, failed []state.LedgerEntry) ([]manifest.Entry, error) {
	scope := make([]manifest.Entry, 0, len(failed))
	for _, f := range failed {
		entry, ok := man.Find(f.Filename)
		if !ok {
			return nil, fmt.Errorf("ledger part %q not present in manifest", f.Filename)
		}
		if entry.Checksum != f.Checksum {
			return nil, fmt.Errorf("ledger checksum for %q does not match manifest", f.Filename)
		}
		scope = append(scope, entry)
	}
	return scope, nil
}

// discardFailedParts removes parts that exhausted their retries. A corrupt
// file left in place looks exactly like a valid one to everything except a
// full hash; absence is the safer shape to leave behind.
func (e *Engine) discardFailedParts(scope []manifest.Entry) {
	for _, entry := range scope {
		path := filepath.Join(e.opts.Workdir, entry.Filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			e.log.Warn("could not remove exhausted part", "filename", entry.Filename, "error", err)
			continue
		}
		e.cache.Forget(e.opts.Workdir, entry.Filename)
	}
}
