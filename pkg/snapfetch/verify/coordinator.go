package verify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/checksum"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/logging"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/manifest"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/tuner"
)

// Options configure a verification pass.
type Options struct {
	// Workers bounds concurrent hashing. Zero or negative sizes the pool
	// from the host.
	Workers int

	// OnOutcome, when non-nil, receives each outcome as it lands. It is
	// called from worker goroutines and must be goroutine safe.
	OnOutcome func(Outcome)

	// OnBytes, when non-nil, receives hashed byte deltas for progress
	// display. Same concurrency caveat as OnOutcome.
	OnBytes func(int64)
}

// VerifyAll checks every entry against the parts in dir and returns one
// outcome per entry, in entry order. A failing part never stops the pass;
// only context cancellation does, in which case the partial work is
// discarded and ctx.Err() is returned. Workers already hashing finish
// their current file first.
func VerifyAll(ctx context.Context, dir string, entries []manifest.Entry, cache *checksum.Cache, opts Options) (*Report, error) {
	start := time.Now()
	workers := tuner.Workers(opts.Workers)
	logger := logging.Get("verify")
	logger.Info("verification pass starting",
		"dir", dir, "parts", len(entries), "workers", workers)

	var hashed atomic.Int64
	verifier := NewVerifier(dir, cache, func(n int64) {
		hashed.Add(n)
		if opts.OnBytes != nil {
			opts.OnBytes(n)
		}
	})

	outcomes := make([]Outcome, len(entries))

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, e := range entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out := verifier.Verify(e.Filename, e.Checksum)
			outcomes[i] = out
			if opts.OnOutcome != nil {
				opts.OnOutcome(out)
			}
			return nil
		})
	}
	// Workers carry failures in their outcomes, never as errors.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn("verification pass aborted", "error", err)
		return nil, err
	}

	report := &Report{
		Outcomes:    outcomes,
		AllPassed:   true,
		BytesHashed: hashed.Load(),
		Elapsed:     time.Since(start),
	}
	for _, o := range outcomes {
		if !o.OK() {
			report.AllPassed = false
		}
		if o.Status == StatusIOError {
			continue
		}
		if o.Cached {
			report.CacheHits++
		} else {
			report.CacheMisses++
		}
	}

	logger.Info("verification pass complete",
		"parts", len(entries),
		"failed", len(report.Failed()),
		"cache_hits", report.CacheHits,
		"hashed", humanize.Bytes(uint64(report.BytesHashed)),
		"elapsed", report.Elapsed.Round(time.Millisecond))

	return report, nil
}
