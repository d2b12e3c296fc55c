// Package verify checks downloaded snapshot parts against their manifest
// checksums.
//
// A verification pass is best effort and exhaustive: every manifest entry
// is checked even when earlier entries fail, so one pass yields the
// complete set of corrupt or missing parts for recovery to act on. Digests
// are SHA-256 over full file contents, compared case-insensitively against
// the manifest.
package verify

import "time"

// Status classifies the result of verifying one part.
type Status string

// Verification statuses.
const (
	// StatusOK means the computed digest matched the manifest.
	StatusOK Status = "ok"

	// StatusMismatch means the part was read fully but its digest differs
	// from the manifest.
	StatusMismatch Status = "mismatch"

	// StatusIOError means the part could not be read: missing file,
	// permission problem, or a read failing partway.
	StatusIOError Status = "io_error"
)

// Outcome is the result of verifying a single manifest entry.
type Outcome struct {
	// Filename is the part name inside the working directory.
	Filename string `json:"filename"`

	// Status classifies the result.
	Status Status `json:"status"`

	// Expected is the manifest digest, lowercase hex.
	Expected string `json:"expected"`

	// Actual is the computed digest. Empty when the part was unreadable.
	Actual string `json:"actual,omitempty"`

	// Cached reports that the digest came from the checksum cache and the
	// contents were not reread.
	Cached bool `json:"cached,omitempty"`

	// Error carries the I/O failure detail for StatusIOError.
	Error string `json:"error,omitempty"`
}

// OK reports whether the part verified clean.
func (o Outcome) OK() bool {
	return o.Status == StatusOK
}

// Report aggregates the outcomes of one verification pass. Outcomes appear
// in manifest order, exactly one per entry.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`

	// AllPassed is true when every outcome is StatusOK.
	AllPassed bool `json:"all_passed"`

	// BytesHashed counts content bytes actually read and hashed; cache
	// hits contribute nothing.
	BytesHashed int64 `json:"bytes_hashed"`

	// CacheHits and CacheMisses count digest lookups against the cache.
	CacheHits   int `json:"cache_hits"`
	CacheMisses int `json:"cache_misses"`

	// Elapsed is the wall time of the pass.
	Elapsed time.Duration `json:"elapsed"`
}

// Failed returns the outcomes that did not verify, in manifest order.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}
