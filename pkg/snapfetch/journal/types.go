// Package journal records completed snapfetch runs under a working
// directory's state dir so operators can audit what ran and what it
// found.
package journal

import "time"

// Operation names the kind of run an entry records.
type Operation string

const (
	// OpFetch is a full download-and-verify run.
	OpFetch Operation = "fetch"
	// OpVerify is a verification-only run.
	OpVerify Operation = "verify"
	// OpRecover is a recovery run off the failure ledger.
	OpRecover Operation = "recover"
)

// Entry is one recorded run.
type Entry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Operation      Operation `json:"operation"`
	Workdir        string    `json:"workdir"`
	Manifest       string    `json:"manifest,omitempty"`
	AllValid       bool      `json:"all_valid"`
	ShortCircuited bool      `json:"short_circuited,omitempty"`
	Recovered      bool      `json:"recovered,omitempty"`
	Summary        Summary   `json:"summary"`
}

// Summary aggregates one run's verification numbers.
type Summary struct {
	Parts       int           `json:"parts"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	BytesHashed int64         `json:"bytes_hashed"`
	CacheHits   int           `json:"cache_hits"`
	CacheMisses int           `json:"cache_misses"`
	Attempts    int           `json:"attempts,omitempty"`
	Elapsed     time.Duration `json:"elapsed,omitempty"`
}
