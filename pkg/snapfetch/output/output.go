// Package output provides formatters for displaying snapshot fetch and
// verification results in various output formats (pretty, plain, json).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Part status strings, matching the verifier's classification.
const (
	// StatusOK means the part's digest matched the manifest.
	StatusOK = "ok"

	// StatusMismatch means the part was read fully but its digest differs.
	StatusMismatch = "mismatch"

	// StatusIOError means the part could not be read at all.
	StatusIOError = "io_error"
)

// PartInfo contains the verification outcome of one snapshot part for
// output formatting. It extends the raw outcome with computed fields like
// the on-disk size for easier formatting.
type PartInfo struct {
	// Filename is the part name inside the working directory.
	Filename string `json:"filename"`

	// Status is the verification status string.
	Status string `json:"status"`

	// Expected is the manifest digest, lowercase hex.
	Expected string `json:"expected"`

	// Actual is the computed digest. Empty when the part was unreadable.
	Actual string `json:"actual,omitempty"`

	// Cached indicates the digest came from the checksum cache.
	Cached bool `json:"cached"`

	// Error carries the I/O failure detail for io_error parts.
	Error string `json:"error,omitempty"`

	// Size is the part size in bytes on disk, zero when missing.
	Size int64 `json:"size"`

	// SizeHuman is the human-readable part size (e.g., "1.5 GiB").
	SizeHuman string `json:"size_human"`
}

// RunStats contains statistics about a fetch or verification run.
type RunStats struct {
	// Parts is the number of manifest entries checked.
	Parts int `json:"parts"`

	// Passed is the number of parts that verified clean.
	Passed int `json:"passed"`

	// Failed is the number of parts that did not verify.
	Failed int `json:"failed"`

	// CacheHits is the number of digests served from the checksum cache.
	CacheHits int `json:"cache_hits"`

	// CacheMisses is the number of digests that had to be computed.
	CacheMisses int `json:"cache_misses"`

	// BytesHashed is the number of content bytes actually read and hashed.
	BytesHashed int64 `json:"bytes_hashed"`

	// Elapsed is the wall time of the verification pass.
	Elapsed time.Duration `json:"elapsed"`

	// Attempts is the number of recovery cycles consumed.
	Attempts int `json:"attempts"`
}

// Result contains the complete output data for formatting.
// It includes per-part outcomes, run statistics, and metadata about the
// operation.
type Result struct {
	// Parts contains the outcome for every manifest entry, in manifest
	// order. Empty when the run short-circuited on the validation marker.
	Parts []PartInfo `json:"parts"`

	// Stats contains run statistics.
	Stats RunStats `json:"stats"`

	// Manifest is the manifest source the run was built against. Empty
	// when checksums were supplied directly.
	Manifest string `json:"manifest,omitempty"`

	// Workdir is the working directory holding the parts.
	Workdir string `json:"workdir"`

	// AllValid is true when every part is verified, whether by this run
	// or by a still-valid marker.
	AllValid bool `json:"all_valid"`

	// ShortCircuited is true when the validation marker made the run a
	// no-op.
	ShortCircuited bool `json:"short_circuited"`

	// Recovered is true when recovery cycles were needed.
	Recovered bool `json:"recovered"`

	// Warnings contains any warning messages generated during the run.
	Warnings []string `json:"warnings,omitempty"`
}

// TotalSize returns the sum of all part sizes in the result.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, p := range r.Parts {
		total += p.Size
	}
	return total
}

// FailedParts returns the parts that did not verify, in manifest order.
func (r *Result) FailedParts() []PartInfo {
	var failed []PartInfo
	for _, p := range r.Parts {
		if p.Status != StatusOK {
			failed = append(failed, p)
		}
	}
	return failed
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
