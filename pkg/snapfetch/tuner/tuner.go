// Package tuner provides resource detection and worker pool sizing for
// snapshot verification. It detects CPU parallelism and free disk space at
// the working directory, then sizes the hashing pool so large manifests
// saturate the host without turning into unbounded concurrent file reads.
package tuner

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned by FreeSpace where the platform offers no
// usable query.
var ErrUnsupported = errors.New("free disk detection not supported on this platform")

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// FreeDisk is the space available at the working directory in bytes,
	// or -1 when the platform offers no way to ask.
	FreeDisk int64
}

// Detect detects the resources relevant to a run rooted at workdir.
// Disk detection failure is not an error; FreeDisk is -1 and callers that
// care (the download preflight) skip their check.
func Detect(workdir string) SystemResources {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
		FreeDisk: -1,
	}
	if free, err := FreeSpace(workdir); err == nil {
		resources.FreeDisk = free
	}
	return resources
}

// HashWorkers returns the worker count for a parallel verification pass.
//
// Hashing a snapshot part is a sequential read feeding SHA-256, so the pool
// is sized to CPU parallelism rather than multiplied for I/O wait, then
// clamped: a floor keeps dual-core hosts overlapping hash and read, a
// ceiling keeps hundred-core machines from issuing that many competing
// sequential reads against one disk.
func HashWorkers(resources SystemResources) int {
	workers := max(resources.CPUCores, minHashWorkers)
	return min(workers, maxHashWorkers)
}

// Workers resolves the pool size for a pass: a positive override wins
// (still capped), otherwise the detected default.
func Workers(override int) int {
	if override > 0 {
		return min(override, maxHashWorkers)
	}
	return HashWorkers(SystemResources{CPUCores: runtime.NumCPU()})
}
