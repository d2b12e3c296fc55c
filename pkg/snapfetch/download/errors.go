// Package download drives the external bulk downloader as a supervised
// black-box job.
//
// The downloader is any command that takes an input list of URLs and
// fetches them into the working directory; segmentation, resume, and
// transport concerns belong entirely to it. This package owns everything
// around the process: writing the input list for the requested scope,
// launching, watching the working directory for signs of life, enforcing
// start and stall timeouts, confirming the scope actually landed on disk,
// and cleaning up job state.
package download

import (
	"errors"
	"fmt"
)

// Sentinel errors for job supervision outcomes.
var (
	// ErrJobTimeout means the downloader produced no filesystem activity
	// inside its start window, or went quiet longer than the stall window.
	ErrJobTimeout = errors.New("bulk download job timed out")

	// ErrJobVanished means the downloader went away claiming success while
	// parts of its scope never appeared on disk.
	ErrJobVanished = errors.New("bulk download job vanished before completing")

	// ErrLowDiskSpace means the preflight found less free space than the
	// configured floor.
	ErrLowDiskSpace = errors.New("insufficient free disk space")
)

// JobError ties a supervision failure to the job that produced it.
type JobError struct {
	// ID is the short job identifier, also used in input list and log
	// file names.
	ID string

	// Err is the underlying failure.
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("download job %s: %v", e.ID, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}
