// Package state persists per-workdir run state under a .snapfetch
// directory: the failure ledger, the validation marker, and a copy of the
// manifest the state was built against.
//
// Layout inside the working directory:
//
//	.snapfetch/
//	    checksum-cache/   digest records (managed by the checksum package)
//	    journal/          run records (managed by the journal package)
//	    failure-ledger    parts that failed the last pass, one per line
//	    validated         marker whose existence means "all parts verified"
//	    manifest          raw manifest text of the last run
//
// Only the EXISTENCE of the validated marker is meaningful. Its content is
// a human-readable summary and is never parsed.
package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// File and directory names inside the state directory.
const (
	DirName        = ".snapfetch"
	ledgerName     = "failure-ledger"
	markerName     = "validated"
	manifestName   = "manifest"
	cacheDirName   = "checksum-cache"
	journalDirName = "journal"
)

// Dir is the state directory for one working directory.
type Dir struct {
	workdir string
}

// New returns the state handle for workdir. Nothing is touched on disk
// until a write happens.
func New(workdir string) *Dir {
	return &Dir{workdir: workdir}
}

// Workdir returns the working directory this state belongs to.
func (d *Dir) Workdir() string {
	return d.workdir
}

// Root returns the state directory path.
func (d *Dir) Root() string {
	return filepath.Join(d.workdir, DirName)
}

// CachePath returns where the checksum cache lives.
func (d *Dir) CachePath() string {
	return filepath.Join(d.Root(), cacheDirName)
}

// LedgerPath returns the failure ledger path.
func (d *Dir) LedgerPath() string {
	return filepath.Join(d.Root(), ledgerName)
}

// MarkerPath returns the validation marker path.
func (d *Dir) MarkerPath() string {
	return filepath.Join(d.Root(), markerName)
}

// ManifestPath returns where the manifest copy is saved.
func (d *Dir) ManifestPath() string {
	return filepath.Join(d.Root(), manifestName)
}

// JournalPath returns where run records live.
func (d *Dir) JournalPath() string {
	return filepath.Join(d.Root(), journalDirName)
}

// Ensure creates the state directory if needed.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.Root(), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return nil
}

// writeAtomic writes data to path via a temp file and rename, so readers
// never observe a half-written state file.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// removeIfPresent deletes path, treating absence as success.
func removeIfPresent(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
