package state

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// ledgerSep separates filename from checksum on a ledger line.
const ledgerSep = "|"

// LedgerEntry is one failed part recorded for recovery.
type LedgerEntry struct {
	// Filename is the part name inside the working directory.
	Filename string

	// Checksum is the manifest digest the part failed against.
	Checksum string
}

// WriteLedger replaces the failure ledger with entries, one
// "filename|checksum" line per part. The ledger is always rewritten whole,
// never appended, so it reflects exactly the most recent pass. An empty
// entry list removes the file: no ledger means nothing failed.
func (d *Dir) WriteLedger(entries []LedgerEntry) error {
	if len(entries) == 0 {
		return d.ClearLedger()
	}
	if err := d.Ensure(); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, e := range entries {
		if strings.Contains(e.Filename, ledgerSep) {
			return fmt.Errorf("ledger entry %q: filename contains %q", e.Filename, ledgerSep)
		}
		fmt.Fprintf(&buf, "%s%s%s\n", e.Filename, ledgerSep, e.Checksum)
	}
	return writeAtomic(d.LedgerPath(), buf.Bytes())
}

// ReadLedger returns the recorded failures, or nil when no ledger exists.
// A line that does not parse fails the read: recovery must not act on a
// ledger it only partly understands.
func (d *Dir) ReadLedger() ([]LedgerEntry, error) {
	f, err := os.Open(d.LedgerPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var entries []LedgerEntry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		filename, sum, ok := strings.Cut(line, ledgerSep)
		if !ok || filename == "" || sum == "" {
			return nil, fmt.Errorf("ledger line %d: malformed entry %q", lineNo, line)
		}
		entries = append(entries, LedgerEntry{Filename: filename, Checksum: sum})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return entries, nil
}

// ClearLedger removes the ledger. Absence is success.
func (d *Dir) ClearLedger() error {
	return removeIfPresent(d.LedgerPath())
}

// HasLedger reports whether a failure ledger exists.
func (d *Dir) HasLedger() bool {
	_, err := os.Stat(d.LedgerPath())
	return err == nil
}
