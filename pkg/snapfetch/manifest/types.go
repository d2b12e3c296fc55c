// Package manifest fetches and parses snapshot part manifests.
//
// A manifest is plain text, one part per line:
//
//	<hex-checksum>  <url-or-path>
//
// with the two fields separated by exactly two spaces, the convention of
// sha256sum output. The basename of the path field names the part on disk.
// Blank lines are ignored. Any other deviation is a parse error: a manifest
// that cannot be read in full is trusted for nothing.
package manifest

import (
	"fmt"

	"github.com/opencontainers/go-digest"
)

// Entry is one part listed in a manifest.
type Entry struct {
	// Checksum is the expected content digest, normalized to lowercase hex.
	Checksum string

	// SourceURL is where the part is downloaded from. Relative paths in a
	// manifest fetched over HTTP are resolved against the manifest URL.
	SourceURL string

	// Filename is the basename of the source field, the name the part
	// carries inside the working directory.
	Filename string
}

// Manifest is the parsed part list for one snapshot, in file order.
// Entries are immutable for the lifetime of a run: every phase of a run
// works from the same parse.
type Manifest struct {
	Entries []Entry
}

// Find returns the entry for filename.
func (m *Manifest) Find(filename string) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Filename == filename {
			return e, true
		}
	}
	return Entry{}, false
}

// Filenames returns every part name in manifest order.
func (m *Manifest) Filenames() []string {
	names := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		names[i] = e.Filename
	}
	return names
}

// Len returns the number of parts.
func (m *Manifest) Len() int {
	return len(m.Entries)
}

// ParseError describes a manifest line that could not be accepted. The
// whole fetch fails on the first one; verification never starts from a
// partially understood manifest.
type ParseError struct {
	// Line is the 1-based line number in the manifest text.
	Line int

	// Reason says what was wrong with the line.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest line %d: %s", e.Line, e.Reason)
}

// checksumAlgorithm is the digest algorithm manifests are written with.
const checksumAlgorithm = digest.SHA256
