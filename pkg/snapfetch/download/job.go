package download

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/manifest"
)

// Job is one invocation of the bulk downloader over a scope of manifest
// entries. Full fetches and recovery redownloads are the same mechanism
// with different scopes.
type Job struct {
	// ID is a short unique identifier for log lines and file names.
	ID string

	// Entries is the download scope.
	Entries []manifest.Entry

	// InputPath is where the downloader's input list is written.
	InputPath string

	// LogPath receives the downloader's stdout and stderr.
	LogPath string
}

// newJob allocates a job for entries, placing its files under stateRoot.
func newJob(stateRoot string, entries []manifest.Entry) *Job {
	id := uuid.New().String()[:8]
	return &Job{
		ID:        id,
		Entries:   entries,
		InputPath: filepath.Join(stateRoot, "download-"+id+".list"),
		LogPath:   filepath.Join(stateRoot, "download-"+id+".log"),
	}
}

// writeInputList writes the scope in aria2c input-file format: the source
// URL on one line, the output filename indented beneath it. Other
// downloaders accepting the same format work unchanged.
func (j *Job) writeInputList() error {
	var buf bytes.Buffer
	for _, e := range j.Entries {
		fmt.Fprintf(&buf, "%s\n  out=%s\n", e.SourceURL, e.Filename)
	}
	if err := os.WriteFile(j.InputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write input list: %w", err)
	}
	return nil
}

// missingFiles returns scope filenames absent from dir after the
// downloader claimed completion.
func (j *Job) missingFiles(dir string) []string {
	var missing []string
	for _, e := range j.Entries {
		if _, err := os.Stat(filepath.Join(dir, e.Filename)); err != nil {
			missing = append(missing, e.Filename)
		}
	}
	return missing
}

// Placeholders recognized in configured downloader arguments.
const (
	placeholderInput = "{input}"
	placeholderDir   = "{dir}"
)

// buildArgs substitutes the input list path and working directory into the
// configured argument template.
func buildArgs(template []string, inputPath, dir string) []string {
	args := make([]string, len(template))
	for i, a := range template {
		a = strings.ReplaceAll(a, placeholderInput, inputPath)
		a = strings.ReplaceAll(a, placeholderDir, dir)
		args[i] = a
	}
	return args
}
