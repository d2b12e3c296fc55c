package fingerprint

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part-000.tar.zst")
	if err := os.WriteFile(path, []byte("snapshot payload"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	fp, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if fp.Size != int64(len("snapshot payload")) {
		t.Errorf("Size = %d, want %d", fp.Size, len("snapshot payload"))
	}
	if fp.ModTime != stamp.Unix() {
		t.Errorf("ModTime = %d, want %d", fp.ModTime, stamp.Unix())
	}
}

func TestProbeMissing(t *testing.T) {
	_, err := Probe(filepath.Join(t.TempDir(), "absent.tar.zst"))
	if err == nil {
		t.Fatal("Probe() on missing file returned nil error")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}

func TestProbeDirectory(t *testing.T) {
	if _, err := Probe(t.TempDir()); err == nil {
		t.Fatal("Probe() on directory returned nil error")
	}
}

func TestEqual(t *testing.T) {
	base := Fingerprint{ModTime: 1709294400, Size: 1 << 20}

	tests := []struct {
		name  string
		other Fingerprint
		want  bool
	}{
		{"identical", Fingerprint{ModTime: 1709294400, Size: 1 << 20}, true},
		{"mtime drift", Fingerprint{ModTime: 1709294401, Size: 1 << 20}, false},
		{"size drift", Fingerprint{ModTime: 1709294400, Size: 1<<20 + 1}, false},
		{"both drift", Fingerprint{ModTime: 1709294401, Size: 1<<20 + 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeDetectsTouch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part-001.tar.zst")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	before, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	// Same length, different mtime: a redownload that produced identical
	// bytes still invalidates the fingerprint.
	later := time.Now().Add(2 * time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	after, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if before.Equal(after) {
		t.Error("fingerprints equal across mtime change")
	}
}
