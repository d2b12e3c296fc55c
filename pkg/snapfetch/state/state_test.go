package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPaths(t *testing.T) {
	d := New("/snapshots/mainnet")
	if got := d.Root(); got != filepath.Join("/snapshots/mainnet", DirName) {
		t.Errorf("Root() = %q", got)
	}
	for _, p := range []string{d.CachePath(), d.LedgerPath(), d.MarkerPath(), d.ManifestPath(), d.JournalPath()} {
		if !strings.HasPrefix(p, d.Root()) {
			t.Errorf("path %q outside state dir", p)
		}
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	d := New(t.TempDir())

	entries := []LedgerEntry{
		{Filename: "part-003.tar.zst", Checksum: strings.Repeat("a", 64)},
		{Filename: "part-007.tar.zst", Checksum: strings.Repeat("b", 64)},
	}
	if err := d.WriteLedger(entries); err != nil {
		t.Fatalf("WriteLedger() error = %v", err)
	}

	data, err := os.ReadFile(d.LedgerPath())
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	want := "part-003.tar.zst|" + strings.Repeat("a", 64) + "\n" +
		"part-007.tar.zst|" + strings.Repeat("b", 64) + "\n"
	if string(data) != want {
		t.Errorf("ledger content = %q, want %q", data, want)
	}

	got, err := d.ReadLedger()
	if err != nil {
		t.Fatalf("ReadLedger() error = %v", err)
	}
	if len(got) != 2 || got[0] != entries[0] || got[1] != entries[1] {
		t.Errorf("ReadLedger() = %+v, want %+v", got, entries)
	}
}

func TestLedgerRewriteReplacesWholeFile(t *testing.T) {
	d := New(t.TempDir())

	first := []LedgerEntry{
		{Filename: "part-001.tar.zst", Checksum: strings.Repeat("a", 64)},
		{Filename: "part-002.tar.zst", Checksum: strings.Repeat("b", 64)},
	}
	if err := d.WriteLedger(first); err != nil {
		t.Fatalf("WriteLedger() error = %v", err)
	}

	second := []LedgerEntry{
		{Filename: "part-002.tar.zst", Checksum: strings.Repeat("b", 64)},
	}
	if err := d.WriteLedger(second); err != nil {
		t.Fatalf("WriteLedger() error = %v", err)
	}

	got, err := d.ReadLedger()
	if err != nil {
		t.Fatalf("ReadLedger() error = %v", err)
	}
	if len(got) != 1 || got[0].Filename != "part-002.tar.zst" {
		t.Errorf("ReadLedger() = %+v, want only part-002", got)
	}
}

func TestLedgerEmptyWriteRemoves(t *testing.T) {
	d := New(t.TempDir())

	if err := d.WriteLedger([]LedgerEntry{{Filename: "p", Checksum: "c"}}); err != nil {
		t.Fatalf("WriteLedger() error = %v", err)
	}
	if err := d.WriteLedger(nil); err != nil {
		t.Fatalf("WriteLedger(nil) error = %v", err)
	}
	if d.HasLedger() {
		t.Error("ledger file still present after empty write")
	}

	got, err := d.ReadLedger()
	if err != nil {
		t.Fatalf("ReadLedger() error = %v", err)
	}
	if got != nil {
		t.Errorf("ReadLedger() = %+v, want nil", got)
	}
}

func TestLedgerMalformed(t *testing.T) {
	d := New(t.TempDir())
	if err := d.Ensure(); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := os.WriteFile(d.LedgerPath(), []byte("no separator here\n"), 0o644); err != nil {
		t.Fatalf("write ledger: %v", err)
	}

	if _, err := d.ReadLedger(); err == nil {
		t.Error("ReadLedger() accepted malformed line")
	}
}

func TestLedgerRejectsSeparatorInFilename(t *testing.T) {
	d := New(t.TempDir())
	err := d.WriteLedger([]LedgerEntry{{Filename: "bad|name", Checksum: "c"}})
	if err == nil {
		t.Error("WriteLedger() accepted filename containing separator")
	}
}

func TestMarker(t *testing.T) {
	d := New(t.TempDir())

	if d.Validated() {
		t.Fatal("Validated() true before marker written")
	}
	if err := d.WriteMarker("12 parts, 48 GiB"); err != nil {
		t.Fatalf("WriteMarker() error = %v", err)
	}
	if !d.Validated() {
		t.Fatal("Validated() false after marker written")
	}

	// Content is advisory only, but should carry the summary for humans.
	data, err := os.ReadFile(d.MarkerPath())
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if !strings.Contains(string(data), "12 parts") {
		t.Errorf("marker content = %q, missing summary", data)
	}

	if err := d.ClearMarker(); err != nil {
		t.Fatalf("ClearMarker() error = %v", err)
	}
	if d.Validated() {
		t.Error("Validated() true after ClearMarker()")
	}
	if err := d.ClearMarker(); err != nil {
		t.Errorf("ClearMarker() on absent marker error = %v", err)
	}
}

func TestSavedManifest(t *testing.T) {
	d := New(t.TempDir())

	_, ok, err := d.SavedManifest()
	if err != nil || ok {
		t.Fatalf("SavedManifest() before save = ok=%v err=%v", ok, err)
	}

	raw := []byte("abc  part-000.tar.zst\n")
	changed, err := d.ManifestChanged(raw)
	if err != nil {
		t.Fatalf("ManifestChanged() error = %v", err)
	}
	if !changed {
		t.Error("ManifestChanged() = false with no saved copy")
	}

	if err := d.SaveManifest(raw); err != nil {
		t.Fatalf("SaveManifest() error = %v", err)
	}

	changed, err = d.ManifestChanged(raw)
	if err != nil {
		t.Fatalf("ManifestChanged() error = %v", err)
	}
	if changed {
		t.Error("ManifestChanged() = true for identical manifest")
	}

	changed, err = d.ManifestChanged([]byte("different"))
	if err != nil {
		t.Fatalf("ManifestChanged() error = %v", err)
	}
	if !changed {
		t.Error("ManifestChanged() = false for different manifest")
	}
}
