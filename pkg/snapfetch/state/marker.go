package state

import (
	"bytes"
	"fmt"
	"os"
	"time"
)

// WriteMarker creates the validation marker. summary is informational text
// for humans reading the state directory; nothing ever parses it back.
func (d *Dir) WriteMarker(summary string) error {
	if err := d.Ensure(); err != nil {
		return err
	}
	content := fmt.Sprintf("validated at %s\n%s\n",
		time.Now().UTC().Format(time.RFC3339), summary)
	return writeAtomic(d.MarkerPath(), []byte(content))
}

// Validated reports whether the validation marker exists. Existence is the
// entire contract; content is ignored.
func (d *Dir) Validated() bool {
	_, err := os.Stat(d.MarkerPath())
	return err == nil
}

// ClearMarker removes the marker. Absence is success.
func (d *Dir) ClearMarker() error {
	return removeIfPresent(d.MarkerPath())
}

// SaveManifest stores the raw manifest text the current run is based on.
// The next run compares against this copy to know whether the upstream
// manifest changed, which invalidates a prior validation marker.
func (d *Dir) SaveManifest(raw []byte) error {
	if err := d.Ensure(); err != nil {
		return err
	}
	return writeAtomic(d.ManifestPath(), raw)
}

// SavedManifest returns the stored manifest text, or ok=false when no copy
// exists yet.
func (d *Dir) SavedManifest() ([]byte, bool, error) {
	raw, err := os.ReadFile(d.ManifestPath())
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read saved manifest: %w", err)
	}
	return raw, true, nil
}

// ManifestChanged reports whether raw differs from the saved copy. With no
// saved copy it reports true: an unknown prior manifest cannot vouch for
// anything.
func (d *Dir) ManifestChanged(raw []byte) (bool, error) {
	saved, ok, err := d.SavedManifest()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return !bytes.Equal(saved, raw), nil
}
