package main

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/checksum"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/manifest"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/state"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/tuner"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [workdir]",
	Short: "Show snapshot state for a working directory",
	Long: `Report the validation marker, failure ledger, saved manifest, and
checksum cache for a working directory without touching any of them.
Files present in the directory but absent from the manifest are listed
as orphans.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, args []string) error {
	workdir, err := resolveWorkdir(args)
	if err != nil {
		return err
	}

	st := state.New(workdir)
	printInfo("Workdir: %s", workdir)
	res := tuner.Detect(workdir)
	if res.FreeDisk >= 0 {
		printInfo("Free disk: %s (%d cores, %d hash workers)",
			humanize.IBytes(uint64(res.FreeDisk)), res.CPUCores, tuner.HashWorkers(res))
	} else {
		printInfo("Free disk: unknown")
	}
	printInfo("")

	// Validation marker
	if info, err := os.Stat(st.MarkerPath()); err == nil {
		summary := ""
		if content, readErr := os.ReadFile(st.MarkerPath()); readErr == nil {
			summary = strings.TrimSpace(string(content))
		}
		if summary != "" {
			printInfo("Validated: yes (%s, %s)", info.ModTime().Format("2006-01-02 15:04:05"), summary)
		} else {
			printInfo("Validated: yes (%s)", info.ModTime().Format("2006-01-02 15:04:05"))
		}
	} else {
		printInfo("Validated: no")
	}

	// Failure ledger
	failed, err := st.ReadLedger()
	if err != nil {
		printInfo("Failed parts: unreadable (%v)", err)
	} else if len(failed) == 0 {
		printInfo("Failed parts: none")
	} else {
		printInfo("Failed parts: %d", len(failed))
		for _, entry := range failed {
			printInfo("  %s", entry.Filename)
		}
	}

	// Saved manifest
	var man *manifest.Manifest
	raw, ok, err := st.SavedManifest()
	switch {
	case err != nil:
		printInfo("Manifest: unreadable (%v)", err)
	case !ok:
		printInfo("Manifest: none saved")
	default:
		man, err = manifest.Parse(bytes.NewReader(raw))
		if err != nil {
			printInfo("Manifest: saved but unparseable (%v)", err)
			man = nil
		} else {
			printInfo("Manifest: %d parts", man.Len())
		}
	}

	// Checksum cache. Opening badger would create the directory, so a
	// missing cache is reported without opening anything.
	if _, err := os.Stat(st.CachePath()); err != nil {
		printInfo("Cache: none")
	} else if cache, err := checksum.Open(st.CachePath()); err != nil {
		printInfo("Cache: unavailable (%v)", err)
	} else {
		printInfo("Cache: %d entries", cache.Count(workdir))
		_ = cache.Close()
	}

	// Orphan scan needs the manifest to know what belongs.
	if man == nil {
		printInfo("Orphans: skipped (no saved manifest)")
		return nil
	}

	known := make(map[string]struct{}, man.Len())
	for _, entry := range man.Entries {
		known[entry.Filename] = struct{}{}
	}
	orphans, err := scanOrphans(workdir, known)
	if err != nil {
		printInfo("Orphans: scan failed (%v)", err)
		return nil
	}
	if len(orphans) == 0 {
		printInfo("Orphans: none")
	} else {
		printInfo("Orphans: %d files not in manifest", len(orphans))
		for _, name := range orphans {
			printInfo("  %s", name)
		}
	}
	return nil
}

// scanOrphans walks workdir and returns files the manifest does not
// name, relative to workdir and sorted. The state directory is skipped.
func scanOrphans(workdir string, known map[string]struct{}) ([]string, error) {
	var (
		mu      sync.Mutex
		orphans []string
	)

	conf := fastwalk.Config{
		Follow: false,
	}
	err := fastwalk.Walk(&conf, workdir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == state.DirName {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(workdir, path)
		if relErr != nil {
			return nil
		}
		if _, ok := known[rel]; ok {
			return nil
		}
		mu.Lock()
		orphans = append(orphans, rel)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(orphans)
	return orphans, nil
}
