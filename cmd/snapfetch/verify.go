package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/engine"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/journal"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/manifest"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [count checksums filenames]",
	Short: "Verify snapshot parts without downloading",
	Long: `Verify parts in the working directory against their expected checksums.
No download happens; missing or corrupt parts are recorded in the
failure ledger for a later recover run.

With no positional arguments the expected checksums come from the
manifest (--manifest). Alternatively pass an explicit list: a part
count, a comma-separated checksum list, and a comma-separated filename
list, paired by position.

Examples:
  snapfetch verify --manifest https://snapshots.example.com/manifest.txt
  snapfetch verify 2 <sum-a>,<sum-b> part-000.tar.zst,part-001.tar.zst`,
	Args: cobra.RangeArgs(0, 3),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	workdir, err := resolveWorkdir(nil)
	if err != nil {
		return err
	}

	opts, err := buildEngineOptions(workdir)
	if err != nil {
		return err
	}

	var entries []manifest.Entry
	switch len(args) {
	case 0:
		if opts.ManifestSource == "" {
			return errors.New("manifest source required: pass --manifest or an explicit checksum list")
		}
	case 3:
		entries, err = parseVerifyArgs(args)
		if err != nil {
			return err
		}
	default:
		return errors.New("verify takes either no positional arguments or exactly three: count, checksums, filenames")
	}

	progress := newVerifyProgress()
	opts.OnVerifyStart = progress.Start
	opts.OnOutcome = progress.Observe
	defer progress.Finish()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		printVerbose("Interrupt received, stopping")
		cancel()
	}()

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	var res *engine.Result
	if entries != nil {
		printVerbose("Verifying %d explicit parts in %s", len(entries), workdir)
		res, err = eng.VerifyEntries(ctx, entries)
	} else {
		printVerbose("Verifying manifest parts in %s", workdir)
		res, err = eng.VerifyOnly(ctx)
	}
	progress.Finish()
	if err != nil {
		return err
	}

	if err := renderResult(convertResult(res, opts.ManifestSource, workdir, nil)); err != nil {
		return err
	}
	recordRun(journal.OpVerify, res, opts.ManifestSource, workdir)

	if !res.AllValid {
		failed := 0
		if res.Report != nil {
			failed = len(res.Report.Failed())
		}
		return fmt.Errorf("%w: %d of %d parts invalid", errVerificationFailed, failed, res.ManifestParts)
	}
	return nil
}

// parseVerifyArgs builds manifest entries from the explicit
// count/checksums/filenames form. The count is cross-checked against
// both lists.
func parseVerifyArgs(args []string) ([]manifest.Entry, error) {
	count, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid part count %q: %w", args[0], err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("invalid part count %d: must be positive", count)
	}

	checksums := parseCommaSeparated(args[1])
	filenames := parseCommaSeparated(args[2])
	if len(checksums) != count {
		return nil, fmt.Errorf("expected %d checksums, got %d", count, len(checksums))
	}
	if len(filenames) != count {
		return nil, fmt.Errorf("expected %d filenames, got %d", count, len(filenames))
	}

	entries := make([]manifest.Entry, 0, count)
	for i := 0; i < count; i++ {
		if err := manifest.VerifyChecksum(checksums[i]); err != nil {
			return nil, fmt.Errorf("invalid checksum at position %d: %w", i+1, err)
		}
		entries = append(entries, manifest.Entry{
			Checksum: strings.ToLower(checksums[i]),
			Filename: filenames[i],
		})
	}
	return entries, nil
}
