package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/engine"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/journal"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [workdir]",
	Short: "Download a snapshot and verify every part",
	Long: `Fetch the manifest, hand the bulk download to the configured external
downloader, then verify every part against its checksum. Failed parts
are deleted, re-downloaded, and re-verified until the snapshot is intact
or the attempt budget runs out.

A working directory holding an already-validated snapshot for an
unchanged manifest is skipped outright; use --force to recheck it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	workdir, err := resolveWorkdir(args)
	if err != nil {
		return err
	}

	opts, err := buildEngineOptions(workdir)
	if err != nil {
		return err
	}
	if opts.ManifestSource == "" {
		return errors.New("manifest source required: pass --manifest or set it in config")
	}

	progress := newVerifyProgress()
	opts.OnVerifyStart = progress.Start
	opts.OnOutcome = progress.Observe
	defer progress.Finish()

	// Handle interrupts
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

	printVerbose("Fetching snapshot into %s", workdir)
	res, runErr := eng.Run(ctx)
	progress.Finish()

	if res != nil {
		if err := renderResult(convertResult(res, opts.ManifestSource, workdir, nil)); err != nil {
			return err
		}
		recordRun(journal.OpFetch, res, opts.ManifestSource, workdir)
	}
	return runErr
}
