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

var recoverCmd = &cobra.Command{
	Use:   "recover [workdir]",
	Short: "Re-download and re-verify previously failed parts",
	Long: `Resume from a failure ledger left by an earlier run. Only the parts the
ledger names are deleted, re-downloaded, and re-verified; parts that
already verified are vouched for by the checksum cache. The manifest
must be unchanged since the failures were recorded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
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

	printVerbose("Recovering failed parts in %s", workdir)
	res, runErr := eng.Recover(ctx)
	progress.Finish()

	if res != nil && !res.Recovered && runErr == nil {
		printInfo("Failure ledger absent or empty, nothing to recover.")
		return nil
	}

	if res != nil {
		if err := renderResult(convertResult(res, opts.ManifestSource, workdir, nil)); err != nil {
			return err
		}
		recordRun(journal.OpRecover, res, opts.ManifestSource, workdir)
	}
	return runErr
}
