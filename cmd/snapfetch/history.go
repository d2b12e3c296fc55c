package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/engine"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/journal"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/state"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [workdir]",
	Short: "View run history for a working directory",
	Long: `View recorded fetch, verify, and recover runs for a working directory.

Each completed run leaves a record in the state dir with its outcome
and verification numbers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a recorded run",
	Long:  `Display one run record by its ID. The working directory comes from --workdir or the current directory.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean [workdir]",
	Short: "Remove run records older than the retention period",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openJournal returns the journal for the resolved working directory.
func openJournal(args []string) (*journal.Journal, error) {
	workdir, err := resolveWorkdir(args)
	if err != nil {
		return nil, err
	}
	return journal.New(state.New(workdir).JournalPath())
}

func runHistory(_ *cobra.Command, args []string) error {
	j, err := openJournal(args)
	if err != nil {
		return err
	}

	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No runs recorded yet.")
		return nil
	}

	fmt.Printf("\n%-38s  %-8s  %6s  %6s  %-16s\n", "ID", "OP", "PARTS", "FAILED", "WHEN")
	fmt.Println(strings.Repeat("-", 82))
	for _, entry := range entries {
		fmt.Printf("%-38s  %-8s  %6d  %6d  %-16s\n",
			truncateString(entry.ID, 38),
			entry.Operation,
			entry.Summary.Parts,
			entry.Summary.Failed,
			entry.Timestamp.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Println(strings.Repeat("-", 82))
	fmt.Println("Use 'snapfetch history show <id>' for details on one run.")
	return nil
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	j, err := openJournal(nil)
	if err != nil {
		return err
	}

	entry, err := j.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get run record: %w", err)
	}

	printInfo("ID:          %s", entry.ID)
	printInfo("When:        %s", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	printInfo("Operation:   %s", entry.Operation)
	printInfo("Workdir:     %s", entry.Workdir)
	if entry.Manifest != "" {
		printInfo("Manifest:    %s", entry.Manifest)
	}
	switch {
	case entry.ShortCircuited:
		printInfo("Outcome:     valid (marker short-circuit)")
	case entry.AllValid && entry.Recovered:
		printInfo("Outcome:     valid after %d recovery cycles", entry.Summary.Attempts)
	case entry.AllValid:
		printInfo("Outcome:     valid")
	default:
		printInfo("Outcome:     %d parts failed", entry.Summary.Failed)
	}
	printInfo("Parts:       %d (%d passed, %d failed)",
		entry.Summary.Parts, entry.Summary.Passed, entry.Summary.Failed)
	printInfo("Hashed:      %s", humanize.IBytes(uint64(entry.Summary.BytesHashed)))
	printInfo("Cache:       %d hits, %d misses", entry.Summary.CacheHits, entry.Summary.CacheMisses)
	if entry.Summary.Elapsed > 0 {
		printInfo("Elapsed:     %s", entry.Summary.Elapsed.Round(time.Millisecond))
	}
	return nil
}

func runHistoryClean(_ *cobra.Command, args []string) error {
	j, err := openJournal(args)
	if err != nil {
		return err
	}

	printInfo("Removing run records older than %d days...", journal.DefaultRetentionDays)
	if err := j.Cleanup(journal.DefaultRetentionDays); err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("History cleanup complete.")
	return nil
}

// recordRun appends the run to the workdir journal. Failures only log;
// a missing history entry is not worth failing a finished run over.
func recordRun(op journal.Operation, res *engine.Result, manifestSource, workdir string) {
	j, err := journal.New(state.New(workdir).JournalPath())
	if err != nil {
		return
	}

	entry := journal.Entry{
		Operation:      op,
		Workdir:        workdir,
		Manifest:       manifestSource,
		AllValid:       res.AllValid,
		ShortCircuited: res.ShortCircuited,
		Recovered:      res.Recovered,
	}
	if res.Report != nil {
		failed := len(res.Report.Failed())
		entry.Summary = journal.Summary{
			Parts:       len(res.Report.Outcomes),
			Passed:      len(res.Report.Outcomes) - failed,
			Failed:      failed,
			BytesHashed: res.Report.BytesHashed,
			CacheHits:   res.Report.CacheHits,
			CacheMisses: res.Report.CacheMisses,
			Attempts:    res.Attempts,
			Elapsed:     res.Report.Elapsed,
		}
	} else {
		entry.Summary = journal.Summary{Parts: res.ManifestParts, Passed: res.ManifestParts}
	}

	if _, err := j.Append(entry); err != nil {
		printVerbose("Failed to record run history: %v", err)
		return
	}
	_ = j.Cleanup(journal.DefaultRetentionDays)
}

// truncateString shortens s to maxLen, marking the cut with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
