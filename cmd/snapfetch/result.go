package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/engine"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/output"
)

// convertResult maps an engine result to the output representation.
func convertResult(res *engine.Result, manifestSource, workdir string, warnings []string) *output.Result {
	out := &output.Result{
		Manifest:       manifestSource,
		Workdir:        workdir,
		AllValid:       res.AllValid,
		ShortCircuited: res.ShortCircuited,
		Recovered:      res.Recovered,
		Warnings:       warnings,
	}

	if res.Report == nil {
		// Marker short-circuit: nothing was rechecked.
		out.Stats = output.RunStats{
			Parts:  res.ManifestParts,
			Passed: res.ManifestParts,
		}
		return out
	}

	out.Parts = make([]output.PartInfo, 0, len(res.Report.Outcomes))
	passed := 0
	for _, o := range res.Report.Outcomes {
		part := output.PartInfo{
			Filename: o.Filename,
			Status:   string(o.Status),
			Expected: o.Expected,
			Actual:   o.Actual,
			Cached:   o.Cached,
			Error:    o.Error,
		}
		if info, err := os.Stat(filepath.Join(workdir, o.Filename)); err == nil {
			part.Size = info.Size()
			part.SizeHuman = humanize.IBytes(uint64(info.Size()))
		}
		if o.OK() {
			passed++
		}
		out.Parts = append(out.Parts, part)
	}

	out.Stats = output.RunStats{
		Parts:       len(res.Report.Outcomes),
		Passed:      passed,
		Failed:      len(res.Report.Outcomes) - passed,
		CacheHits:   res.Report.CacheHits,
		CacheMisses: res.Report.CacheMisses,
		BytesHashed: res.Report.BytesHashed,
		Elapsed:     res.Report.Elapsed,
		Attempts:    res.Attempts,
	}
	return out
}

// renderResult formats and prints a result with the configured
// formatter. Output goes to stdout regardless of quiet mode so that
// piped consumers always get the report.
func renderResult(res *output.Result) error {
	formatter, err := outputFormatter()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, res); err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	fmt.Print(buf.String())
	return nil
}
