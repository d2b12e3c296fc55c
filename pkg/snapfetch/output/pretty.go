package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	// Build header
	header := f.formatHeader(r)
	w.WriteString(header)
	w.WriteString("\n")

	// Build part table
	table := f.formatParts(r)
	w.WriteString(table)

	// Build footer
	footer := f.formatFooter(r)
	w.WriteString(footer)

	// Add warnings if any
	if len(r.Warnings) > 0 {
		warnings := f.formatWarnings(r.Warnings)
		w.WriteString("\n")
		w.WriteString(warnings)
	}

	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	// Manifest line, absent when checksums came from the command line
	if r.Manifest != "" {
		manifestLabel := LabelStyle.Render("Manifest:")
		manifestValue := ValueStyle.Render(r.Manifest)
		lines = append(lines, fmt.Sprintf("%s %s", manifestLabel, manifestValue))
	}

	workdirLabel := LabelStyle.Render("Workdir:")
	workdirValue := ValueStyle.Render(r.Workdir)
	lines = append(lines, fmt.Sprintf("%s %s", workdirLabel, workdirValue))

	if r.ShortCircuited {
		lines = append(lines, SuccessStyle.Render("Validation marker current, nothing rechecked"))
		return HeaderBox.Render(strings.Join(lines, "\n"))
	}

	// Verification info line
	var infoParts []string

	verifiedLabel := LabelStyle.Render("Verified:")
	verifiedValue := ValueStyle.Render(fmt.Sprintf("%d parts in %s",
		r.Stats.Parts, formatDuration(r.Stats.Elapsed)))
	infoParts = append(infoParts, fmt.Sprintf("%s %s", verifiedLabel, verifiedValue))

	if r.Stats.CacheHits > 0 || r.Stats.CacheMisses > 0 {
		cacheValue := MutedStyle.Render(fmt.Sprintf("cache: %d hits, %d misses",
			r.Stats.CacheHits, r.Stats.CacheMisses))
		infoParts = append(infoParts, cacheValue)
	}

	lines = append(lines, strings.Join(infoParts, "  "))

	// Recovery notice
	if r.Recovered {
		recoveredStyle := WarningStyle.Bold(true)
		lines = append(lines, recoveredStyle.Render(
			fmt.Sprintf("Recovered after %d retry cycles", r.Stats.Attempts)))
	}

	content := strings.Join(lines, "\n")
	return HeaderBox.Render(content)
}

// formatParts builds the part table. Clean runs collapse to a single
// summary line; failures get a STATUS/PART/DETAIL table.
func (f *PrettyFormatter) formatParts(r *Result) string {
	if r.ShortCircuited {
		return ""
	}

	failed := r.FailedParts()
	if len(failed) == 0 {
		if len(r.Parts) == 0 {
			return MutedStyle.Render("  No parts listed in manifest\n")
		}
		return SuccessStyle.Render(fmt.Sprintf("  All %d parts verified", len(r.Parts))) + "\n"
	}

	var sb strings.Builder

	// Column headers
	statusHeader := TableHeaderStyle.Render("STATUS")
	partHeader := TableHeaderStyle.Render("PART")
	detailHeader := TableHeaderStyle.Render("DETAIL")
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", statusHeader, partHeader, detailHeader))

	// Calculate max part width for alignment
	maxPartWidth := 0
	for _, part := range failed {
		if len(part.Filename) > maxPartWidth {
			maxPartWidth = len(part.Filename)
		}
	}

	// Failed part rows
	for _, part := range failed {
		statusStr := f.formatStatus(part.Status)
		partStr := PartStyle.Render(padRight(part.Filename, maxPartWidth))
		detailStr := MutedStyle.Render(partDetail(part))
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", statusStr, partStr, detailStr))
	}

	return sb.String()
}

// formatStatus returns the styled, width-padded status cell.
func (f *PrettyFormatter) formatStatus(status string) string {
	padded := padRight(status, 8)
	switch status {
	case StatusMismatch:
		return ErrorStyle.Render(padded)
	case StatusIOError:
		return WarningStyle.Render(padded)
	default:
		return SuccessStyle.Render(padded)
	}
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	partsLabel := LabelStyle.Render("Parts:")
	partsValue := ValueStyle.Render(fmt.Sprintf("%d", r.Stats.Parts))
	parts = append(parts, fmt.Sprintf("%s %s", partsLabel, partsValue))

	passedLabel := LabelStyle.Render("Passed:")
	passedValue := SuccessStyle.Render(fmt.Sprintf("%d", r.Stats.Passed))
	parts = append(parts, fmt.Sprintf("%s %s", passedLabel, passedValue))

	if r.Stats.Failed > 0 {
		failedLabel := LabelStyle.Render("Failed:")
		failedValue := ErrorStyle.Render(fmt.Sprintf("%d", r.Stats.Failed))
		parts = append(parts, fmt.Sprintf("%s %s", failedLabel, failedValue))
	}

	hashedLabel := LabelStyle.Render("Hashed:")
	hashedValue := SizeStyle.Render(humanize.IBytes(uint64(r.Stats.BytesHashed)))
	parts = append(parts, fmt.Sprintf("%s %s", hashedLabel, hashedValue))

	// Hints
	hint := MutedStyle.Render("Use -o plain for unformatted output")
	parts = append(parts, hint)

	content := strings.Join(parts, "  ")
	return FooterBox.Render(content)
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// partDetail summarizes what went wrong with a part, or how it passed.
func partDetail(p PartInfo) string {
	switch p.Status {
	case StatusMismatch:
		return fmt.Sprintf("expected %s, got %s", shortDigest(p.Expected), shortDigest(p.Actual))
	case StatusIOError:
		return p.Error
	default:
		if p.Cached {
			return "cached"
		}
		return ""
	}
}

// shortDigest abbreviates a hex digest for display.
func shortDigest(sum string) string {
	if len(sum) <= 12 {
		return sum
	}
	return sum[:12]
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
