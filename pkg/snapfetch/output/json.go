package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Parts []jsonPart `json:"parts"`
	Stats jsonStats  `json:"stats"`
	Meta  jsonMeta   `json:"meta"`
}

// jsonPart represents one snapshot part in JSON output.
type jsonPart struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual,omitempty"`
	Cached    bool   `json:"cached"`
	Error     string `json:"error,omitempty"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human,omitempty"`
}

// jsonStats represents run statistics in JSON output.
type jsonStats struct {
	Parts       int    `json:"parts"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	CacheHits   int    `json:"cache_hits"`
	CacheMisses int    `json:"cache_misses"`
	BytesHashed int64  `json:"bytes_hashed"`
	Elapsed     string `json:"elapsed,omitempty"`
	Attempts    int    `json:"attempts"`
}

// jsonMeta represents run metadata in JSON output.
type jsonMeta struct {
	Manifest       string   `json:"manifest,omitempty"`
	Workdir        string   `json:"workdir"`
	AllValid       bool     `json:"all_valid"`
	ShortCircuited bool     `json:"short_circuited"`
	Recovered      bool     `json:"recovered"`
	TotalSize      int64    `json:"total_size"`
	Warnings       []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
// It produces a complete JSON document with parts, stats, and meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	output := f.buildOutput(r)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// buildOutput converts Result to the JSON output structure.
func (f *JSONFormatter) buildOutput(r *Result) jsonOutput {
	parts := make([]jsonPart, len(r.Parts))
	for i, part := range r.Parts {
		parts[i] = convertPart(part)
	}

	stats := jsonStats{
		Parts:       r.Stats.Parts,
		Passed:      r.Stats.Passed,
		Failed:      r.Stats.Failed,
		CacheHits:   r.Stats.CacheHits,
		CacheMisses: r.Stats.CacheMisses,
		BytesHashed: r.Stats.BytesHashed,
		Elapsed:     formatDurationString(r.Stats.Elapsed),
		Attempts:    r.Stats.Attempts,
	}

	meta := jsonMeta{
		Manifest:       r.Manifest,
		Workdir:        r.Workdir,
		AllValid:       r.AllValid,
		ShortCircuited: r.ShortCircuited,
		Recovered:      r.Recovered,
		TotalSize:      r.TotalSize(),
		Warnings:       r.Warnings,
	}

	return jsonOutput{
		Parts: parts,
		Stats: stats,
		Meta:  meta,
	}
}

// convertPart maps a PartInfo to its JSON form.
func convertPart(part PartInfo) jsonPart {
	return jsonPart{
		Filename:  part.Filename,
		Status:    part.Status,
		Expected:  part.Expected,
		Actual:    part.Actual,
		Cached:    part.Cached,
		Error:     part.Error,
		Size:      part.Size,
		SizeHuman: part.SizeHuman,
	}
}

// formatDurationString formats a duration as a string for JSON output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object per line).
// Each part is written as a compact JSON object on its own line.
// This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, part := range r.Parts {
		data, err := json.Marshal(convertPart(part))
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
