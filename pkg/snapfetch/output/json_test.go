package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult() *Result {
	return &Result{
		Parts: []PartInfo{
			{
				Filename:  "part-000.tar.zst",
				Status:    StatusOK,
				Expected:  "aaaa000011112222333344445555666677778888999900001111222233334444",
				Actual:    "aaaa000011112222333344445555666677778888999900001111222233334444",
				Cached:    true,
				Size:      1073741824,
				SizeHuman: "1.0 GiB",
			},
			{
				Filename: "part-001.tar.zst",
				Status:   StatusMismatch,
				Expected: "bbbb000011112222333344445555666677778888999900001111222233334444",
				Actual:   "cccc000011112222333344445555666677778888999900001111222233334444",
				Size:     536870912,
			},
		},
		Stats: RunStats{
			Parts:       2,
			Passed:      1,
			Failed:      1,
			CacheHits:   1,
			CacheMisses: 1,
			BytesHashed: 536870912,
			Elapsed:     3 * time.Second,
			Attempts:    0,
		},
		Manifest: "https://snapshots.example.com/manifest.txt",
		Workdir:  "/data/snapshots",
		AllValid: false,
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, testResult())
	require.NoError(t, err)

	// Output must be valid JSON
	var parsed map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)

	assert.Contains(t, parsed, "parts")
	assert.Contains(t, parsed, "stats")
	assert.Contains(t, parsed, "meta")
}

func TestJSONFormatter_Format_Parts(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, testResult())
	require.NoError(t, err)

	var parsed struct {
		Parts []map[string]interface{} `json:"parts"`
	}
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)

	require.Len(t, parsed.Parts, 2)

	first := parsed.Parts[0]
	assert.Equal(t, "part-000.tar.zst", first["filename"])
	assert.Equal(t, "ok", first["status"])
	assert.Equal(t, true, first["cached"])
	assert.Equal(t, float64(1073741824), first["size"])

	second := parsed.Parts[1]
	assert.Equal(t, "mismatch", second["status"])
	assert.Equal(t,
		"cccc000011112222333344445555666677778888999900001111222233334444",
		second["actual"])
}

func TestJSONFormatter_Format_Stats(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, testResult())
	require.NoError(t, err)

	var parsed struct {
		Stats map[string]interface{} `json:"stats"`
	}
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)

	assert.Equal(t, float64(2), parsed.Stats["parts"])
	assert.Equal(t, float64(1), parsed.Stats["passed"])
	assert.Equal(t, float64(1), parsed.Stats["failed"])
	assert.Equal(t, float64(536870912), parsed.Stats["bytes_hashed"])
	assert.Equal(t, "3s", parsed.Stats["elapsed"])
}

func TestJSONFormatter_Format_Meta(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, testResult())
	require.NoError(t, err)

	var parsed struct {
		Meta map[string]interface{} `json:"meta"`
	}
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)

	assert.Equal(t, "https://snapshots.example.com/manifest.txt", parsed.Meta["manifest"])
	assert.Equal(t, "/data/snapshots", parsed.Meta["workdir"])
	assert.Equal(t, false, parsed.Meta["all_valid"])
	assert.Equal(t, float64(1610612736), parsed.Meta["total_size"])
}

func TestJSONFormatter_Format_Indented(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, testResult())
	require.NoError(t, err)

	// Encoder is configured with two-space indentation
	assert.Contains(t, buf.String(), "\n  \"parts\"")
}

func TestJSONFormatter_Format_EmptyParts(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	result := &Result{
		Workdir:        "/data/snapshots",
		AllValid:       true,
		ShortCircuited: true,
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	var parsed struct {
		Parts []jsonPart             `json:"parts"`
		Meta  map[string]interface{} `json:"meta"`
	}
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)

	assert.Empty(t, parsed.Parts)
	assert.Equal(t, true, parsed.Meta["short_circuited"])
}

func TestJSONFormatter_Registration(t *testing.T) {
	formatter, err := Get("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, formatter)
}

func TestJSONLFormatter_Format(t *testing.T) {
	formatter := &JSONLFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, testResult())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	// Each line is one compact JSON object
	for _, line := range lines {
		var part map[string]interface{}
		err := json.Unmarshal([]byte(line), &part)
		require.NoError(t, err)
		assert.Contains(t, part, "filename")
		assert.Contains(t, part, "status")
	}
}

func TestJSONLFormatter_Format_Empty(t *testing.T) {
	formatter := &JSONLFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, &Result{})
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestJSONLFormatter_Registration(t *testing.T) {
	formatter, err := Get("jsonl")
	require.NoError(t, err)
	assert.IsType(t, &JSONLFormatter{}, formatter)
}
