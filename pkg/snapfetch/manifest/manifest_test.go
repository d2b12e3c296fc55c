package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSum returns a well-formed sha256 hex digest derived from seed.
func testSum(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func TestParse(t *testing.T) {
	text := fmt.Sprintf("%s  parts/part-000.tar.zst\n%s  parts/part-001.tar.zst\n",
		testSum("a"), testSum("b"))

	m, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	assert.Equal(t, testSum("a"), m.Entries[0].Checksum)
	assert.Equal(t, "parts/part-000.tar.zst", m.Entries[0].SourceURL)
	assert.Equal(t, "part-000.tar.zst", m.Entries[0].Filename)
	assert.Equal(t, "part-001.tar.zst", m.Entries[1].Filename)
}

func TestParseSkipsBlankLines(t *testing.T) {
	text := fmt.Sprintf("\n%s  part-000.tar.zst\n\n   \n%s  part-001.tar.zst\n\n",
		testSum("a"), testSum("b"))

	m, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestParseNormalizesCase(t *testing.T) {
	upper := strings.ToUpper(testSum("a"))
	m, err := Parse(strings.NewReader(upper + "  part-000.tar.zst\n"))
	require.NoError(t, err)
	assert.Equal(t, testSum("a"), m.Entries[0].Checksum)
}

func TestParseCRLF(t *testing.T) {
	text := testSum("a") + "  part-000.tar.zst\r\n"
	m, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, "part-000.tar.zst", m.Entries[0].Filename)
}

func TestParseURLEntry(t *testing.T) {
	text := testSum("a") + "  https://snapshots.example.com/mainnet/part-000.tar.zst?token=abc\n"
	m, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, "part-000.tar.zst", m.Entries[0].Filename)
	assert.Contains(t, m.Entries[0].SourceURL, "token=abc")
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"single space separator", testSum("a") + " part-000.tar.zst\n", 1},
		{"no separator", testSum("a") + "part-000.tar.zst\n", 1},
		{"short checksum", "abc123  part-000.tar.zst\n", 1},
		{"non-hex checksum", strings.Repeat("z", 64) + "  part-000.tar.zst\n", 1},
		{"empty path", testSum("a") + "  \n", 1},
		{"empty manifest", "", 0},
		{"blank only", "\n\n", 2},
		{
			"duplicate filename",
			testSum("a") + "  a/part-000.tar.zst\n" + testSum("b") + "  b/part-000.tar.zst\n",
			2,
		},
		{
			"bad line after good one",
			testSum("a") + "  part-000.tar.zst\nnot a manifest line\n",
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.text))
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestFind(t *testing.T) {
	m, err := Parse(strings.NewReader(testSum("a") + "  part-000.tar.zst\n"))
	require.NoError(t, err)

	e, ok := m.Find("part-000.tar.zst")
	require.True(t, ok)
	assert.Equal(t, testSum("a"), e.Checksum)

	_, ok = m.Find("part-999.tar.zst")
	assert.False(t, ok)
}

func TestFetchHTTP(t *testing.T) {
	text := testSum("a") + "  parts/part-000.tar.zst\n" +
		testSum("b") + "  https://cdn.example.com/part-001.tar.zst\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snapshots/mainnet/manifest.txt", r.URL.Path)
		fmt.Fprint(w, text)
	}))
	defer srv.Close()

	m, raw, err := Fetch(context.Background(), srv.URL+"/snapshots/mainnet/manifest.txt")
	require.NoError(t, err)
	assert.Equal(t, text, string(raw))

	// Relative entries resolve against the manifest URL, absolute ones pass
	// through untouched.
	assert.Equal(t, srv.URL+"/snapshots/mainnet/parts/part-000.tar.zst", m.Entries[0].SourceURL)
	assert.Equal(t, "https://cdn.example.com/part-001.tar.zst", m.Entries[1].SourceURL)
}

func TestFetchHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := Fetch(context.Background(), srv.URL+"/manifest.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.txt")
	text := testSum("a") + "  part-000.tar.zst\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	m, raw, err := Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, text, string(raw))
	// Local manifests keep relative sources as written.
	assert.Equal(t, "part-000.tar.zst", m.Entries[0].SourceURL)
}

func TestFetchLocalMissing(t *testing.T) {
	_, _, err := Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFetchParseErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "garbage manifest\n")
	}))
	defer srv.Close()

	_, _, err := Fetch(context.Background(), srv.URL+"/manifest.txt")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestVerifyChecksum(t *testing.T) {
	assert.NoError(t, VerifyChecksum(testSum("a")))
	assert.NoError(t, VerifyChecksum(strings.ToUpper(testSum("a"))))
	assert.Error(t, VerifyChecksum("abc"))
	assert.Error(t, VerifyChecksum(strings.Repeat("g", 64)))
}
