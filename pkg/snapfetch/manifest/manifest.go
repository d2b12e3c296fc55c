package manifest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
)

// fieldSep separates checksum and path, matching sha256sum output.
const fieldSep = "  "

// maxManifestSize caps how much manifest text Fetch will read. Real
// manifests are a few kilobytes; anything near this limit is a broken
// endpoint, not a snapshot.
const maxManifestSize = 16 << 20

// fetchTimeout bounds the whole manifest HTTP exchange when the caller's
// context carries no deadline of its own.
const fetchTimeout = 30 * time.Second

// Parse reads manifest text and returns the part list. It returns a
// *ParseError for the first malformed line: a bad separator, a checksum
// that is not a well-formed digest, an empty path field, or a filename
// that appears twice. An empty manifest is also rejected, since a zero-part
// snapshot only ever means a broken manifest source.
func Parse(r io.Reader) (*Manifest, error) {
	var entries []Entry
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		sum, source, ok := strings.Cut(line, fieldSep)
		if !ok {
			return nil, &ParseError{Line: lineNo, Reason: "expected '<checksum>  <path>' separated by two spaces"}
		}
		source = strings.TrimSpace(source)
		if source == "" {
			return nil, &ParseError{Line: lineNo, Reason: "empty path field"}
		}

		sum = strings.ToLower(strings.TrimSpace(sum))
		if err := checksumAlgorithm.Validate(sum); err != nil {
			return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("invalid %s checksum %q", checksumAlgorithm, sum)}
		}

		name := baseName(source)
		if name == "" || name == "." || name == "/" {
			return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("path %q has no usable basename", source)}
		}
		if prev, dup := seen[name]; dup {
			return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("duplicate filename %q (first listed on line %d)", name, prev)}
		}
		seen[name] = lineNo

		entries = append(entries, Entry{
			Checksum:  sum,
			SourceURL: source,
			Filename:  name,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(entries) == 0 {
		return nil, &ParseError{Line: lineNo, Reason: "manifest lists no parts"}
	}

	return &Manifest{Entries: entries}, nil
}

// Fetch retrieves and parses the manifest at source, which is either an
// http(s) URL or a local file path. It returns the parsed manifest together
// with the raw text, which callers persist to detect manifest changes
// between runs. For HTTP sources, relative part paths are resolved against
// the manifest URL so entries are directly downloadable.
func Fetch(ctx context.Context, source string) (*Manifest, []byte, error) {
	var (
		raw []byte
		err error
	)
	if isHTTP(source) {
		raw, err = fetchHTTP(ctx, source)
	} else {
		raw, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fetch manifest %s: %w", source, err)
	}

	m, err := Parse(strings.NewReader(string(raw)))
	if err != nil {
		return nil, nil, fmt.Errorf("parse manifest %s: %w", source, err)
	}

	if isHTTP(source) {
		if err := resolveSources(m, source); err != nil {
			return nil, nil, err
		}
	}
	return m, raw, nil
}

func isHTTP(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxManifestSize {
		return nil, fmt.Errorf("manifest exceeds %d bytes", maxManifestSize)
	}
	return raw, nil
}

// resolveSources rewrites relative entry paths to absolute URLs using the
// manifest's own URL as the base.
func resolveSources(m *Manifest, manifestURL string) error {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return fmt.Errorf("parse manifest url %s: %w", manifestURL, err)
	}
	for i, e := range m.Entries {
		ref, err := url.Parse(e.SourceURL)
		if err != nil {
			return fmt.Errorf("entry %s: parse source %q: %w", e.Filename, e.SourceURL, err)
		}
		m.Entries[i].SourceURL = base.ResolveReference(ref).String()
	}
	return nil
}

// baseName extracts the on-disk filename from a manifest path field. URL
// query and fragment parts never belong to the filename.
func baseName(source string) string {
	if isHTTP(source) {
		if u, err := url.Parse(source); err == nil {
			return path.Base(u.Path)
		}
	}
	name := source
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return path.Base(name)
}

// VerifyChecksum reports whether encoded is a well-formed digest for the
// manifest's algorithm. Other packages use it to validate operator-supplied
// checksums before a verification pass.
func VerifyChecksum(encoded string) error {
	return checksumAlgorithm.Validate(strings.ToLower(encoded))
}

// Algorithm returns the digest algorithm manifests use.
func Algorithm() digest.Algorithm {
	return checksumAlgorithm
}
