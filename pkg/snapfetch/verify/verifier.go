package verify

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/checksum"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/fingerprint"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/logging"
)

// hashBufSize is the copy buffer for hashing. Snapshot parts are large
// sequential files, so reads are sized well above the io.Copy default.
const hashBufSize = 1 << 20

// Verifier checks individual parts in one working directory. It consults
// the checksum cache before hashing and records fresh digests after. Safe
// for concurrent use.
type Verifier struct {
	dir     string
	cache   *checksum.Cache
	alg     digest.Algorithm
	onBytes func(int64)
	log     *logging.Logger
}

// NewVerifier returns a verifier for parts under dir. cache may be nil to
// disable caching. onBytes, when non-nil, receives hashed byte counts as
// hashing progresses and must be safe to call from multiple goroutines.
func NewVerifier(dir string, cache *checksum.Cache, onBytes func(int64)) *Verifier {
	return &Verifier{
		dir:     dir,
		cache:   cache,
		alg:     digest.SHA256,
		onBytes: onBytes,
		log:     logging.Get("verify"),
	}
}

// Verify checks one part against its expected digest and returns the
// outcome. It never returns an error: read failures are an outcome too,
// so a pass over many parts always completes.
func (v *Verifier) Verify(filename, expected string) Outcome {
	expected = strings.ToLower(expected)
	out := Outcome{Filename: filename, Expected: expected}

	path := filepath.Join(v.dir, filename)
	fp, err := fingerprint.Probe(path)
	if err != nil {
		out.Status = StatusIOError
		out.Error = err.Error()
		return out
	}

	sum, hit := v.cache.Lookup(v.dir, filename, fp)
	if hit {
		v.log.Debug("digest from cache", "filename", filename)
	} else {
		sum, err = v.hashFile(path)
		if err != nil {
			out.Status = StatusIOError
			out.Error = err.Error()
			return out
		}
		v.cache.Record(v.dir, filename, sum, fp)
	}
	out.Actual = sum
	out.Cached = hit

	if !strings.EqualFold(sum, expected) {
		out.Status = StatusMismatch
		v.log.Warn("checksum mismatch", "filename", filename,
			"expected", expected, "actual", sum)
		return out
	}

	out.Status = StatusOK
	return out
}

// hashFile computes the content digest of the file at path.
func (v *Verifier) hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	digester := v.alg.Digester()
	var w io.Writer = digester.Hash()
	if v.onBytes != nil {
		w = io.MultiWriter(w, countWriter{v.onBytes})
	}

	buf := make([]byte, hashBufSize)
	if _, err := io.CopyBuffer(w, f, buf); err != nil {
		return "", err
	}
	return digester.Digest().Encoded(), nil
}

// countWriter forwards written byte counts to a callback.
type countWriter struct {
	fn func(int64)
}

func (w countWriter) Write(p []byte) (int, error) {
	w.fn(int64(len(p)))
	return len(p), nil
}
