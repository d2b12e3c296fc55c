// Package checksum persists verified content digests keyed by file
// identity.
//
// Each record pairs the digest computed for a snapshot part with the
// metadata fingerprint the part carried at hashing time. A record vouches
// for its digest only while the part's current fingerprint still matches;
// any drift means the contents must be rehashed. Records are never trusted
// on age alone and never expire on their own.
//
// The cache is strictly an accelerator. Every operation degrades to a miss
// on failure, so a corrupt or unavailable store slows a run down but never
// fails it and never changes a verification verdict.
package checksum

import (
	"bytes"
	"encoding/gob"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/fingerprint"
)

// KeySeparator separates working directory from filename in store keys.
const KeySeparator = '\x00'

// Record is one cached digest with the fingerprint that justifies it.
type Record struct {
	// Checksum is the lowercase hex digest computed from file contents.
	Checksum string

	// ModTime is the file's modification time in Unix seconds at hashing.
	ModTime int64

	// Size is the file length in bytes at hashing.
	Size int64
}

// Fingerprint returns the file identity captured when the record was made.
func (r *Record) Fingerprint() fingerprint.Fingerprint {
	return fingerprint.Fingerprint{ModTime: r.ModTime, Size: r.Size}
}

// Encode serializes the record to bytes using gob.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the record using gob.
func (r *Record) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

// MakeKey creates a store key from working directory and filename.
// Format: <dir>\x00<filename>
func MakeKey(dir, filename string) []byte {
	return []byte(dir + string(KeySeparator) + filename)
}

// ParseKey extracts working directory and filename from a store key.
func ParseKey(key []byte) (dir, filename string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix for all keys under a working directory.
func MakeKeyPrefix(dir string) []byte {
	return []byte(dir + string(KeySeparator))
}
