//go:build !unix

package tuner

// FreeSpace is unavailable on non-unix platforms. Callers treat the error
// as "unknown" and skip space checks.
func FreeSpace(path string) (int64, error) {
	return 0, ErrUnsupported
}
