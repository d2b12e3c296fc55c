// Command snapfetch downloads and verifies blockchain node snapshots.
//
// A snapshot run fetches the manifest, hands the bulk transfer to an
// external downloader, verifies every part against its checksum, and
// retries failed parts until the snapshot is intact or the attempt
// budget runs out.
//
// Exit codes: 0 when every part verified, 2 when verification completed
// but parts failed, 1 for usage and I/O errors.
package main

import (
	"errors"
	"os"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/engine"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/logging"
)

// errVerificationFailed marks a run that completed but left invalid
// parts behind. It maps to exit code 2 rather than 1 so scripts can
// tell "snapshot is bad" from "snapfetch broke".
var errVerificationFailed = errors.New("verification failed")

func main() {
	err := Execute()
	_ = logging.Close()
	if err != nil {
		if errors.Is(err, errVerificationFailed) || errors.Is(err, engine.ErrExhausted) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
