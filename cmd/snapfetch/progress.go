package main

import (
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/verify"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// verifyProgress renders a part-count bar on stderr during verification
// passes. Each pass restarts the bar, so recovery cycles show their own
// narrower totals. The bar stays off when stderr is not a terminal.
type verifyProgress struct {
	mu      sync.Mutex
	enabled bool
	bar     *pb.ProgressBar
}

func newVerifyProgress() *verifyProgress {
	enabled := !viper.GetBool("no_progress") && !getQuiet() &&
		term.IsTerminal(int(os.Stderr.Fd()))
	return &verifyProgress{enabled: enabled}
}

// Start opens a fresh bar for a pass over the given number of parts.
func (p *verifyProgress) Start(parts int) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
	}
	p.bar = pb.New(parts)
	p.bar.SetWriter(os.Stderr)
	p.bar.Start()
}

// Observe advances the bar by one settled part.
func (p *verifyProgress) Observe(_ verify.Outcome) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Increment()
	}
}

// Finish closes the bar if one is open.
func (p *verifyProgress) Finish() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
