package download

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/logging"
)

// activityMonitor watches the working directory for filesystem events
// while a downloader runs. Any event counts as liveness: part data being
// written, control files appearing, completed parts being renamed into
// place. Watching is non-recursive because parts land flat in the
// working directory.
type activityMonitor struct {
	watcher *fsnotify.Watcher
	log     *logging.Logger

	mu   sync.Mutex
	last time.Time // zero until the first event

	done chan struct{}
}

// watchActivity starts monitoring dir. When the platform watcher cannot be
// set up the monitor is returned disabled, which also disables the
// timeouts that depend on it; supervision then rests on process exit alone.
func watchActivity(dir string, log *logging.Logger) *activityMonitor {
	m := &activityMonitor{log: log, done: make(chan struct{})}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("filesystem watcher unavailable, liveness timeouts disabled", "error", err)
		return m
	}
	if err := watcher.Add(dir); err != nil {
		log.Warn("cannot watch working directory, liveness timeouts disabled",
			"dir", dir, "error", err)
		_ = watcher.Close()
		return m
	}
	m.watcher = watcher

	go m.run()
	return m
}

func (m *activityMonitor) run() {
	for {
		select {
		case <-m.done:
			return
		case _, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.mu.Lock()
			m.last = time.Now()
			m.mu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("watcher error", "error", err)
		}
	}
}

// Enabled reports whether events are being observed at all.
func (m *activityMonitor) Enabled() bool {
	return m.watcher != nil
}

// Last returns the time of the most recent event and whether any event has
// been seen yet.
func (m *activityMonitor) Last() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, !m.last.IsZero()
}

// Close stops the monitor.
func (m *activityMonitor) Close() {
	close(m.done)
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
}
