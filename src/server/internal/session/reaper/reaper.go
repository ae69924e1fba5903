package reaper

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
)

// Reaper sweeps the sessions root on an interval and removes any directory
// whose session is no longer live. Leftovers from a previous process run
// have no liveness entry at all, so the startup sweep clears those too.
type Reaper struct {
	store    sessionstore.Store
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func NewReaper(store sessionstore.Store, interval time.Duration) *Reaper {
	return &Reaper{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (r *Reaper) Start() {
	go func() {
		r.Sweep()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// Sweep removes every expired session directory, best-effort.
func (r *Reaper) Sweep() {
	dirEntries, err := os.ReadDir(r.store.Root())
	if err != nil {
		cerr.Log(cerr.Field("sessions_root", r.store.Root()).
			Wrap(err).Error("Failed to read sessions root for reaping"))
		return
	}

	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}

		sessionID := dirEntry.Name()
		if r.store.IsLive(sessionID) {
			continue
		}

		logger := log.WithField("session_id", sessionID)
		logger.Info("Reaping expired session")

		sessionDir := filepath.Join(r.store.Root(), sessionID)
		if err := os.RemoveAll(sessionDir); err != nil {
			cerr.Log(cerr.Field("session_dir", sessionDir).
				Wrap(err).Error("Failed to remove expired session directory"))
		}
	}
}
