// Package sweeper evicts stale and consumed sessions on a fixed interval.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/facturkit/facturkit/internal/model"
	"github.com/facturkit/facturkit/internal/session"
)

// Sweeper periodically deletes sessions that are already downloaded or
// older than the retention window.
type Sweeper struct {
	store     *session.Store
	interval  time.Duration
	retention time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// New constructs a Sweeper. interval is the sweep period, retention the
// maximum age of a session that has not been downloaded yet.
func New(store *session.Store, interval, retention time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		store:     store,
		interval:  interval,
		retention: retention,
		log:       log,
		now:       time.Now,
	}
}

// Run sweeps on every tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info("sweeper started", "interval", s.interval, "retention", s.retention)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep inspects every known session once and deletes the eligible ones.
// It returns the number of sessions removed. A session disappearing between
// enumeration and inspection is treated as already cleaned up.
func (s *Sweeper) Sweep() int {
	now := s.now()
	removed := 0
	for _, id := range s.store.ListIDs() {
		status, ok := s.store.Get(id)
		if !ok {
			continue
		}
		if !s.eligible(status, now) {
			continue
		}
		s.store.Delete(id)
		removed++
		s.log.Info("swept session", "sessionId", id, "status", status.Kind())
	}
	if removed > 0 {
		s.log.Info("sweep completed", "removed", removed)
	}
	return removed
}

// eligible: downloaded sessions go unconditionally, everything else goes
// once it is older than the retention window.
func (s *Sweeper) eligible(status model.Status, now time.Time) bool {
	if _, ok := status.(model.Downloaded); ok {
		return true
	}
	return now.Sub(status.Timestamp()) >= s.retention
}
