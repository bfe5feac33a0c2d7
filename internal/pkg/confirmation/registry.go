package confirmation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/eventbus"
)

// Registry holds the current tracker of each browser session.
type Registry struct {
	cfg   Config
	after AfterFunc
	log   zerolog.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewRegistry(cfg Config, log zerolog.Logger) *Registry {
	return &Registry{
		cfg:      cfg.withDefaults(),
		after:    realAfterFunc,
		log:      log.With().Str("service", "confirmation").Logger(),
		trackers: make(map[string]*Tracker),
	}
}

// Begin starts a tracker for the session, replacing and stopping any earlier
// one.
func (g *Registry) Begin(sessionID string, refetch RefetchFunc) *Tracker {
	t := NewTracker(g.cfg, refetch, g.log)
	t.after = g.after

	g.mu.Lock()
	old := g.trackers[sessionID]
	g.trackers[sessionID] = t
	g.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	t.Start()
	return t
}

func (g *Registry) Get(sessionID string) (*Tracker, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.trackers[sessionID]
	return t, ok
}

func (g *Registry) Forget(sessionID string) {
	g.mu.Lock()
	t, ok := g.trackers[sessionID]
	delete(g.trackers, sessionID)
	g.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// Sweep drops finished trackers older than maxAge.
func (g *Registry) Sweep(maxAge time.Duration) int {
	now := time.Now()
	g.mu.Lock()
	var stale []*Tracker
	for id, t := range g.trackers {
		if t.age(now) > maxAge && t.Finished() {
			stale = append(stale, t)
			delete(g.trackers, id)
		}
	}
	g.mu.Unlock()
	for _, t := range stale {
		t.Stop()
	}
	return len(stale)
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.trackers)
}

// Watch stops trackers of sessions that lose their identity.
func (g *Registry) Watch(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case eventbus.SignedOut, eventbus.Expired:
				g.Forget(e.SessionID)
			case eventbus.SignedIn:
				if e.PreviousSessionID != "" {
					g.Forget(e.PreviousSessionID)
				}
			}
		}
	}
}

// Run sweeps finished trackers every interval until ctx ends.
func (g *Registry) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			g.stopAll()
			return
		case <-ticker.C:
			g.Sweep(maxAge)
		}
	}
}

func (g *Registry) stopAll() {
	g.mu.Lock()
	all := g.trackers
	g.trackers = make(map[string]*Tracker)
	g.mu.Unlock()
	for _, t := range all {
		t.Stop()
	}
}
