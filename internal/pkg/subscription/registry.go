package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/eventbus"
)

// Registry keeps one Resolver per browser session.
type Registry struct {
	fetcher Fetcher
	catalog *catalog.Catalog
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*Resolver
}

func NewRegistry(f Fetcher, c *catalog.Catalog, log zerolog.Logger) *Registry {
	return &Registry{
		fetcher: f,
		catalog: c,
		log:     log.With().Str("service", "subscription").Logger(),
		now:     time.Now,
		entries: make(map[string]*Resolver),
	}
}

// For returns the resolver for a session, creating it on first use.
func (g *Registry) For(sessionID string) *Resolver {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.entries[sessionID]; ok {
		return r
	}
	r := NewResolver(g.fetcher, g.catalog, g.log)
	r.now = g.now
	r.lastUsed = g.now()
	g.entries[sessionID] = r
	return r
}

// Forget resets and drops the session's resolver.
func (g *Registry) Forget(sessionID string) {
	g.mu.Lock()
	r, ok := g.entries[sessionID]
	delete(g.entries, sessionID)
	g.mu.Unlock()
	if ok {
		r.Reset()
	}
}

// Sweep drops resolvers unused for longer than idle.
func (g *Registry) Sweep(idle time.Duration) int {
	cutoff := g.now().Add(-idle)
	g.mu.Lock()
	var stale []*Resolver
	for id, r := range g.entries {
		if r.idleSince().Before(cutoff) {
			stale = append(stale, r)
			delete(g.entries, id)
		}
	}
	g.mu.Unlock()

	for _, r := range stale {
		r.Reset()
	}
	return len(stale)
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Watch applies identity events until ctx ends or events closes. Any
// identity change invalidates the affected sessions' resolvers.
func (g *Registry) Watch(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			g.apply(e)
		}
	}
}

func (g *Registry) apply(e eventbus.Event) {
	switch e.Type {
	case eventbus.SignedIn:
		if e.PreviousSessionID != "" {
			g.Forget(e.PreviousSessionID)
		}
		g.Forget(e.SessionID)
	case eventbus.SignedOut, eventbus.Expired:
		g.Forget(e.SessionID)
	default:
		return
	}
	g.log.Debug().Str("event", e.Type).Str("user_id", e.UserID).Msg("subscription state invalidated")
}

// Run sweeps idle resolvers every interval until ctx ends.
func (g *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := g.Sweep(idle); n > 0 {
				g.log.Debug().Int("swept", n).Msg("dropped idle subscription resolvers")
			}
		}
	}
}
