package subscription

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/backend"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
)

// ErrSuperseded is returned by a resolve whose identity was replaced by a
// later resolve for another identity. Its result was discarded.
var ErrSuperseded = errors.New("subscription resolve superseded")

// errRestart tells callers of a flight invalidated by Reset to join the next
// one for the same identity.
var errRestart = errors.New("subscription resolve restarted")

const (
	msgFetchFailed = "Failed to load subscription details. Please try again."
	msgUnavailable = "Unable to reach the subscription service. Please try again."

	defaultFetchTimeout = 10 * time.Second
	maxRejoins          = 3
)

// Fetcher reads the subscription row for an identity. A nil record with a
// nil error means the identity never subscribed.
type Fetcher interface {
	Fetch(ctx context.Context, id auth.Identity, accessToken string) (*Record, error)
}

// Resolver holds the last committed subscription snapshot for one browser
// session. Concurrent resolves for the same identity share one fetch; a
// resolve for another identity invalidates it.
type Resolver struct {
	fetcher Fetcher
	catalog *catalog.Catalog
	log     zerolog.Logger
	now     func() time.Time
	flights singleflight.Group

	mu       sync.Mutex
	gen      uint64
	owner    string
	cancel   context.CancelFunc
	snap     Snapshot
	lastUsed time.Time
}

func NewResolver(f Fetcher, c *catalog.Catalog, log zerolog.Logger) *Resolver {
	return &Resolver{
		fetcher:  f,
		catalog:  c,
		log:      log,
		now:      time.Now,
		lastUsed: time.Now(),
	}
}

// Resolve fetches the record for id and commits it, joining a fetch already
// in flight for the same identity. A fetch failure is committed as a user
// message and is not returned as an error. A caller whose ctx ends gets
// ctx.Err() while the shared fetch runs on to completion.
func (r *Resolver) Resolve(ctx context.Context, id *auth.Identity, accessToken string) (Snapshot, error) {
	if id == nil {
		r.mu.Lock()
		r.invalidateLocked()
		r.owner = ""
		r.lastUsed = r.now()
		r.snap = Snapshot{Loaded: true, FetchedAt: r.now()}
		out := r.snap.clone()
		r.mu.Unlock()
		return out, nil
	}

	owner := *id
	for i := 0; i < maxRejoins; i++ {
		r.mu.Lock()
		if r.owner != owner.UserID {
			if i > 0 {
				r.mu.Unlock()
				return r.Snapshot(), ErrSuperseded
			}
			r.invalidateLocked()
			r.owner = owner.UserID
		}
		gen := r.gen
		r.lastUsed = r.now()
		r.mu.Unlock()

		key := owner.UserID + "#" + strconv.FormatUint(gen, 10)
		ch := r.flights.DoChan(key, func() (any, error) {
			return r.fly(ctx, gen, owner, accessToken)
		})

		select {
		case <-ctx.Done():
			return r.Snapshot(), ctx.Err()
		case res := <-ch:
			switch {
			case errors.Is(res.Err, errRestart):
				continue
			case res.Err != nil:
				return r.Snapshot(), res.Err
			}
			return res.Val.(Snapshot).clone(), nil
		}
	}
	return r.Snapshot(), ErrSuperseded
}

// fly runs one shared fetch for generation gen and commits it if gen is
// still current.
func (r *Resolver) fly(ctx context.Context, gen uint64, owner auth.Identity, accessToken string) (any, error) {
	fetchCtx, cancel := fetchContext(ctx)
	defer cancel()

	r.mu.Lock()
	if gen != r.gen {
		err := r.lostLocked(owner.UserID)
		r.mu.Unlock()
		return nil, err
	}
	r.cancel = cancel
	r.mu.Unlock()

	rec, err := r.fetcher.Fetch(fetchCtx, owner, accessToken)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return nil, r.lostLocked(owner.UserID)
	}
	r.cancel = nil

	snap := Snapshot{Identity: &owner, Loaded: true, FetchedAt: r.now()}
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", owner.UserID).Msg("subscription fetch failed")
		snap.Err = userMessage(err)
	} else {
		snap.Record = rec.clone()
	}
	r.snap = snap
	return snap.clone(), nil
}

// lostLocked classifies a flight whose generation is no longer current.
func (r *Resolver) lostLocked(userID string) error {
	if r.owner == userID {
		return errRestart
	}
	return ErrSuperseded
}

func (r *Resolver) invalidateLocked() {
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// fetchContext detaches the shared fetch from the caller that started it,
// keeping its deadline.
func fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(base, deadline)
	}
	return context.WithTimeout(base, defaultFetchTimeout)
}

// Reset drops the committed snapshot. A fetch in flight is cancelled and its
// callers join a fresh one.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateLocked()
	r.snap = Snapshot{}
}

func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.clone()
}

func (r *Resolver) IsActive() bool {
	return r.Snapshot().IsActive()
}

func (r *Resolver) CurrentPlan() (catalog.Plan, bool) {
	return r.Snapshot().CurrentPlan(r.catalog)
}

// Error is the last fetch failure as a displayable message, or "".
func (r *Resolver) Error() string {
	return r.Snapshot().Err
}

func (r *Resolver) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUsed
}

func userMessage(err error) string {
	if backend.IsUnavailable(err) || errors.Is(err, context.DeadlineExceeded) {
		return msgUnavailable
	}
	return msgFetchFailed
}
