package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/backend"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/eventbus"
)

// gatedFetcher blocks each fetch until the test releases that user's gate.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	records map[string]*Record
	errs    map[string]error
	started chan string
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates:   map[string]chan struct{}{},
		records: map[string]*Record{},
		errs:    map[string]error{},
		started: make(chan string, 8),
	}
}

func (f *gatedFetcher) gate(userID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gates[userID]
	if !ok {
		g = make(chan struct{})
		f.gates[userID] = g
	}
	return g
}

func (f *gatedFetcher) Fetch(ctx context.Context, id auth.Identity, _ string) (*Record, error) {
	g := f.gate(id.UserID)
	f.started <- id.UserID
	select {
	case <-g:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id.UserID], f.errs[id.UserID]
}

type staticFetcher struct {
	rec   *Record
	err   error
	calls int
}

func (f *staticFetcher) Fetch(context.Context, auth.Identity, string) (*Record, error) {
	f.calls++
	return f.rec, f.err
}

const elitePriceID = "price_1Rb5hRE9sWWwOMdjGvCyFdjj"

func TestLastIdentityWins(t *testing.T) {
	f := newGatedFetcher()
	f.records["A"] = &Record{Status: StatusActive, PriceID: "price_A"}
	f.records["B"] = &Record{Status: StatusCanceled, PriceID: "price_B"}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())

	type result struct {
		snap Snapshot
		err  error
	}
	resA := make(chan result, 1)
	go func() {
		s, err := r.Resolve(context.Background(), &auth.Identity{UserID: "A"}, "ta")
		resA <- result{s, err}
	}()
	require.Equal(t, "A", <-f.started)

	resB := make(chan result, 1)
	go func() {
		s, err := r.Resolve(context.Background(), &auth.Identity{UserID: "B"}, "tb")
		resB <- result{s, err}
	}()
	require.Equal(t, "B", <-f.started)

	close(f.gate("B"))
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "B", b.snap.Identity.UserID)

	close(f.gate("A"))
	a := <-resA
	assert.ErrorIs(t, a.err, ErrSuperseded)

	final := r.Snapshot()
	require.NotNil(t, final.Record)
	assert.Equal(t, "price_B", final.Record.PriceID)
	assert.Equal(t, "B", final.Identity.UserID)
	assert.False(t, r.IsActive())
}

func TestResetRestartsInFlightResolve(t *testing.T) {
	f := newGatedFetcher()
	f.records["A"] = &Record{Status: StatusActive, PriceID: elitePriceID}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())

	type result struct {
		snap Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		s, err := r.Resolve(context.Background(), &auth.Identity{UserID: "A"}, "ta")
		done <- result{s, err}
	}()
	require.Equal(t, "A", <-f.started)

	r.Reset()
	require.Equal(t, "A", <-f.started)
	assert.False(t, r.Snapshot().Loaded)

	close(f.gate("A"))
	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.snap.IsActive())
	assert.True(t, r.IsActive())
}

func TestConcurrentResolvesShareOneFetch(t *testing.T) {
	f := newGatedFetcher()
	f.records["A"] = &Record{Status: StatusActive, PriceID: elitePriceID}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())

	results := make(chan Snapshot, 2)
	resolve := func() {
		s, err := r.Resolve(context.Background(), &auth.Identity{UserID: "A"}, "ta")
		assert.NoError(t, err)
		results <- s
	}
	go resolve()
	require.Equal(t, "A", <-f.started)
	go resolve()
	time.Sleep(50 * time.Millisecond)

	close(f.gate("A"))
	for i := 0; i < 2; i++ {
		s := <-results
		assert.True(t, s.Loaded)
		assert.True(t, s.IsActive())
		assert.Equal(t, "A", s.Identity.UserID)
	}
	assert.Empty(t, f.started)
}

func TestResolveNilIdentity(t *testing.T) {
	f := &staticFetcher{rec: &Record{Status: StatusActive}}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())

	snap, err := r.Resolve(context.Background(), nil, "")
	require.NoError(t, err)
	assert.True(t, snap.Loaded)
	assert.Nil(t, snap.Record)
	assert.Equal(t, 0, f.calls)
	_, ok := r.CurrentPlan()
	assert.False(t, ok)
}

func TestResolveActivePlan(t *testing.T) {
	f := &staticFetcher{rec: &Record{Status: StatusTrialing, PriceID: elitePriceID}}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())

	_, err := r.Resolve(context.Background(), &auth.Identity{UserID: "u1"}, "t")
	require.NoError(t, err)
	assert.True(t, r.IsActive())
	plan, ok := r.CurrentPlan()
	require.True(t, ok)
	assert.Equal(t, "ELITE", plan.Name)
	assert.Empty(t, r.Error())
}

func TestUnknownPriceDegrades(t *testing.T) {
	f := &staticFetcher{rec: &Record{Status: StatusActive, PriceID: "price_retired"}}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())

	_, err := r.Resolve(context.Background(), &auth.Identity{UserID: "u1"}, "t")
	require.NoError(t, err)
	assert.True(t, r.IsActive())
	_, ok := r.CurrentPlan()
	assert.False(t, ok)
}

func TestFetchFailureBecomesMessage(t *testing.T) {
	f := &staticFetcher{err: backend.ErrUnavailable}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())

	snap, err := r.Resolve(context.Background(), &auth.Identity{UserID: "u1"}, "t")
	require.NoError(t, err)
	assert.Equal(t, msgUnavailable, snap.Err)
	assert.Equal(t, msgUnavailable, r.Error())

	f.err = errors.New("decode failed")
	_, _ = r.Resolve(context.Background(), &auth.Identity{UserID: "u1"}, "t")
	assert.Equal(t, msgFetchFailed, r.Error())

	f.err = nil
	f.rec = nil
	_, _ = r.Resolve(context.Background(), &auth.Identity{UserID: "u1"}, "t")
	assert.Empty(t, r.Error())
}

func TestAbandonedCallerLeavesSharedFetchRunning(t *testing.T) {
	f := newGatedFetcher()
	f.records["A"] = &Record{Status: StatusActive, PriceID: elitePriceID}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, &auth.Identity{UserID: "A"}, "ta")
		done <- err
	}()
	<-f.started
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, r.Snapshot().Loaded)

	close(f.gate("A"))
	assert.Eventually(t, func() bool { return r.Snapshot().Loaded }, time.Second, 5*time.Millisecond)
	assert.True(t, r.IsActive())
}

func TestSnapshotIsCopy(t *testing.T) {
	end := time.Unix(1750000000, 0).UTC()
	f := &staticFetcher{rec: &Record{Status: StatusActive, PriceID: elitePriceID, CurrentPeriodEnd: &end}}
	r := NewResolver(f, catalog.Default(), zerolog.Nop())
	_, err := r.Resolve(context.Background(), &auth.Identity{UserID: "u1"}, "t")
	require.NoError(t, err)

	snap := r.Snapshot()
	snap.Record.Status = StatusCanceled
	*snap.Record.CurrentPeriodEnd = time.Time{}
	snap.Identity.UserID = "other"

	again := r.Snapshot()
	assert.Equal(t, StatusActive, again.Record.Status)
	assert.Equal(t, end, *again.Record.CurrentPeriodEnd)
	assert.Equal(t, "u1", again.Identity.UserID)
}

func TestRegistryWatchInvalidatesOnIdentityChange(t *testing.T) {
	f := &staticFetcher{rec: &Record{Status: StatusActive, PriceID: elitePriceID}}
	g := NewRegistry(f, catalog.Default(), zerolog.Nop())

	_, err := g.For("s1").Resolve(context.Background(), &auth.Identity{UserID: "u1"}, "t")
	require.NoError(t, err)
	_, err = g.For("s2").Resolve(context.Background(), &auth.Identity{UserID: "u2"}, "t")
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())

	events := make(chan eventbus.Event, 2)
	events <- eventbus.Event{Type: eventbus.SignedOut, SessionID: "s1"}
	events <- eventbus.Event{Type: eventbus.SignedIn, SessionID: "s3", PreviousSessionID: "s2"}
	close(events)
	g.Watch(context.Background(), events)

	assert.Equal(t, 0, g.Len())
	assert.False(t, g.For("s1").IsActive())
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := NewRegistry(&staticFetcher{}, catalog.Default(), zerolog.Nop())
	g.now = func() time.Time { return now }

	g.For("old")
	now = now.Add(time.Hour)
	g.For("fresh")

	assert.Equal(t, 1, g.Sweep(30*time.Minute))
	assert.Equal(t, 1, g.Len())
}

func TestFromRow(t *testing.T) {
	assert.Nil(t, FromRow(nil))

	status := "past_due"
	price := "price_X"
	start := int64(1748736000)
	cancel := true
	brand, last4 := "visa", "4242"
	rec := FromRow(&backend.SubscriptionRow{
		SubscriptionStatus: &status,
		PriceID:            &price,
		CurrentPeriodStart: &start,
		CancelAtPeriodEnd:  &cancel,
		PaymentMethodBrand: &brand,
		PaymentMethodLast4: &last4,
	})
	require.NotNil(t, rec)
	assert.Equal(t, StatusPastDue, rec.Status)
	assert.Equal(t, "PAST DUE", rec.Status.Label())
	assert.Equal(t, "yellow", rec.Status.Tone())
	assert.Equal(t, time.Unix(start, 0).UTC(), *rec.CurrentPeriodStart)
	assert.Nil(t, rec.CurrentPeriodEnd)
	assert.True(t, rec.CancelAtPeriodEnd)
	assert.Equal(t, "visa ending in 4242", rec.PaymentMethod())
	assert.False(t, rec.IsActive())
	assert.True(t, rec.Started())

	empty := FromRow(&backend.SubscriptionRow{})
	assert.Equal(t, StatusNotStarted, empty.Status)
	assert.False(t, empty.Started())
}
