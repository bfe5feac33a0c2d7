package confirmation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type State string

const (
	AwaitingWebhook State = "awaiting_webhook"
	Resolved        State = "resolved"
)

// RefetchFunc re-reads subscription state and reports whether it is now
// active.
type RefetchFunc func(ctx context.Context) (settled bool)

// Timer is the part of *time.Timer the tracker uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc in production.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Config struct {
	// Grace is how long to wait for the payment webhook before re-reading.
	Grace time.Duration
	// FollowUps is how many extra re-reads to make, with doubling delay,
	// while the subscription is still not active. Zero disables them.
	FollowUps     int
	FollowUpDelay time.Duration
	// RefetchTimeout bounds each re-read.
	RefetchTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Grace <= 0 {
		c.Grace = 3 * time.Second
	}
	if c.FollowUpDelay <= 0 {
		c.FollowUpDelay = 5 * time.Second
	}
	if c.RefetchTimeout <= 0 {
		c.RefetchTimeout = 10 * time.Second
	}
	if c.FollowUps < 0 {
		c.FollowUps = 0
	}
	return c
}

// Tracker is the post-checkout state machine for one landing on the
// confirmation page: AwaitingWebhook until the grace timer fires, then
// Resolved with one re-fetch.
type Tracker struct {
	cfg     Config
	refetch RefetchFunc
	after   AfterFunc
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	started   bool
	stopped   bool
	inFlight  bool
	settled   bool
	refetches int
	followUps int
	delay     time.Duration
	timer     Timer
	startedAt time.Time
}

func NewTracker(cfg Config, refetch RefetchFunc, log zerolog.Logger) *Tracker {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		cfg:       cfg,
		refetch:   refetch,
		after:     realAfterFunc,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		state:     AwaitingWebhook,
		followUps: cfg.FollowUps,
		delay:     cfg.FollowUpDelay,
	}
}

// Start arms the grace timer. Calling it again has no effect.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return
	}
	t.started = true
	t.startedAt = time.Now()
	t.timer = t.after(t.cfg.Grace, t.onGrace)
}

// Stop abandons the tracker: pending timers are cancelled and an in-flight
// re-fetch sees its context cancelled.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
	t.cancel()
}

func (t *Tracker) onGrace() {
	t.mu.Lock()
	if t.stopped || t.state == Resolved {
		t.mu.Unlock()
		return
	}
	t.state = Resolved
	t.timer = nil
	t.inFlight = true
	t.mu.Unlock()

	t.run()
}

func (t *Tracker) onFollowUp() {
	t.mu.Lock()
	if t.stopped || t.settled {
		t.mu.Unlock()
		return
	}
	// Cleared together so Finished never sees neither a timer nor a fetch.
	t.timer = nil
	t.inFlight = true
	t.mu.Unlock()

	t.run()
}

// run performs one re-fetch. The caller has already marked it in flight.
func (t *Tracker) run() {
	ctx, cancel := context.WithTimeout(t.ctx, t.cfg.RefetchTimeout)
	settled := t.refetch(ctx)
	cancel()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight = false
	t.refetches++
	t.settled = settled
	if t.stopped || settled || t.followUps == 0 {
		return
	}
	t.followUps--
	d := t.delay
	t.delay *= 2
	t.log.Debug().Dur("delay", d).Int("remaining", t.followUps).Msg("subscription not active yet, scheduling follow-up")
	t.timer = t.after(d, t.onFollowUp)
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Settled reports whether a re-fetch found an active subscription.
func (t *Tracker) Settled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}

// Finished reports that the tracker will do no more work: resolved, nothing
// in flight and no follow-up pending.
func (t *Tracker) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return true
	}
	return t.state == Resolved && !t.inFlight && t.refetches > 0 && (t.settled || t.timer == nil)
}

// Refetches is the number of completed re-fetches.
func (t *Tracker) Refetches() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refetches
}

func (t *Tracker) age(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() {
		return 0
	}
	return now.Sub(t.startedAt)
}
