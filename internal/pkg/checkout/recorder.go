package checkout

import (
	"context"
	"time"
)

const (
	OutcomeRedirected  = "redirected"
	OutcomeRejected    = "rejected"
	OutcomeUnreachable = "unreachable"
	OutcomeAbandoned   = "abandoned"
)

// Attempt is the audit entry for one checkout request.
type Attempt struct {
	ID         string
	UserID     string
	PriceID    string
	Mode       string
	Outcome    string
	HTTPStatus int
	Error      string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Recorder persists attempts. Failures are logged and never block checkout.
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(context.Context, Attempt) error { return nil }
