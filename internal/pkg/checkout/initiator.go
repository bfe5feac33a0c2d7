package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
)

// Request is the body sent to the checkout-session endpoint.
type Request struct {
	PriceID    string       `json:"price_id" validate:"required"`
	Mode       catalog.Mode `json:"mode" validate:"required,oneof=payment subscription"`
	SuccessURL string       `json:"success_url" validate:"required,url"`
	CancelURL  string       `json:"cancel_url" validate:"required,url"`
}

type response struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Input is one checkout attempt. Token is the caller's access token as read
// at click time; empty means absent.
type Input struct {
	Identity   *auth.Identity
	Token      string
	Plan       catalog.Plan
	SuccessURL string
	CancelURL  string
}

type Result struct {
	AttemptID   string
	RedirectURL string
}

type Option func(*Initiator)

func WithHTTPClient(c *http.Client) Option {
	return func(in *Initiator) { in.http = c }
}

func WithGuard(g Guard) Option {
	return func(in *Initiator) { in.guard = g }
}

func WithRecorder(r Recorder) Option {
	return func(in *Initiator) { in.recorder = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(in *Initiator) { in.log = l }
}

// Initiator creates hosted checkout sessions. It never retries: every
// attempt is one user action.
type Initiator struct {
	endpoint string
	http     *http.Client
	guard    Guard
	recorder Recorder
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
}

func NewInitiator(endpoint string, opts ...Option) *Initiator {
	in := &Initiator{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		guard:    NewMemoryGuard(),
		recorder: nopRecorder{},
		validate: validator.New(),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.log = in.log.With().Str("service", "checkout").Logger()
	return in
}

// Initiate asks the endpoint for a checkout session and returns the URL the
// browser must be sent to.
func (in *Initiator) Initiate(ctx context.Context, input Input) (Result, error) {
	if input.Identity == nil {
		return Result{}, ErrAuthRequired
	}
	if input.Token == "" {
		return Result{}, ErrAuthRequired
	}

	req := Request{
		PriceID:    input.Plan.PriceID,
		Mode:       input.Plan.Mode,
		SuccessURL: input.SuccessURL,
		CancelURL:  input.CancelURL,
	}
	if err := in.validate.Struct(req); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	release, err := in.guard.Acquire(ctx, input.Identity.UserID)
	if err != nil {
		if !errors.Is(err, ErrCheckoutInProgress) {
			return Result{}, fmt.Errorf("acquire checkout guard: %w", err)
		}
		in.log.Info().Str("user_id", input.Identity.UserID).Msg("checkout already in flight, ignoring repeat")
		return Result{}, err
	}
	defer release()

	attempt := Attempt{
		ID:        uuid.NewString(),
		UserID:    input.Identity.UserID,
		PriceID:   req.PriceID,
		Mode:      string(req.Mode),
		CreatedAt: in.now(),
	}
	start := in.now()

	redirect, status, err := in.post(ctx, attempt.ID, input.Token, req)

	attempt.HTTPStatus = status
	attempt.Duration = in.now().Sub(start)
	switch {
	case err == nil:
		attempt.Outcome = OutcomeRedirected
	case errors.Is(err, ErrNetworkUnavailable):
		attempt.Outcome = OutcomeUnreachable
		attempt.Error = err.Error()
	case errors.Is(err, context.Canceled):
		attempt.Outcome = OutcomeAbandoned
	default:
		attempt.Outcome = OutcomeRejected
		attempt.Error = UserMessage(err)
	}
	in.record(ctx, attempt)

	if err != nil {
		in.log.Warn().Err(err).Str("attempt_id", attempt.ID).Str("price_id", req.PriceID).Msg("checkout session creation failed")
		return Result{AttemptID: attempt.ID}, err
	}
	in.log.Info().Str("attempt_id", attempt.ID).Str("price_id", req.PriceID).Msg("checkout session created")
	return Result{AttemptID: attempt.ID, RedirectURL: redirect}, nil
}

func (in *Initiator) post(ctx context.Context, attemptID, token string, body Request) (string, int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, in.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", attemptID)

	resp, err := in.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return "", 0, ctxErr
		}
		return "", 0, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out response
	decodeErr := json.Unmarshal(payload, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(out.Error)
		if decodeErr != nil || msg == "" {
			msg = msgFailed
		}
		return "", resp.StatusCode, &RemoteRejectedError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil || strings.TrimSpace(out.URL) == "" {
		return "", resp.StatusCode, &RemoteRejectedError{Status: resp.StatusCode, Message: msgNoURL}
	}

	u, err := url.Parse(strings.TrimSpace(out.URL))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", resp.StatusCode, &RemoteRejectedError{Status: resp.StatusCode, Message: msgInvalidURL}
	}
	return u.String(), resp.StatusCode, nil
}

func (in *Initiator) record(ctx context.Context, a Attempt) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := in.recorder.RecordAttempt(rctx, a); err != nil {
		in.log.Warn().Err(err).Str("attempt_id", a.ID).Msg("failed to record checkout attempt")
	}
}
