package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
)

type memRecorder struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (r *memRecorder) RecordAttempt(_ context.Context, a Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return nil
}

func elite(t *testing.T) catalog.Plan {
	t.Helper()
	p, ok := catalog.Default().Lookup("price_1Rb5hRE9sWWwOMdjGvCyFdjj")
	require.True(t, ok)
	return p
}

func validInput(t *testing.T) Input {
	return Input{
		Identity:   &auth.Identity{UserID: "u1", Email: "a@x.io"},
		Token:      "tok",
		Plan:       elite(t),
		SuccessURL: "http://localhost:4000/success",
		CancelURL:  "http://localhost:4000/pricing",
	}
}

func countingServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestInitiateSuccess(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "price_1Rb5hRE9sWWwOMdjGvCyFdjj", body.PriceID)
		assert.Equal(t, catalog.ModeSubscription, body.Mode)
		assert.Equal(t, "http://localhost:4000/success", body.SuccessURL)
		assert.Equal(t, "http://localhost:4000/pricing", body.CancelURL)

		_, _ = w.Write([]byte(`{"url":"https://checkout.example.com/c/pay/cs_test_123"}`))
	})
	rec := &memRecorder{}
	in := NewInitiator(srv.URL, WithRecorder(rec))

	res, err := in.Initiate(context.Background(), validInput(t))
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.com/c/pay/cs_test_123", res.RedirectURL)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	require.Len(t, rec.attempts, 1)
	assert.Equal(t, res.AttemptID, rec.attempts[0].ID)
	assert.Equal(t, OutcomeRedirected, rec.attempts[0].Outcome)
	assert.Equal(t, http.StatusOK, rec.attempts[0].HTTPStatus)
}

func TestInitiateWithoutIdentitySendsNothing(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	in := NewInitiator(srv.URL)

	input := validInput(t)
	input.Identity = nil
	_, err := in.Initiate(context.Background(), input)
	assert.ErrorIs(t, err, ErrAuthRequired)

	input = validInput(t)
	input.Token = ""
	_, err = in.Initiate(context.Background(), input)
	assert.ErrorIs(t, err, ErrAuthRequired)

	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestInitiateDoubleClickSendsOneRequest(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-unblock
		_, _ = w.Write([]byte(`{"url":"https://checkout.example.com/s"}`))
	})
	in := NewInitiator(srv.URL)

	first := make(chan error, 1)
	go func() {
		_, err := in.Initiate(context.Background(), validInput(t))
		first <- err
	}()
	<-entered

	_, err := in.Initiate(context.Background(), validInput(t))
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	assert.Equal(t, "Checkout already in progress", UserMessage(err))

	close(unblock)
	require.NoError(t, <-first)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	// The guard is released once the first attempt finishes.
	_, err = in.Initiate(context.Background(), validInput(t))
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestInitiateRemoteRejected(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"Card declined"}`))
	})
	rec := &memRecorder{}
	in := NewInitiator(srv.URL, WithRecorder(rec))

	res, err := in.Initiate(context.Background(), validInput(t))
	var rejected *RemoteRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusPaymentRequired, rejected.Status)
	assert.Equal(t, "Card declined", UserMessage(err))
	assert.Empty(t, res.RedirectURL)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	require.Len(t, rec.attempts, 1)
	assert.Equal(t, OutcomeRejected, rec.attempts[0].Outcome)
	assert.Equal(t, "Card declined", rec.attempts[0].Error)
}

func TestInitiateFallbackMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"non-json error", http.StatusInternalServerError, `oops`, "Failed to create checkout session"},
		{"empty error", http.StatusBadRequest, `{}`, "Failed to create checkout session"},
		{"missing url", http.StatusOK, `{}`, "No checkout URL received"},
		{"malformed body", http.StatusOK, `not json`, "No checkout URL received"},
		{"relative url", http.StatusOK, `{"url":"/pay"}`, "Invalid checkout URL received"},
		{"javascript url", http.StatusOK, `{"url":"javascript:alert(1)"}`, "Invalid checkout URL received"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			in := NewInitiator(srv.URL)

			_, err := in.Initiate(context.Background(), validInput(t))
			require.Error(t, err)
			assert.Equal(t, tt.want, UserMessage(err))
			assert.EqualValues(t, 1, atomic.LoadInt32(calls))
		})
	}
}

func TestInitiateNetworkUnavailableIsNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	rec := &memRecorder{}
	in := NewInitiator(endpoint, WithRecorder(rec))
	_, err := in.Initiate(context.Background(), validInput(t))
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.Equal(t, "Unable to reach the checkout service. Please try again.", UserMessage(err))

	require.Len(t, rec.attempts, 1)
	assert.Equal(t, OutcomeUnreachable, rec.attempts[0].Outcome)
}

func TestInitiateInvalidRequest(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	in := NewInitiator(srv.URL)

	input := validInput(t)
	input.SuccessURL = "not a url"
	_, err := in.Initiate(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestMemoryGuardRelease(t *testing.T) {
	g := NewMemoryGuard()
	release, err := g.Acquire(context.Background(), "u1")
	require.NoError(t, err)

	_, err = g.Acquire(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	other, err := g.Acquire(context.Background(), "u2")
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := g.Acquire(context.Background(), "u1")
	require.NoError(t, err)
	again()
}
