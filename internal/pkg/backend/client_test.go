package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", AnonKey: "anon"}, zerolog.Nop())
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.io", body["email"])
		assert.Equal(t, "pw", body["password"])

		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"expires_at":1750000000,"user":{"id":"u1","email":"a@x.io","created_at":"2025-06-01T10:00:00Z"}}`))
	})

	sess, err := c.SignInWithPassword(context.Background(), " a@x.io ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "rt", sess.RefreshToken)
	assert.Equal(t, "u1", sess.User.ID)
	assert.Equal(t, int64(1750000000), sess.Expiry(sess.User.CreatedAt).Unix())
}

func TestSignInRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := c.SignInWithPassword(context.Background(), "a@x.io", "bad")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
	assert.Equal(t, "invalid_grant", apiErr.Code)
	assert.True(t, IsRejected(err))
	assert.False(t, IsUnavailable(err))
}

func TestSignUpWithoutSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"u2","email":"b@x.io","created_at":"2025-06-01T10:00:00Z"}`))
	})

	user, sess, err := c.SignUp(context.Background(), "b@x.io", "pw123456")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, "u2", user.ID)
	assert.Equal(t, "b@x.io", user.Email)
}

func TestSignUpWithSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u3","email":"c@x.io"}}`))
	})

	user, sess, err := c.SignUp(context.Background(), "c@x.io", "pw123456")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u3", user.ID)
	assert.Equal(t, "at", sess.AccessToken)
}

func TestSignOutTreatsUnauthorizedAsDone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})

	assert.NoError(t, c.SignOut(context.Background(), "at"))
}

func TestFetchSubscription(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/stripe_user_subscriptions", r.URL.Path)
		assert.Equal(t, subscriptionColumns, r.URL.Query().Get("select"))
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"customer_id":"cus_1","subscription_status":"active","price_id":"price_X","current_period_end":1750000000,"cancel_at_period_end":false,"payment_method_brand":"visa","payment_method_last4":"4242"}]`))
	})

	row, err := c.FetchSubscription(context.Background(), "at")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "active", *row.SubscriptionStatus)
	assert.Equal(t, "price_X", *row.PriceID)
	assert.Nil(t, row.CurrentPeriodStart)
	assert.Equal(t, int64(1750000000), *row.CurrentPeriodEnd)
	assert.Equal(t, "4242", *row.PaymentMethodLast4)
}

func TestFetchSubscriptionNoRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	row, err := c.FetchSubscription(context.Background(), "at")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestServerErrorIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	})

	_, err := c.FetchSubscription(context.Background(), "at")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := New(Config{BaseURL: base, AnonKey: "anon"}, zerolog.Nop())
	_, err := c.GetUser(context.Background(), "at")
	assert.ErrorIs(t, err, ErrUnavailable)
}
