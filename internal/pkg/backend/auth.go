package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a token pair issued by the backend.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// HasExpiry reports whether the backend sent expires_at or expires_in.
func (s *Session) HasExpiry() bool {
	return s.ExpiresAt > 0 || s.ExpiresIn > 0
}

// Expiry returns the absolute expiry, preferring expires_at when present.
// Without either field it assumes one hour.
func (s *Session) Expiry(now time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	if s.ExpiresIn > 0 {
		return now.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return now.Add(time.Hour)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	q := url.Values{"grant_type": {"password"}}
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", q, "", credentials{Email: strings.TrimSpace(email), Password: password}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, errors.New("backend: sign-in returned no access token")
	}
	return &out, nil
}

// SignUp registers a user. When the backend requires email confirmation the
// returned session is nil and only the user is set.
func (c *Client) SignUp(ctx context.Context, email, password string) (*User, *Session, error) {
	var out struct {
		Session
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, "", credentials{Email: strings.TrimSpace(email), Password: password}, &out)
	if err != nil {
		return nil, nil, err
	}

	if out.AccessToken != "" {
		sess := out.Session
		user := sess.User
		return &user, &sess, nil
	}
	user := &User{ID: out.ID, Email: out.Email, CreatedAt: out.CreatedAt}
	if user.ID == "" {
		user = &out.User
	}
	return user, nil, nil
}

// RefreshSession trades a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var out Session
	q := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", q, "", body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, errors.New("backend: refresh returned no access token")
	}
	return &out, nil
}

// SignOut revokes the session. An already invalid token counts as signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		return nil
	}
	return err
}

// GetUser returns the user the access token belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
