package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/backend"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/eventbus"
)

// Session keys. Values are strings or int64 so the session codec can store
// them without registration.
const (
	KeyAccessToken  = "auth_access_token"
	KeyRefreshToken = "auth_refresh_token"
	KeyExpiresAt    = "auth_expires_at"
	KeyUserID       = "auth_user_id"
	KeyEmail        = "auth_email"
	KeyCreatedAt    = "auth_created_at"
)

var sessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyExpiresAt, KeyUserID, KeyEmail, KeyCreatedAt}

var ErrMissingCredentials = errors.New("email and password are required")

// Identity is the signed-in user as the app sees it.
type Identity struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the per-browser store the accessor keeps tokens in.
// *session.Session from fiber satisfies it.
type Session interface {
	ID() string
	Get(key string) any
	Set(key string, val any)
	Delete(key string)
	Save() error
	Destroy() error
	Regenerate() error
}

// Backend is the subset of the auth backend the accessor calls.
type Backend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignUp(ctx context.Context, email, password string) (*backend.User, *backend.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type Option func(*Accessor)

func WithBus(b *eventbus.Bus) Option {
	return func(a *Accessor) { a.bus = b }
}

func WithTokenParser(p *TokenParser) Option {
	return func(a *Accessor) { a.tokens = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Accessor) { a.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(a *Accessor) { a.now = now }
}

// WithRefreshSkew refreshes tokens this long before they expire.
func WithRefreshSkew(d time.Duration) Option {
	return func(a *Accessor) { a.skew = d }
}

// Accessor answers "who is signed in" for a browser session and keeps the
// session's tokens fresh.
type Accessor struct {
	backend Backend
	bus     *eventbus.Bus
	tokens  *TokenParser
	log     zerolog.Logger
	now     func() time.Time
	skew    time.Duration
}

func NewAccessor(b Backend, opts ...Option) *Accessor {
	a := &Accessor{
		backend: b,
		log:     zerolog.Nop(),
		now:     time.Now,
		skew:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With().Str("component", "auth").Logger()
	return a
}

// Subscribe returns identity change events. Nil without a bus.
func (a *Accessor) Subscribe(types ...string) chan eventbus.Event {
	if a.bus == nil {
		return nil
	}
	return a.bus.Subscribe(types...)
}

// CurrentIdentity returns the signed-in identity, or nil. It never fails:
// an unusable session reads as signed out.
func (a *Accessor) CurrentIdentity(ctx context.Context, sess Session) *Identity {
	_, id := a.ensureFresh(ctx, sess)
	return id
}

// AccessToken returns a usable access token for the session.
func (a *Accessor) AccessToken(ctx context.Context, sess Session) (string, bool) {
	token, id := a.ensureFresh(ctx, sess)
	if id == nil || token == "" {
		return "", false
	}
	return token, true
}

// SignIn authenticates with the backend and binds the result to a fresh
// session id.
func (a *Accessor) SignIn(ctx context.Context, sess Session, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	bs, err := a.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.bind(ctx, sess, bs)
}

// SignUp registers a user. signedIn is false when the backend wants the
// address confirmed first.
func (a *Accessor) SignUp(ctx context.Context, sess Session, email, password string) (*Identity, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, false, ErrMissingCredentials
	}

	user, bs, err := a.backend.SignUp(ctx, email, password)
	if err != nil {
		return nil, false, err
	}
	if bs == nil {
		return identityFromUser(user), false, nil
	}
	id, err := a.bind(ctx, sess, bs)
	if err != nil {
		return nil, false, err
	}
	return id, true, nil
}

// SignOut revokes the backend session when possible and always clears the
// local one.
func (a *Accessor) SignOut(ctx context.Context, sess Session) error {
	userID, _ := sess.Get(KeyUserID).(string)
	if token, _ := sess.Get(KeyAccessToken).(string); token != "" {
		if err := a.backend.SignOut(ctx, token); err != nil {
			a.log.Warn().Err(err).Msg("backend sign-out failed, clearing local session anyway")
		}
	}

	sessionID := sess.ID()
	if err := sess.Destroy(); err != nil {
		return err
	}
	a.publish(eventbus.Event{Type: eventbus.SignedOut, SessionID: sessionID, UserID: userID})
	return nil
}

func (a *Accessor) bind(ctx context.Context, sess Session, bs *backend.Session) (*Identity, error) {
	id := identityFromUser(&bs.User)
	if id.UserID == "" {
		claims, err := a.tokens.Parse(ctx, bs.AccessToken)
		if err != nil {
			return nil, err
		}
		id.UserID = claims.Subject
		if id.Email == "" {
			id.Email = claims.Email
		}
	}

	previous := sess.ID()
	if err := sess.Regenerate(); err != nil {
		return nil, err
	}
	a.store(ctx, sess, bs, id)
	if err := sess.Save(); err != nil {
		return nil, err
	}

	a.log.Info().Str("user_id", id.UserID).Msg("signed in")
	a.publish(eventbus.Event{
		Type:              eventbus.SignedIn,
		SessionID:         sess.ID(),
		PreviousSessionID: previous,
		UserID:            id.UserID,
	})
	return id, nil
}

func (a *Accessor) store(ctx context.Context, sess Session, bs *backend.Session, id *Identity) {
	sess.Set(KeyAccessToken, bs.AccessToken)
	if bs.RefreshToken != "" {
		sess.Set(KeyRefreshToken, bs.RefreshToken)
	}
	sess.Set(KeyExpiresAt, a.expiry(ctx, bs).Unix())
	if id != nil {
		sess.Set(KeyUserID, id.UserID)
		sess.Set(KeyEmail, id.Email)
		if !id.CreatedAt.IsZero() {
			sess.Set(KeyCreatedAt, id.CreatedAt.UTC().Format(time.RFC3339))
		}
	}
}

// expiry prefers what the backend reported, then the token's exp claim.
func (a *Accessor) expiry(ctx context.Context, bs *backend.Session) time.Time {
	if !bs.HasExpiry() {
		if claims, err := a.tokens.Parse(ctx, bs.AccessToken); err == nil {
			if exp := claims.Expiry(); !exp.IsZero() {
				return exp
			}
		}
	}
	return bs.Expiry(a.now())
}

func (a *Accessor) ensureFresh(ctx context.Context, sess Session) (string, *Identity) {
	if sess == nil {
		return "", nil
	}
	token, _ := sess.Get(KeyAccessToken).(string)
	id := readIdentity(sess)
	if token == "" || id == nil {
		return "", nil
	}

	if a.tokens.Verifies() {
		if _, err := a.tokens.Parse(ctx, token); err != nil {
			a.log.Warn().Err(err).Str("user_id", id.UserID).Msg("stored access token failed verification")
			a.expire(sess, id.UserID)
			return "", nil
		}
	}

	now := a.now()
	expiresAt := time.Unix(readInt64(sess.Get(KeyExpiresAt)), 0)
	if now.Add(a.skew).Before(expiresAt) {
		return token, id
	}

	refresh, _ := sess.Get(KeyRefreshToken).(string)
	if refresh == "" {
		if now.Before(expiresAt) {
			return token, id
		}
		a.expire(sess, id.UserID)
		return "", nil
	}

	bs, err := a.backend.RefreshSession(ctx, refresh)
	switch {
	case err == nil:
		if bs.User.ID != "" && bs.User.ID != id.UserID {
			a.log.Warn().Str("user_id", id.UserID).Msg("refresh returned a different user")
			a.expire(sess, id.UserID)
			return "", nil
		}
		a.store(ctx, sess, bs, nil)
		if err := sess.Save(); err != nil {
			a.log.Error().Err(err).Msg("failed to save refreshed session")
		}
		a.publish(eventbus.Event{Type: eventbus.Refreshed, SessionID: sess.ID(), UserID: id.UserID})
		return bs.AccessToken, id
	case backend.IsRejected(err):
		a.log.Info().Str("user_id", id.UserID).Msg("refresh rejected, session expired")
		a.expire(sess, id.UserID)
		return "", nil
	default:
		// Backend unreachable: keep the session for a later attempt.
		a.log.Warn().Err(err).Msg("token refresh failed")
		if now.Before(expiresAt) {
			return token, id
		}
		return "", nil
	}
}

func (a *Accessor) expire(sess Session, userID string) {
	for _, k := range sessionKeys {
		sess.Delete(k)
	}
	if err := sess.Save(); err != nil {
		a.log.Error().Err(err).Msg("failed to save cleared session")
	}
	a.publish(eventbus.Event{Type: eventbus.Expired, SessionID: sess.ID(), UserID: userID})
}

func (a *Accessor) publish(e eventbus.Event) {
	if a.bus != nil {
		a.bus.Publish(e)
	}
}

func identityFromUser(u *backend.User) *Identity {
	if u == nil {
		return &Identity{}
	}
	return &Identity{UserID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func readIdentity(sess Session) *Identity {
	userID, _ := sess.Get(KeyUserID).(string)
	if userID == "" {
		return nil
	}
	id := &Identity{UserID: userID}
	id.Email, _ = sess.Get(KeyEmail).(string)
	if raw, ok := sess.Get(KeyCreatedAt).(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			id.CreatedAt = t
		}
	}
	return id
}

func readInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
