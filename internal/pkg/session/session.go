package session

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/config"
)

const localsKey = "web_session"

// NewSessionStore keeps sessions in Redis database 1, next to the cache in
// database 0.
func NewSessionStore(cfg *config.Config) *session.Store {
	storage := redis.New(redis.Config{
		Host:     cfg.CacheHost,
		Port:     cfg.CachePort,
		Password: cfg.CachePassword,
		Database: 1,
		Reset:    false,
	})

	return session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !cfg.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     cfg.SessionTTL,
		KeyLookup:      "cookie:session_id",
	})
}

// Web wraps a fiber session for one request. Fiber releases a session on
// Save, so writes are collected and persisted once by Commit after the
// handler ran.
type Web struct {
	sess      *session.Session
	dirty     bool
	destroyed bool
}

// Load fetches the request's session and keeps it in Locals.
func Load(c *fiber.Ctx, store *session.Store) (*Web, error) {
	if w, ok := c.Locals(localsKey).(*Web); ok {
		return w, nil
	}
	sess, err := store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	w := &Web{sess: sess}
	c.Locals(localsKey, w)
	return w, nil
}

// FromContext returns the session loaded by Load, or nil.
func FromContext(c *fiber.Ctx) *Web {
	w, _ := c.Locals(localsKey).(*Web)
	return w
}

func (w *Web) ID() string {
	return w.sess.ID()
}

func (w *Web) Get(key string) any {
	return w.sess.Get(key)
}

func (w *Web) Set(key string, val any) {
	w.sess.Set(key, val)
	w.dirty = true
}

func (w *Web) Delete(key string) {
	w.sess.Delete(key)
	w.dirty = true
}

// Save marks the session for Commit.
func (w *Web) Save() error {
	w.dirty = true
	return nil
}

func (w *Web) Destroy() error {
	w.destroyed = true
	return w.sess.Destroy()
}

func (w *Web) Regenerate() error {
	w.dirty = true
	return w.sess.Regenerate()
}

// Commit persists pending writes. The session must not be used afterwards.
func (w *Web) Commit() error {
	if w.destroyed || !w.dirty {
		return nil
	}
	w.dirty = false
	return w.sess.Save()
}
