package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fsession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/session"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/usercontext"
)

// UserContext resolves the signed-in identity for every request and commits
// session writes once the handler returns.
func UserContext(store *fsession.Store, accessor *auth.Accessor, timeout time.Duration, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := session.Load(c, store)
		if err != nil {
			log.Warn().Err(err).Msg("session unavailable, treating request as anonymous")
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		id := accessor.CurrentIdentity(ctx, sess)
		cancel()

		usercontext.Set(c, usercontext.UserContext{
			Identity:   id,
			SessionID:  sess.ID(),
			IsLoggedIn: id != nil,
		})

		handlerErr := c.Next()
		if err := sess.Commit(); err != nil {
			log.Error().Err(err).Msg("failed to save session")
		}
		return handlerErr
	}
}
