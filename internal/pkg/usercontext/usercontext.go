package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
)

// UserContext is the request's view of who is signed in.
type UserContext struct {
	Identity   *auth.Identity `json:"identity,omitempty"`
	SessionID  string         `json:"-"`
	IsLoggedIn bool           `json:"is_logged_in"`
}

// GetUserContext returns the context set by the middleware, or an anonymous
// one.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
	c.Locals(KeyFromProtected, uc.IsLoggedIn)
}

func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// Identity returns a copy of the signed-in identity, or nil.
func Identity(c *fiber.Ctx) *auth.Identity {
	id := GetUserContext(c).Identity
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
