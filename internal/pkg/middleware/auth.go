package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/usercontext"
)

// RequireAuth ensures a signed-in web session; redirects to /login if missing.
// htmx requests get an HX-Redirect instead so the whole page navigates.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		if c.Get("HX-Request") == "true" {
			c.Set("HX-Redirect", constants.RouteLogin)
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Redirect(constants.RouteLogin, fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPISessionAuth ensures a signed-in session for API routes and
// returns JSON 401 instead of a redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RedirectIfLoggedIn keeps signed-in users away from the login and signup
// forms.
func RedirectIfLoggedIn(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect(constants.RouteDashboard, fiber.StatusSeeOther)
	}
	return c.Next()
}
