package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   h.deps.SecureCookies,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), constants.APIPrefix)
		},
	}

	p := h.deps.Portal
	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get(constants.RouteIndex, p.HandleIndex)
	group.Get(constants.RoutePricing, p.HandlePricing)
	group.Get(constants.RouteLogin, middleware.RedirectIfLoggedIn, p.HandleLogin)
	group.Post(constants.RouteLogin, middleware.RedirectIfLoggedIn, p.HandleLogin)
	group.Get(constants.RouteSignup, middleware.RedirectIfLoggedIn, p.HandleSignup)
	group.Post(constants.RouteSignup, middleware.RedirectIfLoggedIn, p.HandleSignup)
	group.Post(constants.RouteLogout, middleware.RequireAuth, p.HandleLogout)
	group.Post(constants.RouteCheckout, p.HandleCheckout)
	group.Get(constants.RouteSuccess, middleware.RequireAuth, p.HandleSuccess)
	group.Get(constants.RouteSuccessStatus, middleware.RequireAuth, p.HandleSuccessStatus)
	group.Get(constants.RouteDashboard, middleware.RequireAuth, p.HandleDashboard)
}
