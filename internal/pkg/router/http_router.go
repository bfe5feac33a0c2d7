package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fsession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/app/controllers"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/middleware"
)

// Deps are shared by the web and API routers.
type Deps struct {
	Portal          *controllers.Portal
	Store           *fsession.Store
	Accessor        *auth.Accessor
	IdentityTimeout time.Duration
	SecureCookies   bool
	Log             zerolog.Logger
}

type HttpRouter struct {
	deps Deps
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContext(h.deps.Store, h.deps.Accessor, h.deps.IdentityTimeout, h.deps.Log))

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}
