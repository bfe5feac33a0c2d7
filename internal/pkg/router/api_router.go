package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/ManuelReschke/PlanDeck/internal/api/v1"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Deps
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	v1.Use(apiv1.PathSubscription, middleware.RequireAPISessionAuth)
	v1.Use(apiv1.PathConfirmation, middleware.RequireAPISessionAuth)
	apiServer := apiv1.NewAPIServer(h.deps.Portal)
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}
