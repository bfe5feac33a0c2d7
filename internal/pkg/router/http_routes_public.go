package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/app/controllers"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get(constants.RouteHealth, controllers.HandleHealth)
}
