package apiv1

import "github.com/gofiber/fiber/v2"

// Paths served under /api/v1. They match public/docs/v1/openapi.yml.
const (
	PathPing         = "/ping"
	PathPlans        = "/plans"
	PathSubscription = "/subscription"
	PathConfirmation = "/confirmation"
)

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// Error defines model for Error.
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	GetPlans(c *fiber.Ctx) error
	GetSubscription(c *fiber.Ctx) error
	GetConfirmation(c *fiber.Ctx) error
}

// RegisterHandlers adds each server route to the router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get(PathPing, si.GetPing)
	router.Get(PathPlans, si.GetPlans)
	router.Get(PathSubscription, si.GetSubscription)
	router.Get(PathConfirmation, si.GetConfirmation)
}
