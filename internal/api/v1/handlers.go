package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to the web controllers so JSON and HTML agree
	"github.com/ManuelReschke/PlanDeck/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct {
	portal *controllers.Portal
}

// NewAPIServer creates a new API server instance
func NewAPIServer(portal *controllers.Portal) *APIServer {
	return &APIServer{portal: portal}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetPlans lists the plan catalog.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	return s.portal.HandlePlansAPI(c)
}

// GetSubscription returns the signed-in user's subscription. Session auth is
// enforced by the router.
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	return s.portal.HandleSubscriptionAPI(c)
}

// GetConfirmation reports the post-checkout confirmation of this session.
func (s *APIServer) GetConfirmation(c *fiber.Ctx) error {
	return s.portal.HandleConfirmationAPI(c)
}
