package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/confirmation"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/subscription"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/usercontext"
)

// SubscriptionResponse is the JSON view of the signed-in user's
// subscription.
type SubscriptionResponse struct {
	Active       bool                 `json:"active"`
	Subscription *subscription.Record `json:"subscription"`
	Plan         *catalog.Plan        `json:"plan"`
	Error        string               `json:"error,omitempty"`
}

type ConfirmationResponse struct {
	State     confirmation.State `json:"state"`
	Finished  bool               `json:"finished"`
	Settled   bool               `json:"settled"`
	Refetches int                `json:"refetches"`
}

func (p *Portal) HandlePlansAPI(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": p.Catalog.Plans()})
}

// HandleSubscriptionAPI re-reads the subscription unless fresh=false asks
// for the recent snapshot.
func (p *Portal) HandleSubscriptionAPI(c *fiber.Ctx) error {
	maxAge := navbarMaxAge
	if c.QueryBool("fresh", true) {
		maxAge = 0
	}
	snap := p.snapshot(c, maxAge)

	resp := SubscriptionResponse{
		Active:       snap.IsActive(),
		Subscription: snap.Record,
		Error:        snap.Err,
	}
	if plan, ok := snap.CurrentPlan(p.Catalog); ok {
		resp.Plan = &plan
	}
	return c.JSON(resp)
}

func (p *Portal) HandleConfirmationAPI(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	t, ok := p.Confirmations.Get(uc.SessionID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "no checkout confirmation in progress",
		})
	}
	return c.JSON(ConfirmationResponse{
		State:     t.State(),
		Finished:  t.Finished(),
		Settled:   t.Settled(),
		Refetches: t.Refetches(),
	})
}
