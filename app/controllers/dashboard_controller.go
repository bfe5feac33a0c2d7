package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/usercontext"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/viewmodel"
)

// HandleDashboard always re-reads the subscription so users can check on a
// payment that was still settling on the success page.
func (p *Portal) HandleDashboard(c *fiber.Ctx) error {
	id := usercontext.Identity(c)
	if id == nil {
		return redirect(c, constants.RouteLogin)
	}

	snap := p.snapshot(c, 0)
	data := viewmodel.Dashboard{
		Layout:    p.layout(c, "Dashboard", &snap),
		UserID:    id.UserID,
		CreatedAt: viewmodel.FormatDate(&id.CreatedAt),
		Snapshot:  snap,
	}
	if plan, ok := snap.CurrentPlan(p.Catalog); ok {
		data.Plan = &plan
	}

	if p.Attempts != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), p.Config.HTTPTimeout)
		attempts, err := p.Attempts.ListByUser(ctx, id.UserID, recentAttempts)
		cancel()
		if err != nil {
			p.Log.Warn().Err(err).Str("user_id", id.UserID).Msg("failed to load checkout history")
		}
		data.Attempts = attempts
	}

	return c.Render("dashboard", data, layoutMain)
}
