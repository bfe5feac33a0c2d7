package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/viewmodel"
)

// HandleIndex renders the tier overview.
func (p *Portal) HandleIndex(c *fiber.Ctx) error {
	snap := p.snapshot(c, navbarMaxAge)
	data := viewmodel.Tiers{
		Layout:   p.layout(c, "Plans", &snap),
		Title:    "PLANS AND PRICING",
		Subtitle: "Simple and transparent pricing",
		Cards:    p.cards(c, snap, "/"),
	}
	return c.Render("index", data, layoutMain)
}

func (p *Portal) HandlePricing(c *fiber.Ctx) error {
	snap := p.snapshot(c, navbarMaxAge)
	data := viewmodel.Pricing{
		Layout: p.layout(c, "Pricing", &snap),
		Cards:  p.cards(c, snap, constants.RoutePricing),
		Err:    snap.Err,
	}
	return c.Render("pricing", data, layoutMain)
}

func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
