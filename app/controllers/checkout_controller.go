package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/checkout"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/flash"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/session"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/usercontext"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/viewmodel"
)

const msgUnknownPlan = "Unknown plan"

// HandleCheckout creates a hosted checkout session for the posted plan and
// sends the browser there. Failures are rendered next to the plan's button.
func (p *Portal) HandleCheckout(c *fiber.Ctx) error {
	priceID := c.FormValue("price_id")
	from := returnPath(c.FormValue("from"))

	plan, ok := p.Catalog.Lookup(priceID)
	if !ok {
		return p.checkoutFailed(c, fiber.StatusBadRequest, priceID, msgUnknownPlan, from)
	}

	id := usercontext.Identity(c)
	if id == nil {
		return redirect(c, constants.RouteLogin)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), p.Config.HTTPTimeout)
	defer cancel()

	// The token is read now, not at render time: it may have expired since.
	token := ""
	if sess := session.FromContext(c); sess != nil {
		token, _ = p.Accessor.AccessToken(ctx, sess)
	}

	res, err := p.Checkout.Initiate(ctx, checkout.Input{
		Identity:   id,
		Token:      token,
		Plan:       plan,
		SuccessURL: p.Config.SuccessURL(),
		CancelURL:  p.Config.CancelURL(from),
	})
	if errors.Is(err, checkout.ErrAuthRequired) {
		return redirect(c, constants.RouteLogin)
	}
	if err != nil {
		return p.checkoutFailed(c, checkoutStatus(err), plan.PriceID, checkout.UserMessage(err), from)
	}
	return redirect(c, res.RedirectURL)
}

func (p *Portal) checkoutFailed(c *fiber.Ctx, status int, priceID, message, from string) error {
	if isHTMX(c) {
		return c.Status(status).Render("partials/checkout_error", viewmodel.CheckoutError{
			PriceID: priceID,
			Message: message,
		})
	}
	return flash.Error(c, message).Redirect(from, fiber.StatusSeeOther)
}

func checkoutStatus(err error) int {
	var rejected *checkout.RemoteRejectedError
	switch {
	case errors.As(err, &rejected):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrNetworkUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return fiber.StatusConflict
	case errors.Is(err, checkout.ErrInvalidRequest):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusBadGateway
	}
}
