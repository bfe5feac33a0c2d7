package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fsession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/app/repository"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/checkout"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/config"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/confirmation"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/flash"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/session"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/subscription"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/usercontext"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/utils"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/viewmodel"
)

const (
	layoutMain = "layouts/main"

	// navbar badges may show a snapshot this old
	navbarMaxAge = 30 * time.Second

	recentAttempts = 5
	avatarSize     = 56
)

const msgSubscriptionPending = "Subscription details are still loading. Please refresh the page."

var errNoSession = errors.New("no session for request")

// Deps are the services the web handlers depend on. Attempts and Captcha
// are optional.
type Deps struct {
	Config        *config.Config
	Catalog       *catalog.Catalog
	Accessor      *auth.Accessor
	Store         *fsession.Store
	Subscriptions *subscription.Registry
	Checkout      *checkout.Initiator
	Confirmations *confirmation.Registry
	Attempts      repository.CheckoutAttemptRepository
	Captcha       *hcaptcha.Verifier
	Log           zerolog.Logger
}

// Portal serves the HTML pages.
type Portal struct {
	Deps
	validate *validator.Validate
}

func NewPortal(d Deps) *Portal {
	d.Log = d.Log.With().Str("component", "portal").Logger()
	return &Portal{
		Deps:     d,
		validate: validator.New(),
	}
}

// layout fills the page chrome. snap is the subscription state already
// resolved by the handler; nil means use the session's recent snapshot.
func (p *Portal) layout(c *fiber.Ctx, page string, snap *subscription.Snapshot) viewmodel.Layout {
	uc := usercontext.GetUserContext(c)
	l := viewmodel.Layout{
		Page:          page,
		FromProtected: uc.IsLoggedIn,
		CSRF:          csrfToken(c),
		Msg:           flash.Get(c),
	}
	if !uc.IsLoggedIn || uc.Identity == nil {
		return l
	}

	l.Email = uc.Identity.Email
	l.Avatar = utils.GravatarURL(l.Email, avatarSize)
	if snap == nil {
		s := p.snapshot(c, navbarMaxAge)
		snap = &s
	}
	if plan, ok := snap.CurrentPlan(p.Catalog); ok && snap.IsActive() {
		l.PlanBadge = plan.Name
	}
	return l
}

// snapshot returns the signed-in user's subscription state. A committed
// snapshot younger than maxAge is reused; maxAge 0 always re-fetches.
func (p *Portal) snapshot(c *fiber.Ctx, maxAge time.Duration) subscription.Snapshot {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn || uc.Identity == nil {
		return subscription.Snapshot{Loaded: true}
	}

	r := p.Subscriptions.For(uc.SessionID)
	if maxAge > 0 {
		if s := r.Snapshot(); s.Loaded && s.BelongsTo(uc.Identity) && time.Since(s.FetchedAt) < maxAge {
			return s
		}
	}

	sess := session.FromContext(c)
	if sess == nil {
		return subscription.Snapshot{Loaded: true}
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), p.Config.HTTPTimeout)
	defer cancel()

	token, ok := p.Accessor.AccessToken(ctx, sess)
	if !ok {
		return subscription.Snapshot{Loaded: true}
	}

	snap, err := r.Resolve(ctx, uc.Identity, token)
	if err == nil {
		return snap
	}
	if s := r.Snapshot(); s.Loaded && s.BelongsTo(uc.Identity) {
		return s
	}
	// Never let an unfinished read pass for "no subscription".
	p.Log.Debug().Err(err).Str("user_id", uc.Identity.UserID).Msg("subscription resolve did not finish")
	return subscription.Snapshot{Err: msgSubscriptionPending}
}

// cards builds the checkout cards, marking the plan the user is on.
func (p *Portal) cards(c *fiber.Ctx, snap subscription.Snapshot, from string) []viewmodel.PlanCard {
	current := ""
	if snap.Record != nil {
		current = snap.Record.PriceID
	}
	token := csrfToken(c)

	plans := p.Catalog.Plans()
	out := make([]viewmodel.PlanCard, 0, len(plans))
	for _, plan := range plans {
		out = append(out, viewmodel.PlanCard{
			Plan:      plan,
			IsCurrent: current != "" && plan.PriceID == current,
			From:      from,
			CSRF:      token,
		})
	}
	return out
}

func (p *Portal) session(c *fiber.Ctx) (*session.Web, error) {
	if w := session.FromContext(c); w != nil {
		return w, nil
	}
	return nil, errNoSession
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals("csrf").(string)
	return token
}

func isHTMX(c *fiber.Ctx) bool {
	return c.Get("HX-Request") == "true"
}

// redirect navigates the whole page, also when the request came from htmx.
func redirect(c *fiber.Ctx, location string) error {
	if isHTMX(c) {
		c.Set("HX-Redirect", location)
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

// returnPath limits where a failed checkout sends the user back to.
func returnPath(from string) string {
	switch from {
	case constants.RouteIndex, constants.RoutePricing:
		return from
	default:
		return constants.RoutePricing
	}
}
