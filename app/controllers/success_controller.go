package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/confirmation"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/session"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/subscription"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/usercontext"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/viewmodel"
)

const statusPath = constants.RouteSuccessStatus

// HandleSuccess is where the payment processor sends the browser back to.
// Landing here only means the processor accepted the session, so the page
// waits out the grace period before the subscription is read again.
func (p *Portal) HandleSuccess(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	id := usercontext.Identity(c)

	token := ""
	if sess := session.FromContext(c); sess != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), p.Config.HTTPTimeout)
		token, _ = p.Accessor.AccessToken(ctx, sess)
		cancel()
	}

	resolver := p.Subscriptions.For(uc.SessionID)
	resolver.Reset()
	p.Confirmations.Begin(uc.SessionID, p.refetch(resolver, id, token))

	empty := subscription.Snapshot{}
	data := viewmodel.Confirmation{
		Layout:   p.layout(c, "Processing Payment", &empty),
		Pending:  true,
		PollPath: statusPath,
	}
	return c.Render("success", data, layoutMain)
}

// HandleSuccessStatus is polled by the success page until the tracker has
// finished its re-fetch.
func (p *Portal) HandleSuccessStatus(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	data := viewmodel.Confirmation{PollPath: statusPath}

	tracker, ok := p.Confirmations.Get(uc.SessionID)
	if ok && !tracker.Finished() {
		data.Pending = true
		return c.Render("partials/confirmation_status", data)
	}

	snap := p.Subscriptions.For(uc.SessionID).Snapshot()
	if !ok || !snap.Loaded || !snap.BelongsTo(uc.Identity) {
		snap = p.snapshot(c, 0)
	}
	if ok && tracker.State() == confirmation.Resolved {
		p.Confirmations.Forget(uc.SessionID)
	}

	data.Active = snap.IsActive()
	data.Err = snap.Err
	if plan, found := snap.CurrentPlan(p.Catalog); found {
		data.Plan = &plan
	}
	return c.Render("partials/confirmation_status", data)
}

func (p *Portal) refetch(r *subscription.Resolver, id *auth.Identity, token string) confirmation.RefetchFunc {
	return func(ctx context.Context) bool {
		snap, err := r.Resolve(ctx, id, token)
		if err != nil {
			return false
		}
		return snap.IsActive()
	}
}
