package viewmodel

import (
	"github.com/ManuelReschke/PlanDeck/app/models"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/subscription"
)

// PlanCard is one purchasable plan with its checkout button state.
type PlanCard struct {
	catalog.Plan
	IsCurrent bool
	From      string
	CSRF      string
}

// ButtonLabel follows the plan mode and whether it is the current plan.
func (p PlanCard) ButtonLabel() string {
	switch {
	case p.IsCurrent:
		return "Current Plan"
	case p.IsSubscription():
		return "Subscribe"
	default:
		return "Purchase"
	}
}

// Tiers is the landing page.
type Tiers struct {
	Layout
	Title    string
	Subtitle string
	Cards    []PlanCard
}

// Pricing is the plain plan list.
type Pricing struct {
	Layout
	Cards []PlanCard
	Err   string
}

// AuthForm backs the login and signup pages.
type AuthForm struct {
	Layout
	FormEmail       string
	HCaptchaSiteKey string
}

// Dashboard shows account and subscription details.
type Dashboard struct {
	Layout
	UserID    string
	CreatedAt string
	Snapshot  subscription.Snapshot
	Plan      *catalog.Plan
	Attempts  []models.CheckoutAttempt
}

func (d Dashboard) Record() *subscription.Record {
	return d.Snapshot.Record
}

// HasSubscription is false for users who never started a checkout.
func (d Dashboard) HasSubscription() bool {
	return d.Snapshot.Record != nil && d.Snapshot.Record.Started()
}

func (d Dashboard) IsActive() bool {
	return d.Snapshot.IsActive()
}

// Confirmation backs the success page and its polled status fragment.
type Confirmation struct {
	Layout
	Pending  bool
	Active   bool
	Plan     *catalog.Plan
	Err      string
	PollPath string
}

// CheckoutError is the inline fragment rendered next to a checkout button.
type CheckoutError struct {
	PriceID string
	Message string
}
