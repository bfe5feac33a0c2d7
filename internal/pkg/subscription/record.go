package subscription

import (
	"strings"
	"time"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/backend"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
)

type Status string

const (
	StatusNotStarted        Status = "not_started"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
)

// Label is the badge text, e.g. "PAST DUE".
func (s Status) Label() string {
	if s == "" {
		s = StatusNotStarted
	}
	return strings.ToUpper(strings.ReplaceAll(string(s), "_", " "))
}

// Tone is the badge colour class.
func (s Status) Tone() string {
	switch s {
	case StatusActive:
		return "green"
	case StatusTrialing:
		return "blue"
	case StatusPastDue:
		return "yellow"
	case StatusCanceled:
		return "red"
	default:
		return "gray"
	}
}

// Record is a read-only snapshot of the user's subscription row.
type Record struct {
	CustomerID         string     `json:"customer_id,omitempty"`
	SubscriptionID     string     `json:"subscription_id,omitempty"`
	Status             Status     `json:"status"`
	PriceID            string     `json:"price_id,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	PaymentMethodBrand string     `json:"payment_method_brand,omitempty"`
	PaymentMethodLast4 string     `json:"payment_method_last4,omitempty"`
}

func (r *Record) IsActive() bool {
	return r != nil && (r.Status == StatusActive || r.Status == StatusTrialing)
}

// Started reports whether the row describes an actual subscription rather
// than a customer that never checked out.
func (r *Record) Started() bool {
	return r != nil && r.Status != "" && r.Status != StatusNotStarted
}

// PaymentMethod renders "visa ending in 4242", or "".
func (r *Record) PaymentMethod() string {
	if r == nil || r.PaymentMethodBrand == "" || r.PaymentMethodLast4 == "" {
		return ""
	}
	return r.PaymentMethodBrand + " ending in " + r.PaymentMethodLast4
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.CurrentPeriodStart != nil {
		t := *r.CurrentPeriodStart
		out.CurrentPeriodStart = &t
	}
	if r.CurrentPeriodEnd != nil {
		t := *r.CurrentPeriodEnd
		out.CurrentPeriodEnd = &t
	}
	return &out
}

// FromRow converts a backend view row. A nil row means no subscription.
func FromRow(row *backend.SubscriptionRow) *Record {
	if row == nil {
		return nil
	}
	rec := &Record{
		CustomerID:         deref(row.CustomerID),
		SubscriptionID:     deref(row.SubscriptionID),
		Status:             Status(deref(row.SubscriptionStatus)),
		PriceID:            deref(row.PriceID),
		CurrentPeriodStart: unixTime(row.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(row.CurrentPeriodEnd),
		PaymentMethodBrand: deref(row.PaymentMethodBrand),
		PaymentMethodLast4: deref(row.PaymentMethodLast4),
	}
	if rec.Status == "" {
		rec.Status = StatusNotStarted
	}
	if row.CancelAtPeriodEnd != nil {
		rec.CancelAtPeriodEnd = *row.CancelAtPeriodEnd
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func unixTime(v *int64) *time.Time {
	if v == nil || *v <= 0 {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}

// Snapshot is what one resolve produced. Consumers get copies.
type Snapshot struct {
	Identity  *auth.Identity `json:"identity,omitempty"`
	Record    *Record        `json:"subscription"`
	Err       string         `json:"error,omitempty"`
	Loaded    bool           `json:"loaded"`
	FetchedAt time.Time      `json:"fetched_at,omitempty"`
}

func (s Snapshot) IsActive() bool {
	return s.Record.IsActive()
}

// CurrentPlan resolves the record's price id in the catalog. A miss means
// plan metadata is unavailable.
func (s Snapshot) CurrentPlan(c *catalog.Catalog) (catalog.Plan, bool) {
	if s.Identity == nil || s.Record == nil || s.Record.PriceID == "" {
		return catalog.Plan{}, false
	}
	return c.Lookup(s.Record.PriceID)
}

// BelongsTo reports whether the snapshot was fetched for the given user.
func (s Snapshot) BelongsTo(id *auth.Identity) bool {
	if id == nil {
		return s.Identity == nil
	}
	return s.Identity != nil && s.Identity.UserID == id.UserID
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	out.Record = s.Record.clone()
	return out
}
