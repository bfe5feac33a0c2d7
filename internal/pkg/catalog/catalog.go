package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode is the checkout mode the processor uses for a plan.
type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

func (m Mode) Valid() bool {
	return m == ModePayment || m == ModeSubscription
}

// Plan describes one purchasable plan. PriceID is its identity.
type Plan struct {
	ID          string          `json:"id"`
	PriceID     string          `json:"price_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Mode        Mode            `json:"mode"`
	Price       decimal.Decimal `json:"price"`
	Tagline     string          `json:"tagline,omitempty"`
	Features    []string        `json:"features,omitempty"`
	Popular     bool            `json:"popular,omitempty"`
}

// AmountLabel renders the price as "$89" or "$89.50".
func (p Plan) AmountLabel() string {
	if p.Price.Equal(p.Price.Truncate(0)) {
		return "$" + p.Price.StringFixed(0)
	}
	return "$" + p.Price.StringFixed(2)
}

// PriceLabel renders the price with its billing period, e.g. "$89/month".
func (p Plan) PriceLabel() string {
	if p.Mode == ModeSubscription {
		return p.AmountLabel() + "/month"
	}
	return p.AmountLabel()
}

// IsSubscription reports whether checkout creates a recurring subscription.
func (p Plan) IsSubscription() bool {
	return p.Mode == ModeSubscription
}

func (p Plan) clone() Plan {
	if p.Features != nil {
		p.Features = append([]string(nil), p.Features...)
	}
	return p
}

// Catalog is an immutable, ordered set of plans keyed by price id.
type Catalog struct {
	plans     []Plan
	byPriceID map[string]int
}

// New builds a catalog. Plans keep the given order.
func New(plans ...Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, errors.New("catalog: at least one plan is required")
	}

	c := &Catalog{
		plans:     make([]Plan, 0, len(plans)),
		byPriceID: make(map[string]int, len(plans)),
	}
	for _, p := range plans {
		p.PriceID = strings.TrimSpace(p.PriceID)
		if p.PriceID == "" {
			return nil, fmt.Errorf("catalog: plan %q has no price id", p.Name)
		}
		if !p.Mode.Valid() {
			return nil, fmt.Errorf("catalog: plan %q has invalid mode %q", p.PriceID, p.Mode)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("catalog: plan %q has a negative price", p.PriceID)
		}
		if _, dup := c.byPriceID[p.PriceID]; dup {
			return nil, fmt.Errorf("catalog: duplicate price id %q", p.PriceID)
		}
		c.byPriceID[p.PriceID] = len(c.plans)
		c.plans = append(c.plans, p.clone())
	}
	return c, nil
}

// MustNew is New for static tables.
func MustNew(plans ...Plan) *Catalog {
	c, err := New(plans...)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads a JSON array of plans.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var plans []Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	return New(plans...)
}

// Lookup returns the plan for a price id. A miss is not an error.
func (c *Catalog) Lookup(priceID string) (Plan, bool) {
	if c == nil {
		return Plan{}, false
	}
	i, ok := c.byPriceID[strings.TrimSpace(priceID)]
	if !ok {
		return Plan{}, false
	}
	return c.plans[i].clone(), true
}

// Plans returns the plans in catalog order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	for i, p := range c.plans {
		out[i] = p.clone()
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.plans)
}
