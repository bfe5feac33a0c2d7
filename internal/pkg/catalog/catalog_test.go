package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupReturnsEveryPlan(t *testing.T) {
	c := Default()
	for _, p := range c.Plans() {
		got, ok := c.Lookup(p.PriceID)
		require.True(t, ok, "price %s", p.PriceID)
		assert.Equal(t, p, got)
	}
}

func TestLookupMiss(t *testing.T) {
	c := Default()
	_, ok := c.Lookup("price_unknown")
	assert.False(t, ok)

	var nilCatalog *Catalog
	_, ok = nilCatalog.Lookup("price_unknown")
	assert.False(t, ok)
}

func TestPlansKeepOrderAndAreCopies(t *testing.T) {
	c := Default()
	plans := c.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "BASIC", plans[0].Name)
	assert.Equal(t, "ELITE", plans[1].Name)
	assert.Equal(t, "ENTERPRISE", plans[2].Name)

	plans[1].Name = "MUTATED"
	plans[1].Features[0] = "MUTATED"
	again, _ := c.Lookup(plans[1].PriceID)
	assert.Equal(t, "ELITE", again.Name)
	assert.Equal(t, "Advanced Neural Interface", again.Features[0])
}

func TestNewRejectsInvalidPlans(t *testing.T) {
	tests := []struct {
		name  string
		plans []Plan
	}{
		{"empty", nil},
		{"missing price id", []Plan{{Name: "x", Mode: ModeSubscription}}},
		{"invalid mode", []Plan{{PriceID: "price_a", Mode: "weekly"}}},
		{"negative price", []Plan{{PriceID: "price_a", Mode: ModePayment, Price: decimal.NewFromInt(-1)}}},
		{"duplicate", []Plan{
			{PriceID: "price_a", Mode: ModePayment},
			{PriceID: "price_a", Mode: ModeSubscription},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.plans...)
			assert.Error(t, err)
		})
	}
}

func TestPriceLabel(t *testing.T) {
	tests := []struct {
		price string
		mode  Mode
		want  string
	}{
		{"89.00", ModeSubscription, "$89/month"},
		{"29", ModeSubscription, "$29/month"},
		{"19.5", ModeSubscription, "$19.50/month"},
		{"199.00", ModePayment, "$199"},
	}

	for _, tt := range tests {
		p := Plan{Mode: tt.mode, Price: decimal.RequireFromString(tt.price)}
		assert.Equal(t, tt.want, p.PriceLabel())
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plans.json")
	raw := `[
		{"id":"prod_1","price_id":"price_X","name":"ELITE","description":"d","mode":"subscription","price":89.00},
		{"id":"prod_2","price_id":"price_Y","name":"LIFETIME","description":"d","mode":"payment","price":"499.99"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	p, ok := c.Lookup("price_X")
	require.True(t, ok)
	assert.Equal(t, "ELITE", p.Name)
	assert.Equal(t, "$89/month", p.PriceLabel())

	p, ok = c.Lookup("price_Y")
	require.True(t, ok)
	assert.Equal(t, "$499.99", p.PriceLabel())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
