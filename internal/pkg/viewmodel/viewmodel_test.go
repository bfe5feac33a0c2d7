package viewmodel

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/subscription"
)

func TestMessageFromMap(t *testing.T) {
	assert.Nil(t, MessageFromMap(nil))
	assert.Nil(t, MessageFromMap(fiber.Map{"type": "error"}))

	msg := MessageFromMap(fiber.Map{"type": "error", "message": "Invalid login credentials", "error": true})
	require.NotNil(t, msg)
	assert.True(t, msg.IsError())
	assert.Equal(t, "Invalid login credentials", msg.Text)

	info := MessageFromMap(fiber.Map{"message": "hello"})
	require.NotNil(t, info)
	assert.Equal(t, "info", info.Type)
	assert.False(t, info.IsError())
}

func TestPlanCardButtonLabel(t *testing.T) {
	plans := catalog.Default().Plans()
	sub := PlanCard{Plan: plans[0]}
	assert.Equal(t, "Subscribe", sub.ButtonLabel())

	sub.IsCurrent = true
	assert.Equal(t, "Current Plan", sub.ButtonLabel())

	once := PlanCard{Plan: catalog.Plan{PriceID: "p", Mode: catalog.ModePayment}}
	assert.Equal(t, "Purchase", once.ButtonLabel())
}

func TestDashboardHasSubscription(t *testing.T) {
	assert.False(t, Dashboard{}.HasSubscription())

	notStarted := Dashboard{Snapshot: subscription.Snapshot{Record: &subscription.Record{Status: subscription.StatusNotStarted}}}
	assert.False(t, notStarted.HasSubscription())

	active := Dashboard{Snapshot: subscription.Snapshot{Record: &subscription.Record{Status: subscription.StatusActive}}}
	assert.True(t, active.HasSubscription())
	assert.True(t, active.IsActive())
}

func TestFormatDateAndTone(t *testing.T) {
	assert.Equal(t, "N/A", FormatDate(nil))
	ts := time.Date(2025, 6, 19, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "Jun 19, 2025", FormatDate(&ts))

	assert.Equal(t, "bg-green-500", ToneClass("green"))
	assert.Equal(t, "bg-gray-500", ToneClass("magenta"))
}
