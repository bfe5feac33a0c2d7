package repository

import (
	"context"

	"github.com/ManuelReschke/PlanDeck/app/models"
)

// CheckoutAttemptRepository defines the audit table operations
type CheckoutAttemptRepository interface {
	Create(ctx context.Context, attempt *models.CheckoutAttempt) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.CheckoutAttempt, error)
}
