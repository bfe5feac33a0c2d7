package repository

import (
	"context"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PlanDeck/app/models"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/checkout"
)

const maxErrorLen = 512

// checkoutAttemptRepository implements the CheckoutAttemptRepository interface
type checkoutAttemptRepository struct {
	db *gorm.DB
}

// NewCheckoutAttemptRepository creates a new checkout attempt repository instance
func NewCheckoutAttemptRepository(db *gorm.DB) CheckoutAttemptRepository {
	return &checkoutAttemptRepository{db: db}
}

func (r *checkoutAttemptRepository) Create(ctx context.Context, attempt *models.CheckoutAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// ListByUser returns the user's most recent attempts, newest first
func (r *checkoutAttemptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.CheckoutAttempt, error) {
	var attempts []models.CheckoutAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// AttemptRecorder stores checkout attempts through the repository.
type AttemptRecorder struct {
	repo CheckoutAttemptRepository
}

func NewAttemptRecorder(repo CheckoutAttemptRepository) *AttemptRecorder {
	return &AttemptRecorder{repo: repo}
}

func (r *AttemptRecorder) RecordAttempt(ctx context.Context, a checkout.Attempt) error {
	return r.repo.Create(ctx, attemptModel(a))
}

func attemptModel(a checkout.Attempt) *models.CheckoutAttempt {
	msg := a.Error
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
		for !utf8.ValidString(msg) {
			msg = msg[:len(msg)-1]
		}
	}
	return &models.CheckoutAttempt{
		AttemptID:  a.ID,
		UserID:     a.UserID,
		PriceID:    a.PriceID,
		Mode:       a.Mode,
		Outcome:    a.Outcome,
		HTTPStatus: a.HTTPStatus,
		Error:      msg,
		DurationMS: a.Duration.Milliseconds(),
		CreatedAt:  a.CreatedAt,
	}
}
