package models

import "time"

const (
	CheckoutOutcomeRedirected  = "redirected"
	CheckoutOutcomeRejected    = "rejected"
	CheckoutOutcomeUnreachable = "unreachable"
	CheckoutOutcomeAbandoned   = "abandoned"
)

// CheckoutAttempt is the local audit row for one checkout-session request.
// Payment state itself lives with the payment processor.
type CheckoutAttempt struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	AttemptID  string    `gorm:"type:char(36);not null;uniqueIndex" json:"attempt_id"`
	UserID     string    `gorm:"type:varchar(64);not null;index:idx_checkout_attempts_user_created,priority:1" json:"user_id"`
	PriceID    string    `gorm:"type:varchar(191);not null" json:"price_id"`
	Mode       string    `gorm:"type:varchar(16);not null" json:"mode"`
	Outcome    string    `gorm:"type:varchar(16);not null;index" json:"outcome"`
	HTTPStatus int       `gorm:"not null;default:0" json:"http_status"`
	Error      string    `gorm:"type:varchar(512)" json:"error,omitempty"`
	DurationMS int64     `gorm:"not null;default:0" json:"duration_ms"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_checkout_attempts_user_created,priority:2" json:"created_at"`
}

func (CheckoutAttempt) TableName() string {
	return "checkout_attempts"
}

// Succeeded reports whether the attempt produced a redirect.
func (a CheckoutAttempt) Succeeded() bool {
	return a.Outcome == CheckoutOutcomeRedirected
}
