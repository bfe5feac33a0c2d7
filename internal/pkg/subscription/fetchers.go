package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/backend"
)

type rowSource interface {
	FetchSubscription(ctx context.Context, accessToken string) (*backend.SubscriptionRow, error)
}

// RESTFetcher reads the subscription view through the backend data API with
// the user's own token.
type RESTFetcher struct {
	client rowSource
}

func NewRESTFetcher(c *backend.Client) *RESTFetcher {
	return &RESTFetcher{client: c}
}

func (f *RESTFetcher) Fetch(ctx context.Context, _ auth.Identity, accessToken string) (*Record, error) {
	row, err := f.client.FetchSubscription(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription: %w", err)
	}
	return FromRow(row), nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresFetcher reads the subscription tables directly with service
// credentials, filtered by user id.
type PostgresFetcher struct {
	db rowQuerier
}

// NewPostgresFetcher accepts a *pgxpool.Pool or a *pgx.Conn.
func NewPostgresFetcher(db rowQuerier) *PostgresFetcher {
	return &PostgresFetcher{db: db}
}

const selectSubscriptionSQL = `
	SELECT c.customer_id,
	       s.subscription_id,
	       s.status::text,
	       s.price_id,
	       s.current_period_start,
	       s.current_period_end,
	       s.cancel_at_period_end,
	       s.payment_method_brand,
	       s.payment_method_last4
	FROM stripe_customers c
	LEFT JOIN stripe_subscriptions s
	       ON s.customer_id = c.customer_id AND s.deleted_at IS NULL
	WHERE c.user_id = $1
	  AND c.deleted_at IS NULL
	LIMIT 1
`

func (f *PostgresFetcher) Fetch(ctx context.Context, id auth.Identity, _ string) (*Record, error) {
	var row backend.SubscriptionRow
	err := f.db.QueryRow(ctx, selectSubscriptionSQL, id.UserID).Scan(
		&row.CustomerID,
		&row.SubscriptionID,
		&row.SubscriptionStatus,
		&row.PriceID,
		&row.CurrentPeriodStart,
		&row.CurrentPeriodEnd,
		&row.CancelAtPeriodEnd,
		&row.PaymentMethodBrand,
		&row.PaymentMethodLast4,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", id.UserID, err)
	}
	return FromRow(&row), nil
}
