package backend

import (
	"context"
	"net/http"
	"net/url"
)

const subscriptionColumns = "customer_id,subscription_id,subscription_status,price_id," +
	"current_period_start,current_period_end,cancel_at_period_end," +
	"payment_method_brand,payment_method_last4"

// SubscriptionRow is one row of the per-user subscription view. Every column
// may be null.
type SubscriptionRow struct {
	CustomerID         *string `json:"customer_id"`
	SubscriptionID     *string `json:"subscription_id"`
	SubscriptionStatus *string `json:"subscription_status"`
	PriceID            *string `json:"price_id"`
	CurrentPeriodStart *int64  `json:"current_period_start"`
	CurrentPeriodEnd   *int64  `json:"current_period_end"`
	CancelAtPeriodEnd  *bool   `json:"cancel_at_period_end"`
	PaymentMethodBrand *string `json:"payment_method_brand"`
	PaymentMethodLast4 *string `json:"payment_method_last4"`
}

// FetchSubscription reads the caller's row from the subscription view. The
// view is filtered by the token's user, so zero rows means no subscription.
func (c *Client) FetchSubscription(ctx context.Context, accessToken string) (*SubscriptionRow, error) {
	q := url.Values{
		"select": {subscriptionColumns},
		"limit":  {"1"},
	}
	var rows []SubscriptionRow
	if err := c.do(ctx, http.MethodGet, "/rest/v1/stripe_user_subscriptions", q, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &row, nil
}
