package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired       = errors.New("checkout: sign-in required")
	ErrCheckoutInProgress = errors.New("checkout: already in progress")
	ErrNetworkUnavailable = errors.New("checkout: service unreachable")
	ErrInvalidRequest     = errors.New("checkout: invalid request")
)

const (
	msgFailed         = "Failed to create checkout session"
	msgNoURL          = "No checkout URL received"
	msgInvalidURL     = "Invalid checkout URL received"
	msgUnreachable    = "Unable to reach the checkout service. Please try again."
	msgInProgress     = "Checkout already in progress"
	msgInvalidRequest = "Invalid checkout request"
)

// RemoteRejectedError is a checkout endpoint answer that did not yield a
// redirect URL.
type RemoteRejectedError struct {
	Status  int
	Message string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("checkout rejected (status %d): %s", e.Status, e.Message)
}

// UserMessage is the inline text shown next to the checkout button.
func UserMessage(err error) string {
	var rejected *RemoteRejectedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.Is(err, ErrNetworkUnavailable):
		return msgUnreachable
	case errors.Is(err, ErrCheckoutInProgress):
		return msgInProgress
	case errors.Is(err, ErrInvalidRequest):
		return msgInvalidRequest
	default:
		return msgFailed
	}
}
