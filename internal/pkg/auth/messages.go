package auth

import (
	"errors"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/backend"
)

// UserMessage turns a sign-in or sign-up error into text for the form.
func UserMessage(err error) string {
	var apiErr *backend.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "Please enter your email and password."
	case backend.IsUnavailable(err):
		return "Unable to reach the authentication service. Please try again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "Something went wrong. Please try again."
	}
}
