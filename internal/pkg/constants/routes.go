package constants

// Web routes
const (
	RouteIndex         = "/"
	RoutePricing       = "/pricing"
	RouteLogin         = "/login"
	RouteSignup        = "/signup"
	RouteLogout        = "/logout"
	RouteCheckout      = "/checkout"
	RouteSuccess       = "/success"
	RouteSuccessStatus = "/success/status"
	RouteDashboard     = "/dashboard"
	RouteHealth        = "/healthz"
)

// APIPrefix is skipped by the CSRF middleware.
const APIPrefix = "/api/"
