package server

import "github.com/jrsteele09/go-tenant-gateway/auth"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Browser routes, served on every origin
	RouteSignIn       = auth.SignInPath
	RouteAuthCallback = auth.CallbackPath

	// Auth Routes - Login & Logout
	RouteAuthLogin   = "/auth/login"
	RouteAuthLogout  = "/auth/logout"
	RouteAuthSession = "/auth/session"
	RouteAuthMe      = "/auth/me"

	// Backend API, proxied with the session's tokens
	RouteAPI = "/api/"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
