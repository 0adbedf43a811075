package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// SIGN-IN
	s.RegisterRouteHandler("GET "+RouteSignIn, ChainMiddleware(s.SignInPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.AuthCallbackHandler(), s.HTMLMiddleWare()...))

	// LOGOUT
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Session API routes
	s.RegisterRouteHandler("GET "+RouteAuthSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware()...))

	// Backend API proxy
	s.RegisterRouteHandler(RouteAPI, ChainMiddleware(s.APIProxyHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics)
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
