// Package server is the HTTP edge of the dashboard. It serves every origin (the public
// base domain and each tenant subdomain), keeps one session per origin and proxies API
// calls to the backend with the session's tokens.
package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/apiclient"
	"github.com/jrsteele09/go-tenant-gateway/auth"
	"github.com/jrsteele09/go-tenant-gateway/internal/config"
	"github.com/jrsteele09/go-tenant-gateway/internal/metrics"
	"github.com/jrsteele09/go-tenant-gateway/origin"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/jrsteele09/go-tenant-gateway/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env             string // Environment (e.g., "DEV", "PROD")
	mux             *http.ServeMux
	routes          []string
	config          config.Config
	policy          *origin.Policy
	auth            *auth.Service
	sessions        sessions.Repo
	guard           *sessions.Guard
	public          refresh.PublicEndpoints
	upstream        http.RoundTripper // nil uses http.DefaultTransport
	upstreamTimeout time.Duration
	registerer      prometheus.Registerer
	metrics         http.Handler
	signInTmpl      *template.Template

	coordinators     map[string]*refresh.Coordinator
	coordinatorsLock sync.Mutex
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithUpstreamTransport sets the transport used for every backend call.
func WithUpstreamTransport(rt http.RoundTripper) Option {
	return func(s *Server) {
		s.upstream = rt
	}
}

// WithRegisterer sets where the gateway's collectors are registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.registerer = reg
	}
}

func New(config config.Config, sessionRepo sessions.Repo, options ...Option) (*Server, error) {
	if sessionRepo == nil {
		return nil, fmt.Errorf("[Server New] session repo is required")
	}

	s := &Server{
		env:             config.GetEnv(),
		mux:             http.NewServeMux(),
		config:          config,
		policy:          origin.NewPolicy(config),
		sessions:        sessionRepo,
		guard:           sessions.NewGuard(),
		public:          refresh.PublicEndpoints(config.GetPublicEndpoints()),
		upstreamTimeout: config.GetUpstreamTimeout(),
		coordinators:    make(map[string]*refresh.Coordinator),
	}
	for _, opt := range options {
		opt(s)
	}

	authService, err := auth.NewService(s.policy, s.authenticatorFor, auth.WithLogoutTimeout(config.GetLogoutTimeout()))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth service: %w", err)
	}
	s.auth = authService

	if s.metrics, err = metrics.Register(s.registerer); err != nil {
		return nil, fmt.Errorf("[Server New] failed to register metrics: %w", err)
	}

	if s.signInTmpl, err = ParseTemplate("sign_in.html"); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse sign-in template: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}

// authenticatorFor logs in against the public API of the base domain of host.
func (s *Server) authenticatorFor(scheme, host string) auth.Authenticator {
	return apiclient.New(s.policy.BackendURL(scheme, host, true), s.policy.BackendURL(scheme, host, false), s.upstreamClient())
}

// coordinator returns the renewal coordinator of one public API. Every origin of a
// base domain refreshes through the same backend, so they share a coordinator.
func (s *Server) coordinator(publicAPI string) *refresh.Coordinator {
	s.coordinatorsLock.Lock()
	defer s.coordinatorsLock.Unlock()

	c, ok := s.coordinators[publicAPI]
	if !ok {
		c = refresh.NewCoordinator(apiclient.New(publicAPI, "", s.upstreamClient()))
		s.coordinators[publicAPI] = c
	}
	return c
}

func (s *Server) upstreamClient() *http.Client {
	return &http.Client{Transport: s.upstream, Timeout: s.upstreamTimeout}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(scheme, ",")[0]))
	}
	return "http"
}

// requestOrigin identifies the browser origin of r, the unit sessions are scoped to.
func requestOrigin(r *http.Request) string {
	return getScheme(r) + "://" + strings.ToLower(r.Host)
}
