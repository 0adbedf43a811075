package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/apiclient"
	"github.com/jrsteele09/go-tenant-gateway/auth"
	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/rs/zerolog/log"
)

// AuthCallbackHandler installs a session handed over from another origin
// (GET /auth-callback). The browser is always sent away from the callback URL.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav, err := s.auth.Callback(r.Context(), s.session(w, r).store, r.URL.Query())
		if err != nil {
			log.Warn().Err(err).Str("host", r.Host).Msg("handoff callback failed")
		}
		navigate(w, r, nav)
	}
}

// LogoutHandler signs the browser out of the current origin (GET|POST /auth/logout).
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.session(w, r)
		client := s.apiClient(r, sess)

		nav, err := s.auth.Logout(r.Context(), auth.LogoutRequest{
			Scheme: getScheme(r),
			Host:   r.Host,
			Store:  sess.store,
			Notify: client.Logout,
		})
		if err != nil {
			log.Err(err).Str("host", r.Host).Msg("failed to clear session on logout")
		}
		navigate(w, r, nav)
	}
}

// SessionHandler reports the current origin's session (GET /auth/session).
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.auth.Session(r.Context(), s.session(w, r).store)
		if err != nil {
			log.Err(err).Msg("failed to read session")
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "session unavailable")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// MeHandler returns the backend's record of the signed-in user (GET /auth/me).
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.apiClient(r, s.session(w, r)).Me(r.Context())
		if err != nil {
			s.writeBackendError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// HealthHandler reports liveness, and the session store's reachability when it can tell.
func (s *Server) HealthHandler() http.HandlerFunc {
	type pinger interface {
		Ping(ctx context.Context) error
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := s.sessions.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				log.Err(err).Msg("session store unreachable")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// apiClient returns a backend client whose tenant calls carry the session's tokens.
func (s *Server) apiClient(r *http.Request, sess requestSession) *apiclient.Client {
	scheme := getScheme(r)
	return apiclient.New(
		s.policy.BackendURL(scheme, r.Host, true),
		s.policy.BackendURL(scheme, r.Host, false),
		s.sessionClient(r, sess),
	).WithStore(sess.store)
}

// writeBackendError answers for a failed backend call. An expired session gets a 401
// pointing at the public sign-in page; other backend statuses pass through.
func (s *Server) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var expired *errors.AuthExpiredError
	var upstream *errors.UpstreamError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
	case errors.As(err, &expired):
		writeJSON(w, http.StatusUnauthorized, apiError{
			Error:    "session_expired",
			Redirect: s.policy.BuildPublicURL(getScheme(r), r.Host, RouteSignIn, nil),
		})
	case errors.As(err, &upstream):
		writeJSONError(w, upstream.StatusCode, "upstream_error", upstream.Message)
	case errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, "upstream_timeout", "backend did not answer in time")
	default:
		log.Err(err).Str("path", r.URL.Path).Msg("backend call failed")
		writeJSONError(w, http.StatusBadGateway, "upstream_unavailable", "backend unavailable")
	}
}
