package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-gateway/auth"
	"github.com/rs/zerolog/log"
)

// IndexHandler sends the browser to the dashboard when the origin has a session and
// to the sign-in page otherwise (GET /).
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.auth.Session(r.Context(), s.session(w, r).store)
		if err != nil {
			log.Err(err).Msg("failed to read session")
		}
		if state.Authenticated {
			redirectSuccess(w, r, auth.DashboardPath)
			return
		}
		redirectSuccess(w, r, RouteSignIn)
	}
}
