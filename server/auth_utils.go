package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-gateway/auth"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"
)

// requestSession is the session of the origin a request arrived on.
type requestSession struct {
	store sessions.VersionedStore
	key   string // sessions.ScopeKey of the session, used to coalesce renewals
}

// session binds the request to its origin's session, issuing a session cookie when the
// browser has none. The cookie is host-only, so each origin gets its own.
func (s *Server) session(w http.ResponseWriter, r *http.Request) requestSession {
	name := s.config.GetSessionCookieName()

	var sessionID string
	if cookie, err := r.Cookie(name); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			sessionID = cookie.Value
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
		s.setSessionCookie(w, r, sessionID)
	}

	o := requestOrigin(r)
	return requestSession{
		store: sessions.Scoped(s.sessions, o, sessionID, s.config.GetMaxSessionAge(), sessions.WithGuard(s.guard)),
		key:   sessions.ScopeKey(o, sessionID),
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetMaxSessionAge().Seconds()),
	})
}

// navigate executes a navigation effect. A replacing navigation leaves the current URL
// out of caches and Referer headers, since it carries a credential handoff.
func navigate(w http.ResponseWriter, r *http.Request, nav auth.Navigate) {
	if nav.Replace {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Referrer-Policy", "no-referrer")
	}
	redirectSuccess(w, r, nav.URL)
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg, email string) {
	q := url.Values{}
	q.Set("error", errorMsg)
	if email != "" {
		q.Set("email", email)
	}
	redirectSuccess(w, r, path+"?"+q.Encode())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeJSON) ||
		strings.HasPrefix(r.Header.Get("Accept"), contentTypeJSON)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write JSON response")
	}
}

// apiError is the body of every JSON error answered by the gateway itself.
type apiError struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
