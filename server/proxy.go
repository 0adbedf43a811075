package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-tenant-gateway/token/refresh"
	"github.com/rs/zerolog/log"
)

// APIProxyHandler forwards /api/ to the backend with the session's tokens. Public
// endpoints go to the base domain's backend, everything else to the tenant's.
func (s *Server) APIProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := s.config.GetMaxRequestBody()
		if r.ContentLength > limit {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return
		}
		if r.Body != nil && r.Body != http.NoBody {
			// The body is buffered for a possible replay, so its size must be bounded.
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		sess := s.session(w, r)
		scheme := getScheme(r)

		target, err := url.Parse(s.policy.BackendURL(scheme, r.Host, s.public.Match(r.URL.Path)))
		if err != nil {
			log.Err(err).Str("host", r.Host).Msg("invalid backend URL")
			writeJSONError(w, http.StatusBadGateway, "upstream_unavailable", "backend unavailable")
			return
		}

		proxy := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.Out.URL.Scheme = target.Scheme
				pr.Out.URL.Host = target.Host
				pr.Out.URL.Path = target.Path + strings.TrimPrefix(pr.In.URL.Path, "/api")
				pr.Out.URL.RawPath = ""
				pr.Out.Host = target.Host
				// The gateway's own cookie is none of the backend's business.
				pr.Out.Header.Del("Cookie")
				pr.SetXForwarded()
			},
			Transport: s.sessionTransport(r, sess),
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				s.writeBackendError(w, r, err)
			},
		}
		proxy.ServeHTTP(w, r)
	}
}

// sessionTransport attaches and renews the tokens of sess.
func (s *Server) sessionTransport(r *http.Request, sess requestSession) *refresh.Transport {
	return &refresh.Transport{
		Base:        s.upstream,
		Store:       sess.store,
		Coordinator: s.coordinator(s.policy.BackendURL(getScheme(r), r.Host, true)),
		Key:         sess.key,
		Public:      s.public,
	}
}

func (s *Server) sessionClient(r *http.Request, sess requestSession) *http.Client {
	return refresh.NewClient(s.upstreamClient(), s.sessionTransport(r, sess))
}
