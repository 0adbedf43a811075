// Package refresh attaches session tokens to outgoing requests and renews them once
// when the backend answers 401.
package refresh

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"golang.org/x/oauth2"
)

// PublicEndpoints are path fragments that never receive a bearer token and never
// trigger a renewal: login, refresh and tenant creation.
type PublicEndpoints []string

// Match reports whether path contains one of the public fragments.
func (p PublicEndpoints) Match(path string) bool {
	for _, e := range p {
		if e != "" && strings.Contains(path, e) {
			return true
		}
	}
	return false
}

// Transport is an http.RoundTripper bound to one session.
type Transport struct {
	Base        http.RoundTripper
	Store       sessions.VersionedStore
	Coordinator *Coordinator
	Key         string
	Public      PublicEndpoints
}

var _ http.RoundTripper = (*Transport)(nil)

// NewClient returns an http.Client that sends every request through a Transport.
func NewClient(base *http.Client, t *Transport) *http.Client {
	c := &http.Client{Transport: t}
	if base != nil {
		if t.Base == nil {
			t.Base = base.Transport
		}
		c.Timeout = base.Timeout
		c.CheckRedirect = base.CheckRedirect
		c.Jar = base.Jar
	}
	return c
}

// RoundTrip sends req with the session's access token. On a first 401 it renews the
// token through the Coordinator and replays req once. A second 401 is returned as is.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Public.Match(req.URL.Path) {
		out := req.Clone(req.Context())
		out.Header.Del("Authorization")
		return t.base().RoundTrip(out)
	}

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, fmt.Errorf("[refresh RoundTrip] %w", err)
	}

	creds, err := t.Store.Read(req.Context())
	if err != nil {
		return nil, fmt.Errorf("[refresh RoundTrip] read session: %w", err)
	}
	var access string
	if creds != nil {
		access = creds.AccessToken
	}

	resp, err := t.send(req, getBody, access)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	drain(resp)

	tok, err := t.Coordinator.Renew(req.Context(), t.Key, t.Store, access, resp.StatusCode)
	if err != nil {
		return nil, err
	}
	return t.send(req, getBody, tok.AccessToken)
}

func (t *Transport) send(req *http.Request, getBody func() (io.ReadCloser, error), access string) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Del("Authorization")
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("[refresh send] %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}
	if access != "" {
		(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(out)
	}
	return t.base().RoundTrip(out)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// replayableBody returns a factory for fresh copies of the request body, buffering
// it when the request does not provide one.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
