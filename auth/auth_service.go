// Package auth decides where a browser goes during sign-in, handoff and sign-out.
//
// The service never writes HTTP responses. Every operation returns a Navigate effect
// that the HTTP layer executes, so the decisions can be tested without a browser.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/apiclient"
	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/internal/metrics"
	"github.com/jrsteele09/go-tenant-gateway/origin"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/jrsteele09/go-tenant-gateway/tenants"
	"github.com/jrsteele09/go-tenant-gateway/transfer"
	"github.com/rs/zerolog/log"
)

// Browser paths served on every origin.
const (
	SignInPath    = "/authentication/sign-in"
	CallbackPath  = "/auth-callback"
	DashboardPath = transfer.DefaultDestination
)

const defaultLogoutTimeout = 3 * time.Second

// Navigate is a browser navigation. Replace means the current history entry must be
// replaced rather than pushed, used when the current URL carries credentials.
type Navigate struct {
	URL     string
	Replace bool
}

// Authenticator performs the backend login for one origin.
type Authenticator interface {
	Login(ctx context.Context, email, password, tenantSchema string) (*apiclient.LoginResponse, error)
}

// AuthenticatorFactory returns the Authenticator used for requests arriving on host.
type AuthenticatorFactory func(scheme, host string) Authenticator

// LoginRequest is a sign-in attempt made on the origin Scheme://Host.
type LoginRequest struct {
	Scheme       string
	Host         string
	Store        sessions.Store // session of the current origin
	Email        string
	Password     string
	TenantSchema string // optional
}

// LogoutRequest ends the session of the origin Scheme://Host. Notify, when set, tells
// the backend; its failure never prevents the local sign-out.
type LogoutRequest struct {
	Scheme string
	Host   string
	Store  sessions.Store
	Notify func(ctx context.Context, refreshToken string) error
}

// SessionState is what the dashboard needs to know about the current origin's session.
type SessionState struct {
	Authenticated bool            `json:"authenticated"`
	User          json.RawMessage `json:"user"`
	Tenant        json.RawMessage `json:"tenant"`
}

// Service runs the sign-in, handoff and sign-out flows.
type Service struct {
	policy         *origin.Policy
	authenticators AuthenticatorFactory
	validator      *Validator
	logoutTimeout  time.Duration
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithLogoutTimeout bounds the backend notification made during logout.
func WithLogoutTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

// NewService creates the flow service.
func NewService(policy *origin.Policy, authenticators AuthenticatorFactory, options ...ServiceOption) (*Service, error) {
	if policy == nil {
		return nil, fmt.Errorf("[NewService] origin policy is required")
	}
	if authenticators == nil {
		return nil, fmt.Errorf("[NewService] authenticator factory is required")
	}

	s := &Service{
		policy:         policy,
		authenticators: authenticators,
		validator:      NewValidator(),
		logoutTimeout:  defaultLogoutTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login authenticates the user and decides which origin keeps the session.
//
// When the user belongs to the current origin (or neither has a tenant) the session
// is written here and the browser goes to the dashboard. Otherwise the credentials
// are handed to the other origin's callback and the current origin's session is left
// untouched. A failed login never modifies the session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Navigate, error) {
	if err := s.validator.ValidateLogin(req.Email, req.Password, req.TenantSchema); err != nil {
		return Navigate{}, fmt.Errorf("[auth Login] %w", err)
	}

	if current := tenants.Resolve(req.Host); current.Nested {
		log.Warn().
			Str("host", req.Host).
			Str("tenant", current.TenantSlug).
			Msg("nested subdomain, using its first label as tenant")
	}

	resp, err := s.authenticators(req.Scheme, req.Host).Login(ctx, req.Email, req.Password, req.TenantSchema)
	if err != nil {
		return Navigate{}, fmt.Errorf("[auth Login] %w", err)
	}

	creds := resp.Credentials()
	tenant, err := tenants.ParseTenant(creds.Tenant)
	if err != nil {
		return Navigate{}, errors.Wrapf(errors.ErrUpstream, "[auth Login] login response tenant: %v", err)
	}
	slug := tenant.Slug()

	classification := s.policy.Classify(req.Host, slug)
	metrics.Logins.WithLabelValues(classification.String()).Inc()
	log.Info().
		Str("host", req.Host).
		Str("tenant", slug).
		Stringer("classification", classification).
		Msg("login succeeded")

	if classification != origin.Mismatched {
		if err := req.Store.Write(ctx, creds); err != nil {
			return Navigate{}, fmt.Errorf("[auth Login] %w", err)
		}
		return Navigate{URL: DashboardPath}, nil
	}

	payload := transfer.Encode(creds, DashboardPath)
	if slug == "" {
		// A user without a tenant signed in on a tenant origin: the public origin keeps the session.
		return Navigate{URL: s.policy.BuildPublicURL(req.Scheme, req.Host, CallbackPath, payload)}, nil
	}

	target, err := s.policy.BuildTenantURL(req.Scheme, req.Host, slug, CallbackPath, payload)
	if err != nil {
		return Navigate{}, fmt.Errorf("[auth Login] %w", err)
	}
	return Navigate{URL: target}, nil
}

// Callback installs a handed-off session on the current origin. Any decode failure
// clears the session and sends the browser to sign-in. Both outcomes replace the
// history entry so the credential-bearing URL is not kept.
func (s *Service) Callback(ctx context.Context, store sessions.Store, query url.Values) (Navigate, error) {
	signIn := Navigate{URL: SignInPath, Replace: true}

	payload, err := transfer.Decode(query)
	if err != nil {
		metrics.Callbacks.WithLabelValues("rejected").Inc()
		log.Warn().Err(err).Msg("auth callback rejected")
		if clearErr := store.Clear(ctx); clearErr != nil {
			log.Err(clearErr).Msg("failed to clear session after rejected callback")
		}
		return signIn, fmt.Errorf("[auth Callback] %w", err)
	}

	if err := store.Write(ctx, payload.Credentials); err != nil {
		metrics.Callbacks.WithLabelValues("failed").Inc()
		if clearErr := store.Clear(ctx); clearErr != nil {
			log.Err(clearErr).Msg("failed to clear session after callback write failure")
		}
		return signIn, fmt.Errorf("[auth Callback] %w", err)
	}

	metrics.Callbacks.WithLabelValues("accepted").Inc()
	return Navigate{URL: payload.DestinationPath, Replace: true}, nil
}

// Logout notifies the backend on a best-effort basis, always clears the session and
// sends the browser to the public origin's sign-in page. The returned error only
// reports a failure to clear the session; the navigation is valid either way.
func (s *Service) Logout(ctx context.Context, req LogoutRequest) (Navigate, error) {
	nav := Navigate{URL: s.policy.BuildPublicURL(req.Scheme, req.Host, SignInPath, nil)}

	if req.Notify != nil {
		var refreshToken string
		if creds, err := req.Store.Read(ctx); err == nil && creds != nil {
			refreshToken = creds.RefreshToken
		}
		notifyCtx, cancel := context.WithTimeout(ctx, s.logoutTimeout)
		if err := req.Notify(notifyCtx, refreshToken); err != nil {
			log.Warn().Err(err).Str("host", req.Host).Msg("backend logout failed, signing out locally")
		}
		cancel()
	}

	if err := req.Store.Clear(ctx); err != nil {
		return nav, fmt.Errorf("[auth Logout] %w", err)
	}
	return nav, nil
}

// Session reports the state of the current origin's session.
func (s *Service) Session(ctx context.Context, store sessions.Store) (SessionState, error) {
	creds, err := store.Read(ctx)
	if err != nil {
		return SessionState{}, fmt.Errorf("[auth Session] %w", err)
	}
	if creds == nil {
		return SessionState{}, nil
	}

	state := SessionState{
		Authenticated: creds.AccessToken != "" && len(creds.User) > 0,
		User:          creds.User,
	}
	if creds.HasTenant() {
		state.Tenant = creds.Tenant
	}
	return state, nil
}
