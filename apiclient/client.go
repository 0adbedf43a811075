// Package apiclient is the gateway's client for the complaint-management REST API.
//
// Public endpoints (login, refresh, tenant creation) live on the base domain. Every
// other endpoint lives on the tenant's own origin and is expected to be called through
// an *http.Client built with refresh.NewClient so bearer tokens are attached and renewed.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/jrsteele09/go-tenant-gateway/token/refresh"
	"golang.org/x/oauth2"
)

const (
	LoginPath          = "/auth/login/"
	RefreshPath        = "/auth/token/refresh/"
	TenantCreatePath   = "/tenants/create/"
	LogoutPath         = "/auth/logout/"
	MePath             = "/auth/me/"
	ChangePasswordPath = "/auth/change-password/"

	maxErrorBody = 1 << 20
)

var _ refresh.Refresher = (*Client)(nil)

// LoginResponse is the body returned by the login endpoint. User and Tenant are kept
// verbatim; Tenant is null for users without a tenant.
type LoginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
	Tenant  json.RawMessage `json:"tenant"`
}

// Credentials converts the response into session credentials.
func (r LoginResponse) Credentials() sessions.Credentials {
	return sessions.Credentials{
		AccessToken:  r.Access,
		RefreshToken: r.Refresh,
		User:         r.User,
		Tenant:       r.Tenant,
	}
}

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	TenantSchema string `json:"tenant_schema,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type changePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// Client calls the REST API. publicURL and tenantURL are API roots such as
// "http://localhost:8000/api" (see origin.Policy.BackendURL).
type Client struct {
	publicURL  string
	tenantURL  string
	httpClient *http.Client
	store      sessions.Store
}

// New creates a client. A nil httpClient gets a plain client with a 30 second timeout.
func New(publicURL, tenantURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		publicURL:  strings.TrimRight(publicURL, "/"),
		tenantURL:  strings.TrimRight(tenantURL, "/"),
		httpClient: httpClient,
	}
}

// WithStore returns a copy of the client that saves rotated tokens into store.
func (c *Client) WithStore(store sessions.Store) *Client {
	cp := *c
	cp.store = store
	return &cp
}

// Login authenticates against the public API. tenantSchema is optional.
func (c *Client) Login(ctx context.Context, email, password, tenantSchema string) (*LoginResponse, error) {
	var resp LoginResponse
	body := loginRequest{Email: email, Password: password, TenantSchema: tenantSchema}
	if err := c.doRequest(ctx, http.MethodPost, c.publicURL+LoginPath, body, &resp); err != nil {
		return nil, fmt.Errorf("[apiclient Login] %w", err)
	}
	if resp.Access == "" || len(resp.User) == 0 {
		return nil, fmt.Errorf("[apiclient Login] response is missing access token or user: %w", errors.ErrUpstream)
	}
	return &resp, nil
}

// Refresh exchanges a refresh token. The returned token's RefreshToken is empty when
// the backend did not rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	var pair tokenPair
	if err := c.doRequest(ctx, http.MethodPost, c.publicURL+RefreshPath, refreshRequest{Refresh: refreshToken}, &pair); err != nil {
		return nil, fmt.Errorf("[apiclient Refresh] %w", err)
	}
	return &oauth2.Token{AccessToken: pair.Access, RefreshToken: pair.Refresh, TokenType: "Bearer"}, nil
}

// Logout tells the backend the session is over. The refresh token is sent when known
// so the backend can revoke it.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	var body any
	if refreshToken != "" {
		body = refreshRequest{Refresh: refreshToken}
	}
	if err := c.doRequest(ctx, http.MethodPost, c.tenantURL+LogoutPath, body, nil); err != nil {
		return fmt.Errorf("[apiclient Logout] %w", err)
	}
	return nil
}

// Me returns the current user record as sent by the backend.
func (c *Client) Me(ctx context.Context) (json.RawMessage, error) {
	var user json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, c.tenantURL+MePath, nil, &user); err != nil {
		return nil, fmt.Errorf("[apiclient Me] %w", err)
	}
	return user, nil
}

// ChangePassword changes the current user's password. When the backend answers with a
// new token pair and the client has a store, the pair replaces the stored tokens.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	var pair tokenPair
	body := changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword, NewPasswordConfirm: confirm}
	if err := c.doRequest(ctx, http.MethodPost, c.tenantURL+ChangePasswordPath, body, &pair); err != nil {
		return fmt.Errorf("[apiclient ChangePassword] %w", err)
	}
	if pair.Access == "" || pair.Refresh == "" || c.store == nil {
		return nil
	}

	creds, err := c.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("[apiclient ChangePassword] read session: %w", err)
	}
	if creds == nil {
		return nil
	}
	creds.AccessToken = pair.Access
	creds.RefreshToken = pair.Refresh
	if err := c.store.Write(ctx, *creds); err != nil {
		return fmt.Errorf("[apiclient ChangePassword] write session: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, url string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return upstreamError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func upstreamError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &errors.UpstreamError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", err)}
	}
	var apiErr struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &apiErr) == nil {
		if apiErr.Detail != "" {
			return &errors.UpstreamError{StatusCode: resp.StatusCode, Message: apiErr.Detail}
		}
		if apiErr.Error != "" {
			return &errors.UpstreamError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
	}
	return &errors.UpstreamError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
