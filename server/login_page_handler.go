package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-tenant-gateway/auth"
	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/tenants"
	"github.com/rs/zerolog/log"
)

// SignInPageData contains data for rendering the sign-in page
type SignInPageData struct {
	AppName    string
	TenantSlug string // empty on the public origin
	Action     string
	Error      string
	Email      string // Preserve email on error
}

// loginInput is the sign-in form, also accepted as JSON.
type loginInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	TenantSchema string `json:"tenant_schema"`
}

// SignInPageHandler displays the sign-in page (GET /authentication/sign-in)
func (s *Server) SignInPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := SignInPageData{
			AppName:    s.config.GetAppName(),
			TenantSlug: tenants.Resolve(r.Host).TenantSlug,
			Action:     RouteAuthLogin,
			Error:      r.URL.Query().Get("error"),
			Email:      r.URL.Query().Get("email"),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := s.signInTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render sign-in template")
			http.Error(w, "Failed to render sign-in page", http.StatusInternalServerError)
		}
	}
}

// LoginHandler processes the sign-in form (POST /auth/login). JSON callers get the
// navigation target in the body; browsers are redirected.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asJSON := wantsJSON(r)

		input, err := readLoginInput(w, r)
		if err != nil {
			if asJSON {
				writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid login body")
				return
			}
			redirectWithError(w, r, RouteSignIn, "Invalid form data", "")
			return
		}

		nav, err := s.auth.Login(r.Context(), auth.LoginRequest{
			Scheme:       getScheme(r),
			Host:         r.Host,
			Store:        s.session(w, r).store,
			Email:        input.Email,
			Password:     input.Password,
			TenantSchema: input.TenantSchema,
		})
		if err != nil {
			status, message := loginFailure(err)
			log.Info().Err(err).Str("host", r.Host).Int("status", status).Msg("login failed")
			if asJSON {
				writeJSONError(w, status, "login_failed", message)
				return
			}
			redirectWithError(w, r, RouteSignIn, message, input.Email)
			return
		}

		if asJSON {
			writeJSON(w, http.StatusOK, map[string]string{"redirect": nav.URL})
			return
		}
		navigate(w, r, nav)
	}
}

func readLoginInput(w http.ResponseWriter, r *http.Request) (loginInput, error) {
	var input loginInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeJSON) {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&input)
		return input, err
	}
	if err := r.ParseForm(); err != nil {
		return input, err
	}
	input.Email = r.PostFormValue("email")
	input.Password = r.PostFormValue("password")
	input.TenantSchema = r.PostFormValue("tenant_schema")
	return input, nil
}

// loginFailure maps a login error onto a status and a message safe to show.
func loginFailure(err error) (int, string) {
	var upstream *errors.UpstreamError
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		return http.StatusBadRequest, "Please enter a valid email and password"
	case errors.As(err, &upstream) && (upstream.StatusCode == http.StatusUnauthorized || upstream.StatusCode == http.StatusBadRequest):
		return upstream.StatusCode, "Invalid email or password"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "The service is unavailable, please try again"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The service is unavailable, please try again"
	default:
		return http.StatusBadGateway, "Sign-in failed, please try again"
	}
}
