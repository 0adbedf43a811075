package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jrsteele09/go-tenant-gateway/token/jwt"
	"github.com/jrsteele09/go-tenant-gateway/transfer"
	"github.com/spf13/cobra"
)

type tokenSummary struct {
	Value     string     `json:"value" yaml:"value"`
	Subject   string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	TokenType string     `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired   bool       `json:"expired" yaml:"expired"`
}

type decodedHandoff struct {
	Destination  string          `json:"destination" yaml:"destination"`
	AccessToken  tokenSummary    `json:"access_token" yaml:"access_token"`
	RefreshToken tokenSummary    `json:"refresh_token" yaml:"refresh_token"`
	User         json.RawMessage `json:"user" yaml:"-"`
	Tenant       json.RawMessage `json:"tenant" yaml:"-"`
	UserJSON     string          `json:"-" yaml:"user"`
	TenantJSON   string          `json:"-" yaml:"tenant"`
}

func newDecodeCmd(format func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <callback-url>",
		Short: "Decode a handoff callback URL",
		Long: `Decode the credential handoff carried by an auth-callback URL.

Tokens are never printed. Their claims are shown when they are JWTs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid callback URL: %w", err)
			}
			payload, err := transfer.Decode(u.Query())
			if err != nil {
				return err
			}

			result := decodedHandoff{
				Destination:  payload.DestinationPath,
				AccessToken:  summarise(payload.AccessToken),
				RefreshToken: summarise(payload.RefreshToken),
				User:         payload.User,
				Tenant:       payload.Tenant,
				UserJSON:     string(payload.User),
				TenantJSON:   string(payload.Tenant),
			}
			rows := []table.Row{
				{"Destination", result.Destination},
				{"Access token", describe(result.AccessToken)},
				{"Refresh token", describe(result.RefreshToken)},
				{"User", result.UserJSON},
				{"Tenant", result.TenantJSON},
			}
			return render(cmd.OutOrStdout(), format(), result, table.Row{"Field", "Value"}, rows)
		},
	}
}

func summarise(token string) tokenSummary {
	summary := tokenSummary{Value: redact(token)}
	claims, err := jwt.Introspect(token)
	if err != nil {
		return summary
	}
	summary.Subject = claims.Sub
	summary.TokenType = claims.TokenType
	summary.ExpiresAt = claims.Exp
	summary.Expired = claims.Expired()
	return summary
}

func describe(t tokenSummary) string {
	if t.ExpiresAt == nil {
		return t.Value
	}
	state := "valid"
	if t.Expired {
		state = "expired"
	}
	return fmt.Sprintf("%s, %s until %s", t.Value, state, t.ExpiresAt.UTC().Format(time.RFC3339))
}
