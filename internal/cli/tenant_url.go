package cli

import (
	"net/url"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jrsteele09/go-tenant-gateway/auth"
	"github.com/jrsteele09/go-tenant-gateway/internal/config"
	"github.com/jrsteele09/go-tenant-gateway/origin"
	"github.com/spf13/cobra"
)

type tenantURLs struct {
	Tenant      string `json:"tenant" yaml:"tenant"`
	URL         string `json:"url" yaml:"url"`
	PublicAPI   string `json:"public_api" yaml:"public_api"`
	TenantAPI   string `json:"tenant_api" yaml:"tenant_api"`
	SignInURL   string `json:"sign_in_url" yaml:"sign_in_url"`
	Development bool   `json:"development" yaml:"development"`
}

func newTenantURLCmd(format func() string) *cobra.Command {
	var (
		scheme string
		host   string
		dev    bool
	)

	cmd := &cobra.Command{
		Use:   "tenant-url <slug> [path]",
		Short: "Build the URLs of a tenant origin",
		Long: `Build the frontend URL of a tenant and the backend API roots it talks to.

The current host decides the base domain; development ports are used when the
gateway runs with ENV=DEV, when --dev is set, or when the host is under localhost.`,
		Example: `  gatewayctl tenant-url hopital_central /dashboard
  gatewayctl tenant-url clinique-nord --host example.com --scheme https`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			policy := origin.NewPolicy(cfg)
			policy.Development = policy.Development || dev

			path := auth.DashboardPath
			if len(args) > 1 {
				path = args[1]
			}

			u, err := policy.BuildTenantURL(scheme, host, args[0], path, nil)
			if err != nil {
				return err
			}
			parsed, err := url.Parse(u)
			if err != nil {
				return err
			}

			result := tenantURLs{
				Tenant:      args[0],
				URL:         u,
				PublicAPI:   policy.BackendURL(scheme, host, true),
				TenantAPI:   policy.BackendURL(scheme, parsed.Host, false),
				SignInURL:   policy.BuildPublicURL(scheme, host, auth.SignInPath, nil),
				Development: policy.IsDevelopment(host),
			}
			rows := []table.Row{
				{"Tenant URL", result.URL},
				{"Tenant API", result.TenantAPI},
				{"Public API", result.PublicAPI},
				{"Sign-in", result.SignInURL},
			}
			return render(cmd.OutOrStdout(), format(), result, table.Row{"", args[0]}, rows)
		},
	}

	cmd.Flags().StringVar(&scheme, "scheme", "http", "scheme of the current origin")
	cmd.Flags().StringVar(&host, "host", "localhost:3000", "host of the current origin")
	cmd.Flags().BoolVar(&dev, "dev", false, "force development ports")
	return cmd
}
