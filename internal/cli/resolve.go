package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jrsteele09/go-tenant-gateway/tenants"
	"github.com/spf13/cobra"
)

type resolution struct {
	Host       string `json:"host" yaml:"host"`
	TenantSlug string `json:"tenant_slug" yaml:"tenant_slug"`
	BaseDomain string `json:"base_domain" yaml:"base_domain"`
	Nested     bool   `json:"nested,omitempty" yaml:"nested,omitempty"`
}

func newResolveCmd(format func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <host>...",
		Short: "Resolve hostnames into tenant slug and base domain",
		Example: `  gatewayctl resolve hopital_central.localhost:3000
  gatewayctl resolve -o json tenant-a.example.com example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]resolution, 0, len(args))
			rows := make([]table.Row, 0, len(args))
			for _, host := range args {
				r := tenants.Resolve(host)
				results = append(results, resolution{Host: host, TenantSlug: r.TenantSlug, BaseDomain: r.BaseDomain, Nested: r.Nested})

				slug := r.TenantSlug
				if slug == "" {
					slug = "-"
				}
				nested := ""
				if r.Nested {
					nested = "yes"
				}
				rows = append(rows, table.Row{host, slug, r.BaseDomain, nested})
			}
			return render(cmd.OutOrStdout(), format(), results, table.Row{"Host", "Tenant", "Base domain", "Nested"}, rows)
		},
	}
}
