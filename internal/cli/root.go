// Package cli provides the operator command line of the tenant gateway.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const applicationName = "gatewayctl"

// NewRootCmd builds the command tree. Every command writes to cmd.OutOrStdout so the
// tree can be executed against a buffer.
func NewRootCmd(version string) *cobra.Command {
	var outputFormat string

	rootCmd := &cobra.Command{
		Use:   applicationName,
		Short: "Tenant gateway operator tools",
		Long: `gatewayctl inspects the tenant routing of the gateway.

It resolves hostnames into tenants, builds tenant and backend URLs the way the
gateway does, and decodes handoff callback URLs without printing their tokens.`,
		Version:       version,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format (table, json, yaml)")

	format := func() string { return outputFormat }
	rootCmd.AddCommand(
		newResolveCmd(format),
		newTenantURLCmd(format),
		newDecodeCmd(format),
		newVersionCmd(version),
	)
	return rootCmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", applicationName, version)
		},
	}
}
