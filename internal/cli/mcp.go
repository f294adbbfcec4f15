package cli

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/petasbytes/shop-agent/internal/mcpserver"
)

func newMCPCommand(o *globalOptions) *cobra.Command {
	var customer string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the shop tools to MCP clients over stdio",
		Long: heredoc.Doc(`
			Serve the shop tools over the Model Context Protocol on stdin and
			stdout. Logs go to stderr. All calls share one cart, owned by
			--customer.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := openShop(cmd.Context(), o.cfg, true)
			if err != nil {
				return err
			}
			defer deps.Close()
			reg, err := deps.registry()
			if err != nil {
				return err
			}
			s := mcpserver.New(reg, mcpserver.Options{CustomerID: customer})
			return mcpserver.ServeStdio(cmd.Context(), s, o.streams.In, o.streams.Out)
		},
	}
	cmd.Flags().StringVar(&customer, "customer", mcpserver.DefaultCustomer, "Customer ID that owns the cart.")
	return cmd
}
