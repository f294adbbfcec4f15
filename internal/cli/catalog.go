package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/tools"
)

const maxColWidth = 60

func newCatalogCommand(o *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "catalog [keyword]",
		Short: "List or search the product catalog",
		Long: heredoc.Doc(`
			List the menu, or the products whose title contains keyword,
			the same way the show_menu and search_products tools see them.
		`),
		Example: heredoc.Doc(`
			shop-agent catalog
			shop-agent catalog 蛋餅 --limit 10
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return errors.New("--limit must be a positive integer")
			}
			deps, err := openShop(cmd.Context(), o.cfg, false)
			if err != nil {
				return err
			}
			defer deps.Close()

			var products []shop.Product
			if len(args) == 1 {
				products, err = deps.store.Search(cmd.Context(), args[0], limit)
			} else {
				products, err = deps.store.Menu(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(o.streams.Out, productTable(products))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", shop.DefaultLimit, "Maximum number of products to list.")
	return cmd
}

func productTable(products []shop.Product) *uitable.Table {
	t := uitable.New()
	t.MaxColWidth = maxColWidth
	t.AddRow("ID", "TITLE", "PRICE", "QTY", "AVAILABLE")
	for _, p := range products {
		t.AddRow(p.ID, p.Title, p.Price, p.Qty, yesNo(p.Available()))
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newToolsCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := tools.NewShopRegistry(nil, nil)
			if err != nil {
				return err
			}
			t := uitable.New()
			t.MaxColWidth = maxColWidth
			t.Wrap = true
			t.AddRow("NAME", "PARAMETERS", "DESCRIPTION")
			for _, d := range reg.Declarations() {
				t.AddRow(d.Name, parameterList(d.Parameters), d.Description)
			}
			fmt.Fprintln(o.streams.Out, t)
			return nil
		},
	}
}

// parameterList renders parameters as "name:type", with required ones
// marked by a trailing "*".
func parameterList(s tools.Schema) string {
	if len(s.Properties) == 0 {
		return "-"
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	parts := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		part := p.Name + ":" + p.Type
		if required[p.Name] {
			part += "*"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}
