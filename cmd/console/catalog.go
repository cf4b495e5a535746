package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/streamconsole/internal/catalog"
)

func newCatalogCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the entity catalog",
	}
	kinds := &cobra.Command{
		Use:   "kinds",
		Short: "List entity kinds and their variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			cat := e.deps.Catalog
			for _, kind := range cat.Kinds() {
				line := kind
				if disc := cat.Discriminator(kind); disc != "" {
					line += fmt.Sprintf(" (%s: %s)", disc, strings.Join(cat.Tags(kind), ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema catalog overlays must satisfy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := catalog.Schema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.AddCommand(kinds, schema)
	return cmd
}
