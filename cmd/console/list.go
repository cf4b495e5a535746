package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/streamconsole/internal/console"
	"github.com/matthewbaird/streamconsole/internal/types"
)

func newListCmd(g *globals) *cobra.Command {
	var (
		page    int
		size    int
		filters map[string]string
		sortBy  string
		desc    bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List one page of records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			opts := append(e.opts, console.WithFilters(toAny(filters)))
			p, err := console.NewPage(args[0], e.deps, opts...)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := p.Mount(ctx); err != nil {
				return err
			}
			if sortBy != "" {
				order := types.SortAsc
				if desc {
					order = types.SortDesc
				}
				if err := p.Sort(ctx, &types.Sort{Field: sortBy, Order: order}); err != nil {
					return err
				}
			}
			if page > 1 || size > 0 {
				if size <= 0 {
					size = e.cfg.List.PageSize
				}
				if err := p.Paginate(ctx, page, size); err != nil {
					return err
				}
			}
			v := p.ListView()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			fmt.Fprintln(out, renderList(v))
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default list.page_size)")
	cmd.Flags().StringToStringVar(&filters, "filter", nil, "filter as key=value, repeatable")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort field")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the list as JSON")
	return cmd
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
