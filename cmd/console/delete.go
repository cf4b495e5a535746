package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/streamconsole/internal/console"
	"github.com/matthewbaird/streamconsole/internal/prompt"
)

func newDeleteCmd(g *globals) *cobra.Command {
	var (
		yes     bool
		filters map[string]string
	)
	cmd := &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete a record after confirmation",
		Long: "Delete a record after confirmation. Delete parameters the kind requires " +
			"are taken from --filter values, then from the record itself when it is on the first page.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[1])
			}
			e, err := g.load()
			if err != nil {
				return err
			}
			opts := append(e.opts,
				console.WithFilters(toAny(filters)),
				console.WithConfirmer(prompt.NewTerminalConfirmer(prompt.WithAssumeYes(yes))),
			)
			p, err := console.NewPage(args[0], e.deps, opts...)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := p.Mount(ctx); err != nil {
				return err
			}
			ok, err := p.Delete(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %d\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().StringToStringVar(&filters, "filter", nil, "filter as key=value, repeatable")
	return cmd
}
