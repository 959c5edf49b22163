package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/viant/sqlite-vptree/feature"
)

func newGroupsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "groups <name> <clusters.json>",
		Short: `Store a ground-truth grouping ({"clusters": {...}}) under a name`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			g, err := feature.DecodeGroupingJSON(f)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			items, err := store.Items(ctx)
			if err != nil {
				return err
			}
			if err := g.Validate(feature.IDs(items)); err != nil {
				return err
			}
			if err := store.PutGrouping(ctx, args[0], g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored grouping %s with %d clusters\n", args[0], len(g))
			return nil
		},
	}
}
