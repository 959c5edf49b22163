package main

import (
	"github.com/spf13/cobra"

	"github.com/viant/sqlite-vptree/eval"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		grouping       string
		from, to, step float64
		includeSelf    bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Score exhaustive retrieval over a range of radii",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			items, store, closeDB, err := a.loadItems(ctx)
			if err != nil {
				return err
			}
			defer closeDB()
			g, err := store.Grouping(ctx, grouping)
			if err != nil {
				return err
			}
			matrix, err := eval.DistanceMatrix(ctx, items, a.metric, a.cfg.Eval.Parallelism)
			if err != nil {
				return err
			}
			report, err := eval.Sweep(matrix, g, from, to, step, includeSelf)
			if err != nil {
				return err
			}
			a.logger.InfoContext(ctx, "sweep complete", "best_tau", report.Best.Tau, "best_f1", report.Best.F1)
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVarP(&grouping, "grouping", "g", "", "ground-truth grouping name")
	cmd.Flags().Float64Var(&from, "from", 0, "first radius")
	cmd.Flags().Float64Var(&to, "to", 1, "end of the radius range (exclusive)")
	cmd.Flags().Float64Var(&step, "step", 0.01, "radius increment")
	cmd.Flags().BoolVar(&includeSelf, "include-self", false, "count the query item as relevant and retrieved")
	_ = cmd.MarkFlagRequired("grouping")
	return cmd
}
