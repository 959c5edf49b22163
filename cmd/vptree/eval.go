package main

import (
	"github.com/spf13/cobra"

	"github.com/viant/sqlite-vptree/eval"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		grouping    string
		trials      int
		seed        int64
		tau         float64
		includeSelf bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Compare tree and exhaustive search over every stored item",
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

			cfg := a.cfg.EvalSettings()
			cfg.Logger = a.logger
			flags := cmd.Flags()
			if flags.Changed("trials") {
				cfg.Trials = trials
			}
			if flags.Changed("seed") {
				cfg.Seed = seed
			}
			if flags.Changed("tau") {
				cfg.Tau = tau
			}
			if flags.Changed("include-self") {
				cfg.IncludeSelf = includeSelf
			}
			report, err := eval.Run(ctx, items, g, a.metric, cfg)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVarP(&grouping, "grouping", "g", "", "ground-truth grouping name")
	cmd.Flags().IntVar(&trials, "trials", 0, "number of tree rebuilds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed of the first trial")
	cmd.Flags().Float64Var(&tau, "tau", 0, "search radius")
	cmd.Flags().BoolVar(&includeSelf, "include-self", false, "count the query item as relevant and retrieved")
	_ = cmd.MarkFlagRequired("grouping")
	return cmd
}
