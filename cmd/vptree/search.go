package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/viant/sqlite-vptree/query"
	"github.com/viant/sqlite-vptree/vptab"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		id       string
		vector   string
		method   string
		grouping string
		tau      float64
		seed     int64
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Return every stored item within tau of a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			items, store, closeDB, err := a.loadItems(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			opts := []query.Option{
				query.WithRadius(a.cfg.Tau),
				query.WithLogger(a.logger),
				query.WithTreeOptions(a.treeOptions(seed)...),
			}
			if q := a.cfg.Query; q.RateLimit > 0 {
				opts = append(opts, query.WithRateLimit(rate.Limit(q.RateLimit), max(q.Burst, 1)))
			}
			svc, err := query.NewService(items, a.metric, opts...)
			if err != nil {
				return err
			}
			req := query.Request{Method: method, QueryID: id, Grouping: grouping}
			if cmd.Flags().Changed("tau") {
				req.Tau = &tau
			}
			if vector != "" {
				if req.Vector, err = vptab.DecodeQuery(vector); err != nil {
					return fmt.Errorf("--vector: %w", err)
				}
			}
			if grouping != "" {
				g, err := store.Grouping(ctx, grouping)
				if err != nil {
					return err
				}
				if err := svc.AddGrouping(grouping, g); err != nil {
					return err
				}
			}
			resp, err := svc.Query(ctx, req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "identifier of a stored item to query with")
	cmd.Flags().StringVar(&vector, "vector", "", "query vector as JSON, CSV or base64")
	cmd.Flags().StringVarP(&method, "method", "m", query.MethodVPTree, "exhaustive or vp_tree")
	cmd.Flags().StringVarP(&grouping, "grouping", "g", "", "grouping used to score the results")
	cmd.Flags().Float64Var(&tau, "tau", 0, "search radius (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "pivot selection seed (0 for time based)")
	return cmd
}
