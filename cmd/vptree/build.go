package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/snapshot"
	"github.com/viant/sqlite-vptree/vptab"
)

type buildOutput struct {
	Snapshot string       `json:"snapshot,omitempty"`
	Size     int          `json:"size,omitempty"`
	Stats    vptree.Stats `json:"stats"`
	Elapsed  string       `json:"elapsed"`
	SQLite   int          `json:"sqliteItems,omitempty"`
}

func newBuildCmd(a *app) *cobra.Command {
	var name string
	var seed int64
	var persist bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a tree over the stored features and save a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			items, store, closeDB, err := a.loadItems(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			started := time.Now()
			tree := vptree.New(a.metric, a.treeOptions(seed)...)
			if err := tree.Build(items); err != nil {
				return err
			}
			out := buildOutput{Stats: tree.Stats(), Elapsed: time.Since(started).String()}

			if name == "" {
				name = a.cfg.Table + ".vpt"
			}
			snapshots, err := a.snapshotStore(ctx)
			if err != nil {
				return err
			}
			size, err := snapshot.Save(ctx, snapshots, name, tree)
			a.logger.LogSnapshot(ctx, "save", name, size, err)
			if err != nil {
				return err
			}
			out.Snapshot, out.Size = name, size

			if persist {
				n, err := vptab.ReindexLogged(ctx, a.logger, store.DB(), a.cfg.Table, a.metric, a.treeOptions(seed)...)
				if err != nil {
					return err
				}
				out.SQLite = n
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default <table>.vpt)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "pivot selection seed (0 for time based)")
	cmd.Flags().BoolVar(&persist, "sqlite", false, "also persist the tree in vptree_storage for the virtual table")
	return cmd
}
