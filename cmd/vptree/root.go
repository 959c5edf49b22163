package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/viant/sqlite-vptree/config"
	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/engine"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/logging"
	"github.com/viant/sqlite-vptree/snapshot"
	"github.com/viant/sqlite-vptree/snapshot/minio"
	"github.com/viant/sqlite-vptree/snapshot/s3"
)

// app carries the state shared by subcommands once the root command has
// loaded configuration.
type app struct {
	configPath string
	dbPath     string

	cfg    *config.Config
	logger *logging.Logger
	metric distance.Metric
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "vptree",
		Short: "Similarity search over histogram features with vantage-point trees",
		Long: `vptree keeps histogram feature vectors in SQLite and answers
"everything within distance tau" queries with a vantage-point tree.

Examples:
  vptree import features.jsonl
  vptree groups kmeans clusters/kmeans.json
  vptree build --name features.vpt
  vptree search --id images/segmented/p01.png --grouping kmeans
  vptree eval --grouping kmeans --trials 5
  vptree sweep --grouping kmeans --from 0 --to 1 --step 0.01`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")

	root.AddCommand(
		newImportCmd(a),
		newGroupsCmd(a),
		newBuildCmd(a),
		newSearchCmd(a),
		newEvalCmd(a),
		newSweepCmd(a),
	)
	return root
}

func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DB = a.dbPath
	}
	logger, err := logging.New(stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	metric, err := cfg.DistanceMetric()
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.metric = cfg, logger.WithMetric(metric.Name()), metric
	return nil
}

func (a *app) openStore(ctx context.Context) (*sql.DB, *feature.SQLiteStore, error) {
	db, err := engine.OpenContext(ctx, a.cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	store, err := feature.NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

func (a *app) loadItems(ctx context.Context) ([]feature.Item, *feature.SQLiteStore, func(), error) {
	db, store, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := store.Items(ctx)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return items, store, func() { db.Close() }, nil
}

func (a *app) treeOptions(seed int64) []vptree.Option {
	opts := []vptree.Option{
		vptree.WithSlack(a.cfg.Slack),
		vptree.WithCompression(a.cfg.Compression()),
		vptree.WithLogger(a.logger),
	}
	if seed != 0 {
		opts = append(opts, vptree.WithSeed(seed))
	}
	return opts
}

func (a *app) snapshotStore(ctx context.Context) (snapshot.Store, error) {
	sc := a.cfg.Snapshot
	switch sc.Kind {
	case "minio":
		store, err := minio.Dial(sc.Endpoint, os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), sc.Secure, sc.Bucket, sc.Prefix)
		if err != nil {
			return nil, err
		}
		return store, store.EnsureBucket(ctx)
	case "s3":
		return s3.NewFromEnv(ctx, sc.Region, sc.Endpoint, sc.Bucket, sc.Prefix)
	default:
		return snapshot.NewLocal(sc.Path), nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
