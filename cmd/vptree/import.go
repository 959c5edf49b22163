package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
)

// featureRecord is one JSONL line: {"id": "...", "vector": [...]}.
type featureRecord struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
}

func newImportCmd(a *app) *cobra.Command {
	var batchSize int
	var normalizedTol float64
	cmd := &cobra.Command{
		Use:   "import <features.jsonl>",
		Short: "Import feature vectors from a JSON lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			items, err := readFeatures(f)
			if err != nil {
				return err
			}
			if _, err := index.ValidateItems(items, a.metric); err != nil {
				return err
			}
			if hist, ok := a.metric.(*distance.Intersection); ok && normalizedTol > 0 {
				for _, item := range items {
					if err := distance.CheckNormalized(hist, item.Vector, normalizedTol); err != nil {
						return fmt.Errorf("item %q: %w", item.ID, err)
					}
				}
			}
			ctx := cmd.Context()
			db, store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			for start := 0; start < len(items); start += batchSize {
				end := min(start+batchSize, len(items))
				if err := store.PutItems(ctx, items[start:end]); err != nil {
					return err
				}
			}
			a.logger.InfoContext(ctx, "import complete", "items", len(items), "db", a.cfg.DB)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d items\n", len(items))
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch", 500, "items per transaction")
	cmd.Flags().Float64Var(&normalizedTol, "check-normalized", 1e-3, "reject histograms whose components do not sum to 1 within this tolerance (0 disables)")
	return cmd
}

func readFeatures(r io.Reader) ([]feature.Item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var items []feature.Item
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec featureRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, feature.Item{ID: rec.ID, Vector: rec.Vector})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
