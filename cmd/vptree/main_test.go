package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-vptree/eval"
	"github.com/viant/sqlite-vptree/query"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vptree.yaml")
	cfg := `
metric:
  kind: euclidean
  components:
    - {name: xy, bins: 2, weight: 1}
tau: 0.5
snapshot:
  kind: local
  path: ` + filepath.Join(dir, "snapshots") + `
  compression: lz4
log:
  level: error
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	features := strings.Join([]string{
		`{"id": "a1", "vector": [0, 0]}`,
		`{"id": "a2", "vector": [0.1, 0]}`,
		``,
		`{"id": "b1", "vector": [5, 5]}`,
		`{"id": "b2", "vector": [5.1, 5]}`,
	}, "\n")
	featuresPath := filepath.Join(dir, "features.jsonl")
	require.NoError(t, os.WriteFile(featuresPath, []byte(features), 0o644))
	clustersPath := filepath.Join(dir, "kmeans.json")
	require.NoError(t, os.WriteFile(clustersPath, []byte(`{"clusters": {"a": ["a1", "a2"], "b": ["b1", "b2"]}}`), 0o644))

	common := []string{"--config", cfgPath, "--db", filepath.Join(dir, "features.db")}
	with := func(args ...string) []string { return append(append([]string{}, args...), common...) }

	out, err := run(t, with("import", featuresPath)...)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 4 items")

	out, err = run(t, with("groups", "kmeans", clustersPath)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 clusters")

	out, err = run(t, with("build", "--seed", "3")...)
	require.NoError(t, err)
	var built buildOutput
	require.NoError(t, json.Unmarshal([]byte(out), &built))
	assert.Equal(t, "features.vpt", built.Snapshot)
	assert.Equal(t, 4, built.Stats.Nodes)
	_, err = os.Stat(filepath.Join(dir, "snapshots", "features.vpt"))
	require.NoError(t, err)

	out, err = run(t, with("search", "--id", "a1", "--grouping", "kmeans", "--method", "exhaustive")...)
	require.NoError(t, err)
	var resp query.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a1", resp.Results[0].ID)
	assert.Equal(t, "a2", resp.Results[1].ID)
	assert.Equal(t, 1.0, resp.Precision)
	assert.Equal(t, 1.0, resp.Recall)
	assert.Equal(t, 4, resp.Comparisons)

	out, err = run(t, with("search", "--vector", "5,5", "--tau", "0")...)
	require.NoError(t, err)
	resp = query.Response{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "b1", resp.Results[0].ID)

	out, err = run(t, with("eval", "--grouping", "kmeans", "--trials", "2", "--seed", "1")...)
	require.NoError(t, err)
	var report eval.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Trials, 2)
	assert.InDelta(t, 1.0, report.Tree.F1, 1e-12)
	assert.InDelta(t, 4.0, report.Exhaustive.AvgComparisons, 1e-12)

	out, err = run(t, with("sweep", "--grouping", "kmeans", "--from", "0", "--to", "1", "--step", "0.25")...)
	require.NoError(t, err)
	var sweep eval.SweepReport
	require.NoError(t, json.Unmarshal([]byte(out), &sweep))
	assert.Len(t, sweep.Points, 4)
	assert.InDelta(t, 0.25, sweep.Best.Tau, 1e-12)
	assert.InDelta(t, 1.0, sweep.Best.F1, 1e-12)

	_, err = run(t, with("search", "--id", "a1", "--method", "kd_tree")...)
	require.Error(t, err)
	assert.True(t, query.IsClientError(err))

	_, err = run(t, with("eval", "--grouping", "dbscan")...)
	require.Error(t, err)
}

func TestReadFeatures(t *testing.T) {
	items, err := readFeatures(strings.NewReader("{\"id\":\"x\",\"vector\":[1,2]}\n"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []float32{1, 2}, items[0].Vector)

	_, err = readFeatures(strings.NewReader("{not json}\n"))
	assert.Error(t, err)
}
