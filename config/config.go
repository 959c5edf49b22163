// Package config loads the command line configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/eval"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/internal/compress"
)

type Config struct {
	DB       string         `yaml:"db"`
	Table    string         `yaml:"table"`
	Metric   MetricConfig   `yaml:"metric"`
	Tau      float64        `yaml:"tau"`
	Slack    float64        `yaml:"slack"`
	Eval     EvalConfig     `yaml:"eval"`
	Query    QueryConfig    `yaml:"query"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Log      LogConfig      `yaml:"log"`
}

type MetricConfig struct {
	Kind       distance.Kind        `yaml:"kind"`
	Components []distance.Component `yaml:"components"`
}

type EvalConfig struct {
	Trials      int   `yaml:"trials"`
	Parallelism int   `yaml:"parallelism"`
	Seed        int64 `yaml:"seed"`
	IncludeSelf bool  `yaml:"include_self"`
}

type QueryConfig struct {
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// SnapshotConfig selects where built trees are stored. Kind is local, minio
// or s3.
type SnapshotConfig struct {
	Kind        string `yaml:"kind"`
	Path        string `yaml:"path"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Endpoint    string `yaml:"endpoint"`
	Region      string `yaml:"region"`
	Secure      bool   `yaml:"secure"`
	Compression string `yaml:"compression"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DB:     "features.db",
		Table:  feature.DefaultTable,
		Metric: MetricConfig{Kind: distance.KindIntersection, Components: distance.DefaultComponents()},
		Tau:    eval.DefaultRadius,
		Slack:  vptree.DefaultSlack,
		Eval:   EvalConfig{Trials: 5},
		Snapshot: SnapshotConfig{
			Kind:        "local",
			Path:        "snapshots",
			Compression: compress.ZSTD.String(),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvironment()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvironment() {
	if v := os.Getenv("VPTREE_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("VPTREE_TAU"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tau = f
		}
	}
	if v := os.Getenv("VPTREE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("VPTREE_SNAPSHOT_KIND"); v != "" {
		c.Snapshot.Kind = v
	}
	if v := os.Getenv("VPTREE_SNAPSHOT_BUCKET"); v != "" {
		c.Snapshot.Bucket = v
	}
	if v := os.Getenv("VPTREE_SNAPSHOT_ENDPOINT"); v != "" {
		c.Snapshot.Endpoint = v
	}
}

// Validate checks the radius, metric, snapshot and evaluation settings.
func (c *Config) Validate() error {
	if err := index.ValidateRadius(c.Tau); err != nil {
		return fmt.Errorf("config: tau: %w", err)
	}
	if c.Slack < 0 {
		return fmt.Errorf("config: slack %v: %w", c.Slack, feature.ErrInvalidInput)
	}
	if _, err := c.DistanceMetric(); err != nil {
		return err
	}
	if c.Eval.Trials < 0 {
		return fmt.Errorf("config: eval trials %d: %w", c.Eval.Trials, feature.ErrInvalidInput)
	}
	if _, err := compress.Parse(c.Snapshot.Compression); err != nil {
		return fmt.Errorf("config: snapshot: %w", err)
	}
	switch c.Snapshot.Kind {
	case "", "local":
	case "minio", "s3":
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("config: snapshot %s requires a bucket: %w", c.Snapshot.Kind, feature.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("config: snapshot kind %q: %w", c.Snapshot.Kind, feature.ErrInvalidInput)
	}
	return nil
}

// DistanceMetric resolves the configured dissimilarity function.
func (c *Config) DistanceMetric() (distance.Metric, error) {
	m, err := distance.Resolve(c.Metric.Kind, c.Metric.Components...)
	if err != nil {
		return nil, fmt.Errorf("config: metric: %w", err)
	}
	return m, nil
}

// EvalSettings converts the evaluation section.
func (c *Config) EvalSettings() eval.Config {
	cfg := eval.DefaultConfig()
	cfg.Tau = c.Tau
	cfg.Slack = c.Slack
	if c.Eval.Trials > 0 {
		cfg.Trials = c.Eval.Trials
	}
	if c.Eval.Parallelism > 0 {
		cfg.Parallelism = c.Eval.Parallelism
	}
	cfg.Seed = c.Eval.Seed
	cfg.IncludeSelf = c.Eval.IncludeSelf
	return cfg
}

// Compression returns the snapshot payload compression.
func (c *Config) Compression() compress.Type {
	t, _ := compress.Parse(c.Snapshot.Compression)
	return t
}
