package eval

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
	"github.com/viant/sqlite-vptree/index/bruteforce"
	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/logging"
)

// DefaultRadius is the radius that maximized average F1 on the reference
// clustering.
const DefaultRadius = 0.14

// Config controls an evaluation run.
type Config struct {
	Tau         float64 `yaml:"tau" json:"tau"`
	Trials      int     `yaml:"trials" json:"trials"`
	Parallelism int     `yaml:"parallelism" json:"parallelism"`
	// Seed of the first trial; trial i uses Seed+i. 0 picks a time-based seed.
	Seed int64 `yaml:"seed" json:"seed"`
	// IncludeSelf counts the query item as relevant and retrieved.
	IncludeSelf bool    `yaml:"include_self" json:"includeSelf"`
	Slack       float64 `yaml:"slack" json:"slack"`

	Logger *logging.Logger `yaml:"-" json:"-"`
}

// DefaultConfig returns five trials at DefaultRadius.
func DefaultConfig() Config {
	return Config{Tau: DefaultRadius, Slack: vptree.DefaultSlack, Trials: 5, Parallelism: runtime.GOMAXPROCS(0)}
}

func (c Config) validate() error {
	if err := index.ValidateRadius(c.Tau); err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	if c.Trials <= 0 {
		return fmt.Errorf("eval: trials %d: %w", c.Trials, feature.ErrInvalidInput)
	}
	return nil
}

// Summary aggregates one search method over all queries.
type Summary struct {
	AvgComparisons float64       `json:"avgComparisons"`
	StdComparisons float64       `json:"stdComparisons"`
	AvgTime        time.Duration `json:"avgTime"`
	Scores
}

// Trial summarizes one tree rebuild.
type Trial struct {
	Trial int          `json:"trial"`
	Seed  int64        `json:"seed"`
	Stats vptree.Stats `json:"stats"`
	Summary
}

// Report is the outcome of Run.
type Report struct {
	RunID      string  `json:"runId"`
	Tau        float64 `json:"tau"`
	Items      int     `json:"items"`
	Queries    int     `json:"queries"`
	Trials     []Trial `json:"trials"`
	Tree       Summary `json:"tree"`
	Exhaustive Summary `json:"exhaustive"`
	// ComparisonSpeedup and TimeSpeedup are exhaustive / tree ratios.
	ComparisonSpeedup float64 `json:"comparisonSpeedup"`
	TimeSpeedup       float64 `json:"timeSpeedup"`
}

// samples collects per-query measurements of one method.
type samples struct {
	comparisons []float64
	times       []float64
	precision   []float64
	recall      []float64
	f1          []float64
}

func newSamples(n int) *samples {
	return &samples{
		comparisons: make([]float64, 0, n),
		times:       make([]float64, 0, n),
	}
}

func (s *samples) add(rel *relevance, q uint32, result *index.Result, elapsed time.Duration) {
	s.comparisons = append(s.comparisons, float64(result.Comparisons))
	s.times = append(s.times, float64(elapsed))
	if !rel.clustered(q) {
		return
	}
	sc := rel.score(q, rel.bitmap(result.IDs()))
	s.precision = append(s.precision, sc.Precision)
	s.recall = append(s.recall, sc.Recall)
	s.f1 = append(s.f1, sc.F1)
}

func (s *samples) merge(o *samples) {
	s.comparisons = append(s.comparisons, o.comparisons...)
	s.times = append(s.times, o.times...)
	s.precision = append(s.precision, o.precision...)
	s.recall = append(s.recall, o.recall...)
	s.f1 = append(s.f1, o.f1...)
}

func (s *samples) summary() Summary {
	return Summary{
		AvgComparisons: mean(s.comparisons),
		StdComparisons: stdDev(s.comparisons),
		AvgTime:        time.Duration(mean(s.times)),
		Scores:         Scores{Precision: mean(s.precision), Recall: mean(s.recall), F1: mean(s.f1)},
	}
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

func stdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// Run evaluates the tree against exhaustive search over items. Scores are
// averaged over items that belong to a cluster of grouping; comparisons and
// time over every item.
func Run(ctx context.Context, items []feature.Item, grouping feature.Grouping, metric distance.Metric, cfg Config) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if _, err := index.ValidateItems(items, metric); err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	rel, err := newRelevance(feature.IDs(items), grouping, cfg.IncludeSelf)
	if err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	report := &Report{RunID: uuid.NewString(), Tau: cfg.Tau, Items: len(items), Queries: len(items)}
	logger := logging.OrNoop(cfg.Logger).WithRun(report.RunID).WithMetric(metric.Name())

	trials := make([]Trial, cfg.Trials)
	perTrial := make([]*samples, cfg.Trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < cfg.Trials; i++ {
		g.Go(func() error {
			seed := cfg.Seed + int64(i)
			tree := vptree.New(metric, vptree.WithSeed(seed), vptree.WithSlack(cfg.Slack))
			if err := tree.Build(items); err != nil {
				return err
			}
			s := newSamples(len(items))
			for q, item := range items {
				started := time.Now()
				result, err := tree.Range(gctx, item.Vector, cfg.Tau)
				elapsed := time.Since(started)
				if err != nil {
					return err
				}
				s.add(rel, uint32(q), result, elapsed)
			}
			perTrial[i] = s
			trials[i] = Trial{Trial: i + 1, Seed: seed, Stats: tree.Stats(), Summary: s.summary()}
			logger.LogTrial(gctx, i+1, trials[i].AvgComparisons, trials[i].AvgTime, trials[i].F1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	tree := newSamples(len(items) * cfg.Trials)
	for _, s := range perTrial {
		tree.merge(s)
	}

	brute := bruteforce.New(metric)
	if err := brute.Build(items); err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	exhaustive := newSamples(len(items))
	for q, item := range items {
		started := time.Now()
		result, err := brute.Range(ctx, item.Vector, cfg.Tau)
		elapsed := time.Since(started)
		if err != nil {
			return nil, fmt.Errorf("eval: %w", err)
		}
		exhaustive.add(rel, uint32(q), result, elapsed)
	}

	report.Trials = trials
	report.Tree = tree.summary()
	report.Exhaustive = exhaustive.summary()
	if report.Tree.AvgComparisons > 0 {
		report.ComparisonSpeedup = report.Exhaustive.AvgComparisons / report.Tree.AvgComparisons
	}
	if report.Tree.AvgTime > 0 {
		report.TimeSpeedup = float64(report.Exhaustive.AvgTime) / float64(report.Tree.AvgTime)
	}
	return report, nil
}
