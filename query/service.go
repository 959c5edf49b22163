// Package query answers similarity requests against an in-memory item set
// using either the vantage-point tree or an exhaustive scan, and scores the
// answer against a named ground-truth grouping.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
	"github.com/viant/sqlite-vptree/index/bruteforce"
	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/logging"
	"github.com/viant/sqlite-vptree/metrics"
)

const (
	MethodExhaustive = "exhaustive"
	MethodVPTree     = "vp_tree"
)

// DefaultRadius is the radius used when a request does not set one.
const DefaultRadius = 0.14

// Request selects a search method and a query. The query vector is Vector
// when set, otherwise the stored vector of QueryID. Grouping names the
// ground truth used to score the answer; scoring requires QueryID.
type Request struct {
	Method   string    `json:"method"`
	Vector   []float32 `json:"vector,omitempty"`
	QueryID  string    `json:"queryId,omitempty"`
	Grouping string    `json:"grouping,omitempty"`
	Tau      *float64  `json:"tau,omitempty"`
}

// Result is one retrieved item.
type Result struct {
	ID       string  `json:"id"`
	Cluster  string  `json:"cluster,omitempty"`
	Distance float64 `json:"distance"`
}

// Response lists results sorted by distance with retrieval scores.
type Response struct {
	Method      string   `json:"method"`
	Tau         float64  `json:"tau"`
	Results     []Result `json:"results"`
	Cluster     string   `json:"cluster,omitempty"`
	Precision   float64  `json:"precision"`
	Recall      float64  `json:"recall"`
	Comparisons int      `json:"comparisons"`
}

// Option configures a Service.
type Option func(*Service)

// WithRadius sets the default radius.
func WithRadius(tau float64) Option {
	return func(s *Service) { s.tau = tau }
}

// WithRateLimit throttles queries to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(s *Service) { s.limiter = rate.NewLimiter(r, burst) }
}

// WithMetrics records queries and builds on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTreeOptions passes options to the tree build.
func WithTreeOptions(opts ...vptree.Option) Option {
	return func(s *Service) { s.treeOpts = append(s.treeOpts, opts...) }
}

// Service holds the loaded items, both indexes and the known groupings.
type Service struct {
	tau      float64
	limiter  *rate.Limiter
	metrics  *metrics.Collector
	logger   *logging.Logger
	treeOpts []vptree.Option

	byID  map[string][]float32
	tree  *vptree.Tree
	brute *bruteforce.Index

	mu        sync.RWMutex
	groupings map[string]map[string]string // name -> id -> label
	sizes     map[string]map[string]int    // name -> label -> members
}

// NewService builds the tree and the exhaustive index over items.
func NewService(items []feature.Item, metric distance.Metric, opts ...Option) (*Service, error) {
	s := &Service{
		tau:       DefaultRadius,
		byID:      make(map[string][]float32, len(items)),
		groupings: map[string]map[string]string{},
		sizes:     map[string]map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := index.ValidateRadius(s.tau); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	s.logger = logging.OrNoop(s.logger).WithMetric(metric.Name())
	s.tree = vptree.New(metric, append([]vptree.Option{vptree.WithLogger(s.logger)}, s.treeOpts...)...)
	err := s.tree.Build(items)
	s.metrics.OnBuild(s.tree.Stats().Comparisons, err)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	s.brute = bruteforce.New(metric)
	if err := s.brute.Build(items); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	for _, item := range items {
		s.byID[item.ID] = item.Vector
	}
	return s, nil
}

// Len returns the number of loaded items.
func (s *Service) Len() int { return len(s.byID) }

// AddGrouping validates g against the loaded items and makes it available
// under name, replacing any grouping of the same name.
func (s *Service) AddGrouping(name string, g feature.Grouping) error {
	if name == "" {
		return fmt.Errorf("query: grouping name is required: %w", feature.ErrInvalidInput)
	}
	known := make([]string, 0, len(s.byID))
	for id := range s.byID {
		known = append(known, id)
	}
	if err := g.Validate(known); err != nil {
		return fmt.Errorf("query: grouping %q: %w", name, err)
	}
	sizes := make(map[string]int, len(g))
	for _, label := range g.Labels() {
		sizes[label] = len(g.Members(label))
	}
	s.mu.Lock()
	s.groupings[name] = g.Index()
	s.sizes[name] = sizes
	s.mu.Unlock()
	return nil
}

// Groupings returns the names of the available groupings.
func (s *Service) Groupings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.groupings))
	for name := range s.groupings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NormalizeMethod lowercases and trims a method selector and checks it.
func NormalizeMethod(method string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(method))
	switch m {
	case MethodExhaustive, MethodVPTree:
		return m, nil
	}
	return "", fmt.Errorf("query: method %q: %w", method, ErrInvalidMethod)
}

// Query runs req. Errors caused by the request are *ClientError.
func (s *Service) Query(ctx context.Context, req Request) (*Response, error) {
	method, err := NormalizeMethod(req.Method)
	if err != nil {
		return nil, clientError(err)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.metrics.OnThrottled()
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	tau := s.tau
	if req.Tau != nil {
		tau = *req.Tau
	}
	vector := req.Vector
	if len(vector) == 0 {
		if req.QueryID == "" {
			return nil, clientError(fmt.Errorf("query: vector or query id is required: %w", feature.ErrInvalidInput))
		}
		v, ok := s.byID[req.QueryID]
		if !ok {
			return nil, clientError(fmt.Errorf("query: %w", &feature.UnknownIdentifierError{ID: req.QueryID}))
		}
		vector = v
	}

	var labels map[string]string
	var sizes map[string]int
	if req.Grouping != "" {
		s.mu.RLock()
		labels, sizes = s.groupings[req.Grouping], s.sizes[req.Grouping]
		s.mu.RUnlock()
		if labels == nil {
			return nil, clientError(fmt.Errorf("query: grouping %q: %w", req.Grouping, feature.ErrUnknownIdentifier))
		}
		if req.QueryID == "" {
			return nil, clientError(fmt.Errorf("query: scoring against %q requires a query id: %w", req.Grouping, feature.ErrInvalidInput))
		}
		if _, ok := s.byID[req.QueryID]; !ok {
			return nil, clientError(fmt.Errorf("query: %w", &feature.UnknownIdentifierError{ID: req.QueryID}))
		}
	}

	started := time.Now()
	var result *index.Result
	switch method {
	case MethodVPTree:
		result, err = s.tree.Range(ctx, vector, tau)
	default:
		result, err = s.brute.Range(ctx, vector, tau)
	}
	elapsed := time.Since(started)
	if err != nil {
		s.metrics.OnQuery(method, elapsed, 0, err)
		s.logger.LogSearch(ctx, method, tau, 0, 0, err)
		if ctx.Err() == nil {
			err = clientError(err)
		}
		return nil, err
	}
	s.metrics.OnQuery(method, elapsed, result.Comparisons, nil)
	s.logger.LogSearch(ctx, method, tau, len(result.Matches), result.Comparisons, nil)

	result.SortByDistance()
	resp := &Response{
		Method:      method,
		Tau:         tau,
		Results:     make([]Result, len(result.Matches)),
		Comparisons: result.Comparisons,
	}
	for i, m := range result.Matches {
		resp.Results[i] = Result{ID: m.ID, Cluster: labels[m.ID], Distance: m.Distance}
	}
	if labels != nil {
		resp.Cluster = labels[req.QueryID]
		resp.Precision, resp.Recall = score(resp, sizes[resp.Cluster])
	}
	return resp, nil
}

// score counts results sharing the query's cluster. An unclustered query
// has no relevant items.
func score(resp *Response, relevant int) (precision, recall float64) {
	if resp.Cluster == "" {
		return 0, 0
	}
	hits := 0
	for _, r := range resp.Results {
		if r.Cluster == resp.Cluster {
			hits++
		}
	}
	if len(resp.Results) > 0 {
		precision = float64(hits) / float64(len(resp.Results))
	}
	if relevant > 0 {
		recall = float64(hits) / float64(relevant)
	}
	return precision, recall
}
