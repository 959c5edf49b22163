package distance

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/viterin/vek/vek32"

	"github.com/viant/sqlite-vptree/feature"
)

// weightTolerance bounds |Σ weights − 1|.
const weightTolerance = 1e-6

// Component describes one normalized sub-histogram of a feature vector.
type Component struct {
	Name   string  `yaml:"name" json:"name"`
	Bins   int     `yaml:"bins" json:"bins"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// DefaultComponents returns the colour/texture layout: an 8x8x8 colour
// histogram weighted 0.2 followed by a 26-bin uniform LBP texture histogram
// weighted 0.8.
func DefaultComponents() []Component {
	return []Component{
		{Name: "color", Bins: 8 * 8 * 8, Weight: 0.2},
		{Name: "texture", Bins: 26, Weight: 0.8},
	}
}

// Intersection is the weighted histogram-intersection distance:
//
//	overlap(a, b)  = Σ_k w_k · Σ_i min(a_k[i], b_k[i])
//	distance(a, b) = clamp(1 − overlap(a, b), 0, 1)
//
// where a_k is the k-th component of the concatenated vector. When every
// component sums to 1, each component term equals one minus half the L1
// distance, so the result is a weighted sum of metrics.
type Intersection struct {
	components []Component
	offsets    []int
	dim        int
	name       string
	scratch    sync.Pool
}

// NewIntersection builds the metric for the given layout. Weights must be
// non-negative and sum to 1; every component needs at least one bin.
func NewIntersection(components ...Component) (*Intersection, error) {
	if len(components) == 0 {
		components = DefaultComponents()
	}
	m := &Intersection{
		components: append([]Component(nil), components...),
		offsets:    make([]int, len(components)),
	}
	var sum float64
	maxBins := 0
	parts := make([]string, len(components))
	for i, c := range components {
		if c.Bins <= 0 {
			return nil, fmt.Errorf("distance: component %q has %d bins: %w", c.Name, c.Bins, feature.ErrInvalidInput)
		}
		if c.Weight < 0 || math.IsNaN(c.Weight) {
			return nil, fmt.Errorf("distance: component %q has weight %v: %w", c.Name, c.Weight, feature.ErrInvalidInput)
		}
		m.offsets[i] = m.dim
		m.dim += c.Bins
		sum += c.Weight
		if c.Bins > maxBins {
			maxBins = c.Bins
		}
		parts[i] = c.Name + ":" + strconv.Itoa(c.Bins) + ":" + strconv.FormatFloat(c.Weight, 'g', -1, 64)
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("distance: weights sum to %v, want 1: %w", sum, feature.ErrInvalidInput)
	}
	m.name = string(KindIntersection) + "(" + strings.Join(parts, ",") + ")"
	m.scratch.New = func() any {
		buf := make([]float32, maxBins)
		return &buf
	}
	return m, nil
}

// Name returns a descriptor including the layout and weights.
func (m *Intersection) Name() string { return m.name }

// Dim returns the total number of bins.
func (m *Intersection) Dim() int { return m.dim }

// Components returns a copy of the layout.
func (m *Intersection) Components() []Component {
	return append([]Component(nil), m.components...)
}

// Distance computes the clamped weighted-intersection distance. a and b must
// both have Dim() elements.
func (m *Intersection) Distance(a, b []float32) float64 {
	buf := m.scratch.Get().(*[]float32)
	var overlap float64
	for k, c := range m.components {
		lo, hi := m.offsets[k], m.offsets[k]+c.Bins
		mins := vek32.Minimum_Into((*buf)[:c.Bins], a[lo:hi], b[lo:hi])
		overlap += c.Weight * float64(vek32.Sum(mins))
	}
	m.scratch.Put(buf)
	return clamp01(1 - overlap)
}

// CheckNormalized reports the first component of v whose bins do not sum to
// 1 within tol, or contain a negative value.
func CheckNormalized(m *Intersection, v []float32, tol float64) error {
	if err := Validate(m, v); err != nil {
		return err
	}
	for k, c := range m.components {
		lo, hi := m.offsets[k], m.offsets[k]+c.Bins
		var sum float64
		for _, x := range v[lo:hi] {
			if x < 0 {
				return fmt.Errorf("distance: component %q has a negative bin: %w", c.Name, feature.ErrInvalidInput)
			}
			sum += float64(x)
		}
		if math.Abs(sum-1) > tol {
			return fmt.Errorf("distance: component %q sums to %v: %w", c.Name, sum, feature.ErrInvalidInput)
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
