package distance

import (
	"fmt"
	"strconv"

	"github.com/viant/vec/search"

	"github.com/viant/sqlite-vptree/feature"
)

// Kind enumerates supported distance metrics.
type Kind string

const (
	KindIntersection Kind = "intersection"
	KindEuclidean    Kind = "euclidean"
	KindCosine       Kind = "cosine"
)

// Resolve constructs the metric for kind. Intersection uses components (the
// default layout when none are given); the reference metrics take their
// dimension from the summed component bins.
func Resolve(kind Kind, components ...Component) (Metric, error) {
	dim := 0
	for _, c := range components {
		dim += c.Bins
	}
	switch kind {
	case KindIntersection, "":
		return NewIntersection(components...)
	case KindEuclidean:
		return Euclidean{N: dim}, nil
	case KindCosine:
		return Cosine{N: dim}, nil
	default:
		return nil, fmt.Errorf("distance: unsupported metric %q: %w", kind, feature.ErrInvalidInput)
	}
}

// Euclidean is the L2 distance. It is a true metric and unbounded.
type Euclidean struct {
	// N is the required dimension, 0 for any.
	N int
}

func (e Euclidean) Name() string { return string(KindEuclidean) + "(" + strconv.Itoa(e.N) + ")" }

func (e Euclidean) Dim() int { return e.N }

func (e Euclidean) Distance(a, b []float32) float64 {
	return float64(search.Float32s(a).EuclideanDistance(b))
}

// Cosine is 1 − cosine similarity. It violates the triangle inequality, so a
// tree built over it may miss hits; use it with exhaustive search only.
type Cosine struct {
	N int
}

func (c Cosine) Name() string { return string(KindCosine) + "(" + strconv.Itoa(c.N) + ")" }

func (c Cosine) Dim() int { return c.N }

func (c Cosine) Distance(a, b []float32) float64 {
	va, vb := search.Float32s(a), search.Float32s(b)
	ma, mb := va.Magnitude(), vb.Magnitude()
	if ma == 0 || mb == 0 {
		return 1
	}
	return float64(va.CosineDistance(b))
}
