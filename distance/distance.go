package distance

import (
	"fmt"

	"github.com/viant/sqlite-vptree/feature"
)

// Metric computes the dissimilarity between two feature vectors.
//
// Distance is the unchecked hot path: callers validate dimensions once (see
// Validate) and then call it freely. Implementations must be pure and
// symmetric. The same Metric value has to be used to build an index and to
// query it.
type Metric interface {
	// Name identifies the metric and its parameters; two metrics with the
	// same name produce identical distances.
	Name() string
	// Dim is the required vector length, 0 when any length is accepted.
	Dim() int
	// Distance returns the dissimilarity of a and b.
	Distance(a, b []float32) float64
}

// Validate checks that v has the dimensionality m expects.
func Validate(m Metric, v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("distance: empty vector: %w", feature.ErrInvalidInput)
	}
	if dim := m.Dim(); dim > 0 && len(v) != dim {
		return &feature.DimensionMismatchError{Expected: dim, Actual: len(v)}
	}
	return nil
}

// Checked validates both inputs before computing m.Distance. Inputs are never
// truncated or padded.
func Checked(m Metric, a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &feature.DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	if err := Validate(m, a); err != nil {
		return 0, err
	}
	return m.Distance(a, b), nil
}
