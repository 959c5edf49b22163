package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
)

// Match is one item returned by a range query.
type Match struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// Result holds the matches of a range query and the number of distance
// evaluations performed to produce them. Matches are unordered.
type Result struct {
	Matches     []Match `json:"matches"`
	Comparisons int     `json:"comparisons"`
}

// IDs returns the identifiers of the matches in their current order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		ids[i] = m.ID
	}
	return ids
}

// SortByDistance orders matches by ascending distance, ties by identifier.
func (r *Result) SortByDistance() {
	sort.Slice(r.Matches, func(i, j int) bool {
		a, b := r.Matches[i], r.Matches[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.ID < b.ID
	})
}

// Index defines a radius-searchable index over feature items with basic
// lifecycle methods.
type Index interface {
	// Build constructs the index from items, replacing any previous content.
	Build(items []feature.Item) error

	// Range returns every indexed item whose distance to query is at most
	// tau, together with the number of distance evaluations spent.
	Range(ctx context.Context, query []float32, tau float64) (*Result, error)

	// Len returns the number of indexed items.
	Len() int

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}

// ValidateRadius rejects negative and NaN radii.
func ValidateRadius(tau float64) error {
	if tau < 0 || math.IsNaN(tau) {
		return fmt.Errorf("index: radius %v: %w", tau, feature.ErrInvalidInput)
	}
	return nil
}

// ValidateItems checks that every item has a non-empty unique identifier and
// a vector of the same dimensionality acceptable to metric. It returns that
// dimensionality, 0 for no items.
func ValidateItems(items []feature.Item, metric distance.Metric) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	dim := len(items[0].Vector)
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			return 0, fmt.Errorf("index: empty identifier: %w", feature.ErrInvalidInput)
		}
		if _, ok := seen[item.ID]; ok {
			return 0, fmt.Errorf("index: duplicate identifier %q: %w", item.ID, feature.ErrInvalidInput)
		}
		seen[item.ID] = struct{}{}
		if len(item.Vector) != dim {
			return 0, fmt.Errorf("index: item %q: %w", item.ID, &feature.DimensionMismatchError{Expected: dim, Actual: len(item.Vector)})
		}
		if err := distance.Validate(metric, item.Vector); err != nil {
			return 0, fmt.Errorf("index: item %q: %w", item.ID, err)
		}
	}
	return dim, nil
}

// ValidateQuery checks query against the index dimensionality and tau.
func ValidateQuery(query []float32, dim int, tau float64) error {
	if err := ValidateRadius(tau); err != nil {
		return err
	}
	if dim > 0 && len(query) != dim {
		return fmt.Errorf("index: query: %w", &feature.DimensionMismatchError{Expected: dim, Actual: len(query)})
	}
	return nil
}
