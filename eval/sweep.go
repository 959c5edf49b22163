package eval

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/viant/sqlite-vptree/feature"
)

// SweepPoint is the average retrieval quality at one radius.
type SweepPoint struct {
	Tau float64 `json:"tau"`
	Scores
}

// SweepReport lists every evaluated radius and the one with the highest F1.
type SweepReport struct {
	Points []SweepPoint `json:"points"`
	Best   SweepPoint   `json:"best"`
}

// Radii returns from, from+step, ... up to but excluding to.
func Radii(from, to, step float64) ([]float64, error) {
	if step <= 0 || math.IsNaN(step) || math.IsNaN(from) || math.IsNaN(to) {
		return nil, fmt.Errorf("eval: invalid radius range [%v, %v) step %v: %w", from, to, step, feature.ErrInvalidInput)
	}
	if from < 0 {
		return nil, fmt.Errorf("eval: negative radius %v: %w", from, feature.ErrInvalidInput)
	}
	count := int(math.Ceil((to - from) / step))
	var out []float64
	for i := 0; i < count; i++ {
		out = append(out, from+float64(i)*step)
	}
	return out, nil
}

// Sweep scores exhaustive retrieval from a precomputed distance matrix at
// each radius in [from, to) and picks the radius with the best average F1.
// Only clustered items are used as queries. Ties keep the smaller radius.
func Sweep(matrix *Matrix, grouping feature.Grouping, from, to, step float64, includeSelf bool) (*SweepReport, error) {
	radii, err := Radii(from, to, step)
	if err != nil {
		return nil, err
	}
	if len(radii) == 0 {
		return nil, fmt.Errorf("eval: empty radius range [%v, %v): %w", from, to, feature.ErrInvalidInput)
	}
	rel, err := newRelevance(matrix.IDs, grouping, includeSelf)
	if err != nil {
		return nil, err
	}
	queries := rel.queries()
	report := &SweepReport{Points: make([]SweepPoint, 0, len(radii))}
	for r, tau := range radii {
		var sum Scores
		for _, q := range queries {
			retrieved := roaring.New()
			for j, d := range matrix.Rows[q] {
				if d <= tau {
					retrieved.Add(uint32(j))
				}
			}
			sc := rel.score(q, retrieved)
			sum.Precision += sc.Precision
			sum.Recall += sc.Recall
			sum.F1 += sc.F1
		}
		point := SweepPoint{Tau: tau}
		if n := float64(len(queries)); n > 0 {
			point.Scores = Scores{Precision: sum.Precision / n, Recall: sum.Recall / n, F1: sum.F1 / n}
		}
		report.Points = append(report.Points, point)
		if r == 0 || point.F1 > report.Best.F1 {
			report.Best = point
		}
	}
	return report, nil
}
