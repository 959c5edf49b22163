package eval

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/viant/sqlite-vptree/feature"
)

// Scores holds retrieval quality of one query or an average of many.
type Scores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Score computes precision = hits/retrieved, recall = hits/relevant and
// their harmonic mean; each is 0 when its denominator is 0.
func Score(hits, retrieved, relevant int) Scores {
	var s Scores
	if retrieved > 0 {
		s.Precision = float64(hits) / float64(retrieved)
	}
	if relevant > 0 {
		s.Recall = float64(hits) / float64(relevant)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// relevance resolves ground truth over item ordinals.
type relevance struct {
	ordinal     map[string]uint32
	cluster     []int
	members     []*roaring.Bitmap
	includeSelf bool
}

func newRelevance(ids []string, grouping feature.Grouping, includeSelf bool) (*relevance, error) {
	if err := grouping.Validate(ids); err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	r := &relevance{
		ordinal:     make(map[string]uint32, len(ids)),
		cluster:     make([]int, len(ids)),
		includeSelf: includeSelf,
	}
	for i, id := range ids {
		r.ordinal[id] = uint32(i)
		r.cluster[i] = -1
	}
	for c, label := range grouping.Labels() {
		bm := roaring.New()
		for _, id := range grouping.Members(label) {
			o := r.ordinal[id]
			bm.Add(o)
			r.cluster[o] = c
		}
		r.members = append(r.members, bm)
	}
	return r, nil
}

// clustered reports whether query q has ground truth.
func (r *relevance) clustered(q uint32) bool { return r.cluster[q] >= 0 }

// queries returns the ordinals of clustered items.
func (r *relevance) queries() []uint32 {
	var out []uint32
	for q := range r.cluster {
		if r.cluster[q] >= 0 {
			out = append(out, uint32(q))
		}
	}
	return out
}

// score evaluates the retrieved ordinals of query q.
func (r *relevance) score(q uint32, retrieved *roaring.Bitmap) Scores {
	relevant := r.members[r.cluster[q]]
	hits := int(retrieved.AndCardinality(relevant))
	nRetrieved := int(retrieved.GetCardinality())
	nRelevant := int(relevant.GetCardinality())
	if !r.includeSelf {
		if retrieved.Contains(q) {
			hits--
			nRetrieved--
		}
		nRelevant--
	}
	return Score(hits, nRetrieved, nRelevant)
}

// bitmap converts matched identifiers into ordinals.
func (r *relevance) bitmap(ids []string) *roaring.Bitmap {
	bm := roaring.New()
	for _, id := range ids {
		if o, ok := r.ordinal[id]; ok {
			bm.Add(o)
		}
	}
	return bm
}
