package bruteforce

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
)

// ctxCheckEvery controls how often the scan polls for cancellation.
const ctxCheckEvery = 64

// Index is an exhaustive range index over a fixed metric.
type Index struct {
	mu     sync.RWMutex
	metric distance.Metric
	ids    []string
	vecs   [][]float32
	dim    int
}

// New creates an empty index bound to metric.
func New(metric distance.Metric) *Index {
	return &Index{metric: metric}
}

// Metric returns the bound metric.
func (i *Index) Metric() distance.Metric { return i.metric }

// Build loads items after validating them against the metric.
func (i *Index) Build(items []feature.Item) error {
	dim, err := index.ValidateItems(items, i.metric)
	if err != nil {
		return fmt.Errorf("bruteforce: %w", err)
	}
	ids := make([]string, len(items))
	vecs := make([][]float32, len(items))
	backing := make([]float32, len(items)*dim)
	for j, item := range items {
		ids[j] = item.ID
		vecs[j] = backing[j*dim : (j+1)*dim : (j+1)*dim]
		copy(vecs[j], item.Vector)
	}
	i.mu.Lock()
	i.ids, i.vecs, i.dim = ids, vecs, dim
	i.mu.Unlock()
	return nil
}

// Len returns the number of indexed items.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}

// Range scans every item and returns those within tau of query.
func (i *Index) Range(ctx context.Context, query []float32, tau float64) (*index.Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if err := index.ValidateQuery(query, i.dim, tau); err != nil {
		return nil, fmt.Errorf("bruteforce: %w", err)
	}
	result := &index.Result{}
	for j, vec := range i.vecs {
		if j%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		d := i.metric.Distance(query, vec)
		result.Comparisons++
		if d <= tau {
			result.Matches = append(result.Matches, index.Match{ID: i.ids[j], Distance: d})
		}
	}
	return result, nil
}

// Distances returns the distance from query to every item, in build order.
func (i *Index) Distances(query []float32) ([]index.Match, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if err := index.ValidateQuery(query, i.dim, 0); err != nil {
		return nil, fmt.Errorf("bruteforce: %w", err)
	}
	out := make([]index.Match, len(i.vecs))
	for j, vec := range i.vecs {
		out[j] = index.Match{ID: i.ids[j], Distance: i.metric.Distance(query, vec)}
	}
	return out, nil
}

// MarshalBinary stores: dim(uint32), n(uint32), then for each item:
// idLen(uint32), id bytes, vec(float32[dim]).
func (i *Index) MarshalBinary() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	size := 8
	for _, id := range i.ids {
		size += 4 + len(id) + 4*i.dim
	}
	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(i.dim))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(i.ids)))
	for idx, id := range i.ids {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(id)))
		out = append(out, id...)
		for _, v := range i.vecs[idx] {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	return out, nil
}

// UnmarshalBinary restores the index from bytes.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errors.New("bruteforce: invalid data")
	}
	off := 0
	getU32 := func() uint32 { v := binary.LittleEndian.Uint32(data[off : off+4]); off += 4; return v }
	dim := int(getU32())
	n := int(getU32())
	items := make([]feature.Item, n)
	for idx := 0; idx < n; idx++ {
		if off+4 > len(data) {
			return errors.New("bruteforce: truncated")
		}
		idlen := int(getU32())
		if off+idlen > len(data) {
			return errors.New("bruteforce: truncated id")
		}
		items[idx].ID = string(data[off : off+idlen])
		off += idlen
		if off+4*dim > len(data) {
			return errors.New("bruteforce: truncated vec")
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(getU32())
		}
		items[idx].Vector = vec
	}
	return i.Build(items)
}

var _ index.Index = (*Index)(nil)
