package vptree

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/sqlite-vptree/index"
)

// ctxCheckEvery controls how often a search polls for cancellation.
const ctxCheckEvery = 64

var stackPool = sync.Pool{New: func() any {
	s := make([]int32, 0, 64)
	return &s
}}

// Range returns every item whose distance to query is at most tau. Matches
// are unordered; Comparisons counts the distance evaluations performed, one
// per visited node. An empty tree yields an empty result.
func (t *Tree) Range(ctx context.Context, query []float32, tau float64) (*index.Result, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if err := index.ValidateQuery(query, t.dim, tau); err != nil {
		return nil, fmt.Errorf("vptree: %w", err)
	}
	result := &index.Result{}
	if t.root == noChild {
		return result, nil
	}
	reach := tau + t.opts.slack

	sp := stackPool.Get().(*[]int32)
	stack := append((*sp)[:0], t.root)
	defer func() {
		*sp = stack[:0]
		stackPool.Put(sp)
	}()

	for len(stack) > 0 {
		if result.Comparisons%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[h]

		d := t.metric.Distance(query, t.vecs[n.item])
		result.Comparisons++
		if d <= tau {
			result.Matches = append(result.Matches, index.Match{ID: t.ids[n.item], Distance: d})
		}
		if d < n.mu {
			if n.left != noChild {
				stack = append(stack, n.left)
			}
			if n.right != noChild && d+reach >= n.mu {
				stack = append(stack, n.right)
			}
			continue
		}
		if n.right != noChild {
			stack = append(stack, n.right)
		}
		if n.left != noChild && d-reach <= n.mu {
			stack = append(stack, n.left)
		}
	}
	return result, nil
}
