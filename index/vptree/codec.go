package vptree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/internal/compress"
)

var magic = [4]byte{'V', 'P', 'T', '1'}

const (
	formatVersion = 1
	headerSize    = len(magic) + 2
	nodeSize      = 4 + 8 + 4 + 4
)

// MarshalBinary encodes the tree as: magic "VPT1", version(uint8),
// compression(uint8), then the compress-framed payload:
//
//	metricLen(uint32) metric bytes dim(uint32) n(uint32)
//	n * { idLen(uint32) id vec(float32[dim]) }
//	root(int32) nodes(uint32) nodes * { item(int32) mu(float64) left(int32) right(int32) }
//	depth(uint32) fallbacks(uint32) comparisons(uint64)
//
// All integers are little endian.
func (t *Tree) MarshalBinary() ([]byte, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	name := t.metric.Name()
	size := 12 + len(name) + 4 + len(t.nodes)*nodeSize + 16
	for _, id := range t.ids {
		size += 4 + len(id) + 4*t.dim
	}
	out := make([]byte, 0, size)
	le := binary.LittleEndian
	out = le.AppendUint32(out, uint32(len(name)))
	out = append(out, name...)
	out = le.AppendUint32(out, uint32(t.dim))
	out = le.AppendUint32(out, uint32(len(t.ids)))
	for i, id := range t.ids {
		out = le.AppendUint32(out, uint32(len(id)))
		out = append(out, id...)
		for _, v := range t.vecs[i] {
			out = le.AppendUint32(out, math.Float32bits(v))
		}
	}
	out = le.AppendUint32(out, uint32(t.root))
	out = le.AppendUint32(out, uint32(len(t.nodes)))
	for _, n := range t.nodes {
		out = le.AppendUint32(out, uint32(n.item))
		out = le.AppendUint64(out, math.Float64bits(n.mu))
		out = le.AppendUint32(out, uint32(n.left))
		out = le.AppendUint32(out, uint32(n.right))
	}
	out = le.AppendUint32(out, uint32(t.stats.Depth))
	out = le.AppendUint32(out, uint32(t.stats.Fallbacks))
	out = le.AppendUint64(out, uint64(t.stats.Comparisons))

	payload, err := compress.Encode(out, t.opts.compression)
	if err != nil {
		return nil, fmt.Errorf("vptree: %w", err)
	}
	data := make([]byte, 0, headerSize+len(payload))
	data = append(data, magic[:]...)
	data = append(data, formatVersion, byte(t.opts.compression))
	return append(data, payload...), nil
}

// UnmarshalBinary restores a tree written by MarshalBinary. The encoded
// metric name must match the tree's metric.
func (t *Tree) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize || !bytes.Equal(data[:len(magic)], magic[:]) {
		return fmt.Errorf("vptree: not a tree snapshot: %w", feature.ErrInvalidInput)
	}
	if v := data[len(magic)]; v != formatVersion {
		return fmt.Errorf("vptree: unsupported format version %d", v)
	}
	payload, err := compress.Decode(data[headerSize:], compress.Type(data[len(magic)+1]))
	if err != nil {
		return fmt.Errorf("vptree: %w", err)
	}
	r := reader{data: payload}
	name := string(r.bytes(int(r.u32())))
	if r.err == nil && name != t.metric.Name() {
		return fmt.Errorf("vptree: snapshot metric %q, tree metric %q: %w", name, t.metric.Name(), feature.ErrInvalidInput)
	}
	dim := int(r.u32())
	n := int(r.u32())
	if r.err == nil && n > len(payload) {
		return errTruncated
	}
	ids := make([]string, 0, n)
	vecs := make([][]float32, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		ids = append(ids, string(r.bytes(int(r.u32()))))
		raw := r.bytes(4 * dim)
		if r.err != nil {
			break
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*j:]))
		}
		vecs = append(vecs, vec)
	}
	root := int32(r.u32())
	count := int(r.u32())
	if r.err == nil && count != n {
		return fmt.Errorf("vptree: %d nodes for %d items: %w", count, n, feature.ErrInvalidInput)
	}
	nodes := make([]node, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		nd := node{item: int32(r.u32()), mu: math.Float64frombits(r.u64()), left: int32(r.u32()), right: int32(r.u32())}
		nodes = append(nodes, nd)
	}
	stats := Stats{Items: n, Nodes: count, Depth: int(r.u32()), Fallbacks: int(r.u32()), Comparisons: int(r.u64())}
	if r.err != nil {
		return r.err
	}
	if n > 0 {
		if err := distance.Validate(t.metric, vecs[0]); err != nil {
			return fmt.Errorf("vptree: snapshot dim %d: %w: %w", dim, feature.ErrInvalidInput, err)
		}
	}
	if err := checkArena(nodes, root); err != nil {
		return err
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	t.ids, t.vecs, t.dim = ids, vecs, dim
	t.nodes, t.root, t.stats = nodes, root, stats
	return nil
}

// Items returns the indexed items in arena item order.
func (t *Tree) Items() []feature.Item {
	t.lock.RLock()
	defer t.lock.RUnlock()
	items := make([]feature.Item, len(t.ids))
	for i := range t.ids {
		items[i] = feature.Item{ID: t.ids[i], Vector: t.vecs[i]}
	}
	return items
}

// checkArena rejects handles out of range and nodes reachable twice, so a
// corrupted snapshot cannot make Range loop.
func checkArena(nodes []node, root int32) error {
	n := int32(len(nodes))
	if n == 0 {
		if root != noChild {
			return fmt.Errorf("vptree: root %d in empty arena: %w", root, feature.ErrInvalidInput)
		}
		return nil
	}
	valid := func(h int32) bool { return h == noChild || (h >= 0 && h < n) }
	if root < 0 || root >= n {
		return fmt.Errorf("vptree: root %d out of range: %w", root, feature.ErrInvalidInput)
	}
	seen := make([]bool, n)
	stack := []int32{root}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[h] {
			return fmt.Errorf("vptree: node %d referenced twice: %w", h, feature.ErrInvalidInput)
		}
		seen[h] = true
		nd := nodes[h]
		if nd.item < 0 || nd.item >= n || !valid(nd.left) || !valid(nd.right) {
			return fmt.Errorf("vptree: node %d has invalid handles: %w", h, feature.ErrInvalidInput)
		}
		for _, c := range []int32{nd.left, nd.right} {
			if c != noChild {
				stack = append(stack, c)
			}
		}
	}
	return nil
}

var errTruncated = fmt.Errorf("vptree: truncated snapshot: %w", feature.ErrInvalidInput)

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = errTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}
