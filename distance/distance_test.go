package distance

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-vptree/feature"
)

// randomHistogram returns a vector whose components each sum to 1.
func randomHistogram(r *rand.Rand, components []Component) []float32 {
	var out []float32
	for _, c := range components {
		part := make([]float32, c.Bins)
		var sum float32
		for i := range part {
			if r.Intn(3) == 0 {
				continue
			}
			part[i] = r.Float32()
			sum += part[i]
		}
		if sum == 0 {
			part[0], sum = 1, 1
		}
		for i := range part {
			part[i] /= sum
		}
		out = append(out, part...)
	}
	return out
}

func TestNewIntersection(t *testing.T) {
	testCases := []struct {
		description string
		components  []Component
		expectErr   bool
		expectDim   int
	}{
		{description: "default layout", expectDim: 538},
		{description: "single component", components: []Component{{Name: "h", Bins: 4, Weight: 1}}, expectDim: 4},
		{description: "weights below one", components: []Component{{Name: "a", Bins: 2, Weight: 0.5}, {Name: "b", Bins: 2, Weight: 0.4}}, expectErr: true},
		{description: "negative weight", components: []Component{{Name: "a", Bins: 2, Weight: 1.5}, {Name: "b", Bins: 2, Weight: -0.5}}, expectErr: true},
		{description: "zero bins", components: []Component{{Name: "a", Bins: 0, Weight: 1}}, expectErr: true},
	}
	for _, tc := range testCases {
		m, err := NewIntersection(tc.components...)
		if tc.expectErr {
			require.Error(t, err, tc.description)
			assert.True(t, errors.Is(err, feature.ErrInvalidInput), tc.description)
			continue
		}
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.expectDim, m.Dim(), tc.description)
	}
}

func TestIntersection_Distance(t *testing.T) {
	m, err := NewIntersection(
		Component{Name: "color", Bins: 2, Weight: 0.2},
		Component{Name: "texture", Bins: 2, Weight: 0.8},
	)
	require.NoError(t, err)

	testCases := []struct {
		description string
		a, b        []float32
		expect      float64
	}{
		{description: "identical", a: []float32{0.5, 0.5, 0.25, 0.75}, b: []float32{0.5, 0.5, 0.25, 0.75}, expect: 0},
		{description: "disjoint", a: []float32{1, 0, 1, 0}, b: []float32{0, 1, 0, 1}, expect: 1},
		{description: "colour only overlap", a: []float32{1, 0, 1, 0}, b: []float32{1, 0, 0, 1}, expect: 0.8},
		{description: "texture only overlap", a: []float32{1, 0, 1, 0}, b: []float32{0, 1, 1, 0}, expect: 0.2},
		{description: "partial", a: []float32{0.5, 0.5, 0.5, 0.5}, b: []float32{1, 0, 1, 0}, expect: 0.5},
		{description: "over-full clamps at zero", a: []float32{2, 2, 2, 2}, b: []float32{2, 2, 2, 2}, expect: 0},
	}
	for _, tc := range testCases {
		assert.InDelta(t, tc.expect, m.Distance(tc.a, tc.b), 1e-6, tc.description)
	}
}

func TestIntersection_Properties(t *testing.T) {
	m, err := NewIntersection()
	require.NoError(t, err)
	r := rand.New(rand.NewSource(7))
	vectors := make([][]float32, 40)
	for i := range vectors {
		vectors[i] = randomHistogram(r, m.Components())
		require.NoError(t, CheckNormalized(m, vectors[i], 1e-4))
	}
	for i, a := range vectors {
		assert.InDelta(t, 0, m.Distance(a, a), 1e-5)
		for j, b := range vectors {
			d := m.Distance(a, b)
			assert.GreaterOrEqual(t, d, 0.0)
			assert.LessOrEqual(t, d, 1.0)
			assert.Equal(t, d, m.Distance(b, a), "symmetry %d/%d", i, j)
			for _, c := range vectors[:10] {
				// normalized inputs: a weighted sum of half-L1 terms
				assert.LessOrEqual(t, d, m.Distance(a, c)+m.Distance(c, b)+1e-5)
			}
		}
	}
}

func TestChecked(t *testing.T) {
	m, err := NewIntersection(Component{Name: "h", Bins: 3, Weight: 1})
	require.NoError(t, err)

	_, err = Checked(m, []float32{1, 0, 0}, []float32{1, 0})
	var mismatch *feature.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))

	_, err = Checked(m, []float32{1, 0}, []float32{1, 0})
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Expected)

	_, err = Checked(m, nil, nil)
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))

	d, err := Checked(m, []float32{1, 0, 0}, []float32{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
}

func TestCheckNormalized(t *testing.T) {
	m, err := NewIntersection(
		Component{Name: "color", Bins: 2, Weight: 0.5},
		Component{Name: "texture", Bins: 2, Weight: 0.5},
	)
	require.NoError(t, err)
	assert.NoError(t, CheckNormalized(m, []float32{0.5, 0.5, 1, 0}, 1e-6))
	err = CheckNormalized(m, []float32{0.5, 0.5, 0.7, 0}, 1e-6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "texture")
	assert.Error(t, CheckNormalized(m, []float32{1.5, -0.5, 1, 0}, 1e-6))
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		description string
		kind        Kind
		expectName  string
		expectErr   bool
	}{
		{description: "default is intersection", kind: "", expectName: "intersection(h:2:1)"},
		{description: "euclidean", kind: KindEuclidean, expectName: "euclidean(2)"},
		{description: "cosine", kind: KindCosine, expectName: "cosine(2)"},
		{description: "unknown", kind: "manhattan", expectErr: true},
	}
	for _, tc := range testCases {
		m, err := Resolve(tc.kind, Component{Name: "h", Bins: 2, Weight: 1})
		if tc.expectErr {
			assert.Error(t, err, tc.description)
			continue
		}
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.expectName, m.Name(), tc.description)
		assert.Equal(t, 2, m.Dim(), tc.description)
	}
}

func TestReferenceMetrics(t *testing.T) {
	e := Euclidean{}
	assert.InDelta(t, 5.0, e.Distance([]float32{0, 0}, []float32{3, 4}), 1e-6)
	assert.InDelta(t, 0.0, e.Distance([]float32{1, 2}, []float32{1, 2}), 1e-6)

	c := Cosine{}
	assert.InDelta(t, 0.0, c.Distance([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 1.0, c.Distance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 2.0, c.Distance([]float32{1, 0}, []float32{-3, 0}), 1e-6)
	assert.InDelta(t, 1-1/math.Sqrt2, c.Distance([]float32{1, 1}, []float32{5, 0}), 1e-6)
	assert.Equal(t, 1.0, c.Distance([]float32{0, 0}, []float32{0, 1}))
	assert.False(t, math.IsNaN(c.Distance([]float32{0, 0}, []float32{0, 0})))
}
