package vptree

import (
	"math/rand"
	"time"

	"github.com/viant/sqlite-vptree/internal/compress"
	"github.com/viant/sqlite-vptree/logging"
)

// DefaultSlack is the pruning slack applied unless WithSlack overrides it. It
// covers float32 rounding when the radius equals a realized distance.
const DefaultSlack = 1e-6

// Option configures a Tree.
type Option func(*options)

type options struct {
	rng         *rand.Rand
	slack       float64
	compression compress.Type
	logger      *logging.Logger
}

func newOptions(opts []Option) options {
	o := options{compression: compress.None, slack: DefaultSlack}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	o.logger = logging.OrNoop(o.logger)
	return o
}

// WithRand sets the random source used to pick pivots. The source is only
// used under the build lock.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithSeed seeds a private random source, making builds reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) { o.rng = rand.New(rand.NewSource(seed)) }
}

// WithSlack widens the pruning radius by eps. Results are still filtered by
// the requested radius; the slack only makes the tree visit more nodes, which
// absorbs floating-point violations of the triangle inequality. Zero disables
// it; negative values are ignored.
func WithSlack(eps float64) Option {
	return func(o *options) {
		if eps >= 0 {
			o.slack = eps
		}
	}
}

// WithCompression selects the payload compression used by MarshalBinary.
func WithCompression(t compress.Type) Option {
	return func(o *options) { o.compression = t }
}

// WithLogger sets the logger for build events.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}
