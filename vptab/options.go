package vptab

import (
	"strconv"
	"strings"

	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/internal/compress"
)

const (
	kindTree  = "vptree"
	kindBrute = "brute"

	// DefaultRadius applies when a query has no radius constraint.
	DefaultRadius = 0.14
)

type tableOptions struct {
	kind        string
	radius      float64
	seed        int64
	useSeed     bool
	slack       float64
	compression compress.Type
}

func (o tableOptions) treeOptions() []vptree.Option {
	opts := []vptree.Option{vptree.WithCompression(o.compression)}
	if o.useSeed {
		opts = append(opts, vptree.WithSeed(o.seed))
	}
	if o.slack > 0 {
		opts = append(opts, vptree.WithSlack(o.slack))
	}
	return opts
}

// parseArgs splits CREATE arguments into the source table and options.
// Unknown keys and malformed values are ignored.
func parseArgs(args []string) (string, tableOptions) {
	source := defaultSource
	opts := tableOptions{kind: kindTree, radius: DefaultRadius}
	for i, raw := range args {
		a := strings.TrimSpace(raw)
		if a == "" {
			continue
		}
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			if i == 0 {
				source = unquote(a)
			}
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		val := unquote(strings.TrimSpace(parts[1]))
		switch key {
		case "index":
			switch strings.ToLower(val) {
			case kindTree, "vp_tree", "tree":
				opts.kind = kindTree
			case kindBrute, "exhaustive":
				opts.kind = kindBrute
			}
		case "radius", "tau":
			if f, err := strconv.ParseFloat(val, 64); err == nil && f >= 0 {
				opts.radius = f
			}
		case "seed":
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				opts.seed, opts.useSeed = n, true
			}
		case "slack":
			if f, err := strconv.ParseFloat(val, 64); err == nil && f >= 0 {
				opts.slack = f
			}
		case "compression":
			if t, err := compress.Parse(val); err == nil {
				opts.compression = t
			}
		}
	}
	return source, opts
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
