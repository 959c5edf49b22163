package feature

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Grouping maps a cluster label to the identifiers of its members. It is the
// ground truth used to score retrieval; each item belongs to at most one
// label.
type Grouping map[string][]string

type groupingFile struct {
	Clusters map[string][]string `json:"clusters"`
}

// DecodeGroupingJSON reads the clustering output format
// {"clusters": {"<label>": ["<id>", ...]}}.
func DecodeGroupingJSON(r io.Reader) (Grouping, error) {
	var f groupingFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("feature: decode grouping: %w", err)
	}
	if f.Clusters == nil {
		return nil, fmt.Errorf("feature: grouping has no clusters: %w", ErrInvalidInput)
	}
	return Grouping(f.Clusters), nil
}

// EncodeJSON writes the grouping in the same format DecodeGroupingJSON reads.
func (g Grouping) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(groupingFile{Clusters: g})
}

// Labels returns the cluster labels in sorted order.
func (g Grouping) Labels() []string {
	out := make([]string, 0, len(g))
	for label := range g {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Members returns the identifiers assigned to label.
func (g Grouping) Members(label string) []string { return g[label] }

// Index returns an identifier to label lookup.
func (g Grouping) Index() map[string]string {
	out := make(map[string]string)
	for label, ids := range g {
		for _, id := range ids {
			out[id] = label
		}
	}
	return out
}

// LabelOf returns the label id belongs to.
func (g Grouping) LabelOf(id string) (string, bool) {
	for label, ids := range g {
		for _, member := range ids {
			if member == id {
				return label, true
			}
		}
	}
	return "", false
}

// Validate checks that every member is one of known and that no identifier
// is assigned to two labels.
func (g Grouping) Validate(known []string) error {
	set := make(map[string]struct{}, len(known))
	for _, id := range known {
		set[id] = struct{}{}
	}
	seen := make(map[string]string)
	for _, label := range g.Labels() {
		for _, id := range g[label] {
			if _, ok := set[id]; !ok {
				return fmt.Errorf("feature: grouping label %q: %w", label, &UnknownIdentifierError{ID: id})
			}
			if prev, ok := seen[id]; ok && prev != label {
				return fmt.Errorf("feature: identifier %q in labels %q and %q: %w", id, prev, label, ErrInvalidInput)
			}
			seen[id] = label
		}
	}
	return nil
}
