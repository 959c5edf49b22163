package feature

import (
	"context"
)

// Item is one indexed entry: an opaque identifier (typically an image path)
// and its feature vector. The vector is treated as immutable once the item
// has been handed to an index.
type Item struct {
	ID     string
	Vector []float32
}

// IDs returns the identifiers of items in order.
func IDs(items []Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

// Store defines durable storage for items and ground-truth groupings.
type Store interface {
	// PutItems inserts or replaces items.
	PutItems(ctx context.Context, items []Item) error

	// Items returns every stored item ordered by identifier.
	Items(ctx context.Context) ([]Item, error)

	// Item returns a single item or an error wrapping ErrUnknownIdentifier.
	Item(ctx context.Context, id string) (*Item, error)

	// Remove deletes the item with the given identifier.
	Remove(ctx context.Context, id string) error

	// PutGrouping replaces the named grouping.
	PutGrouping(ctx context.Context, name string, g Grouping) error

	// Grouping loads the named grouping.
	Grouping(ctx context.Context, name string) (Grouping, error)
}
