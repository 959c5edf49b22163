package vptab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite/vtab"
)

type row struct {
	rowid    int64
	id       string
	distance float64
	scored   bool
}

// Cursor iterates the rows of one query.
type Cursor struct {
	table  *Table
	rows   []row
	pos    int
	query  []float32
	radius float64
}

// Filter computes the result set based on idxNum/vals.
func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	_ = idxStr
	c.rows, c.pos, c.query = nil, 0, nil
	c.radius = c.table.opts.radius
	ctx := context.Background()

	switch idxNum {
	case idxScan:
		return c.scan(ctx)
	case idxMatch, idxMatchRadius:
		if len(vals) == 0 || vals[0] == nil {
			return fmt.Errorf("vptree: MATCH argument is required")
		}
		query, err := DecodeQuery(vals[0])
		if err != nil {
			return err
		}
		c.query = query
		if idxNum == idxMatchRadius {
			if len(vals) < 2 {
				return fmt.Errorf("vptree: missing radius constraint")
			}
			if c.radius, err = asFloat(vals[1]); err != nil {
				return err
			}
		}
		return c.search(ctx)
	default:
		return fmt.Errorf("vptree: unsupported query plan")
	}
}

func (c *Cursor) scan(ctx context.Context) error {
	q := fmt.Sprintf("SELECT rowid, id FROM %s ORDER BY id", quoteIdent(c.table.source))
	rows, err := c.table.module.db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.rowid, &r.id); err != nil {
			return err
		}
		c.rows = append(c.rows, r)
	}
	return rows.Err()
}

func (c *Cursor) search(ctx context.Context) error {
	idx, err := c.table.ensureIndex(ctx)
	if err != nil {
		return err
	}
	result, err := idx.Range(ctx, c.query, c.radius)
	if err != nil {
		c.table.logger.LogSearch(ctx, c.table.opts.kind, c.radius, 0, 0, err)
		return err
	}
	c.table.logger.LogSearch(ctx, c.table.opts.kind, c.radius, len(result.Matches), result.Comparisons, nil)
	result.SortByDistance()
	out := make([]row, 0, len(result.Matches))
	for _, m := range result.Matches {
		rid, err := c.table.lookupRow(ctx, m.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return err
		}
		out = append(out, row{rowid: rid, id: m.ID, distance: m.Distance, scored: true})
	}
	c.rows = out
	return nil
}

// Next advances the cursor.
func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

// Eof reports end-of-rows.
func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

// Column returns the value of a column in the current row.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("vptree: Column out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	r := c.rows[c.pos]
	switch col {
	case colID:
		return r.id, nil
	case colDistance:
		if !r.scored {
			return nil, nil
		}
		return r.distance, nil
	case colQuery:
		return nil, nil
	case colRadius:
		if c.query == nil {
			return nil, nil
		}
		return c.radius, nil
	}
	return nil, fmt.Errorf("vptree: unsupported column %d", col)
}

// Rowid returns the source table rowid of the current row.
func (c *Cursor) Rowid() (int64, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return 0, fmt.Errorf("vptree: Rowid out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	return c.rows[c.pos].rowid, nil
}

// Close releases resources.
func (c *Cursor) Close() error { c.rows = nil; c.pos = 0; return nil }
