// Package vpadmin provides administrative operations on vptree indexes via
// a virtual table.
//
//	CREATE VIRTUAL TABLE vp_admin USING vp_admin(op);
//	SELECT op FROM vp_admin WHERE op MATCH 'features'; -- rebuild index
//
// The query returns a single row with op='reindexed:<count>' on success.
package vpadmin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"modernc.org/sqlite/vtab"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/logging"
	"github.com/viant/sqlite-vptree/vptab"
)

// ModuleName is the admin virtual table module name.
const ModuleName = "vp_admin"

// Module rebuilds persisted trees on demand.
type Module struct {
	db     *sql.DB
	metric distance.Metric
	opts   []vptree.Option
	logger *logging.Logger
}

type Table struct{ module *Module }

type Cursor struct {
	table *Table
	rows  []string
	pos   int
}

var (
	registerMu sync.Mutex
	registered *Module
)

// Register registers the vp_admin module. Rebuilt trees use metric and opts.
// Like vptree, the module binds to the first db and metric in the process.
func Register(db *sql.DB, metric distance.Metric, logger *logging.Logger, opts ...vptree.Option) error {
	if metric == nil {
		return fmt.Errorf("vp_admin: metric is required")
	}
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered != nil {
		if registered.db != db || registered.metric.Name() != metric.Name() {
			return fmt.Errorf("vp_admin: module bound to %s on its first handle, got %s: %w", registered.metric.Name(), metric.Name(), vptab.ErrAlreadyRegistered)
		}
		return nil
	}
	mod := &Module{db: db, metric: metric, opts: opts, logger: logging.OrNoop(logger)}
	if err := vtab.RegisterModule(db, ModuleName, mod); err != nil {
		return err
	}
	registered = mod
	return nil
}

func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vp_admin: need at least 3 args")
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(op)", args[2])); err != nil {
		return nil, err
	}
	return &Table{module: m}, nil
}

func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 0
			c.Omit = true
			info.IdxNum = 1
			break
		}
	}
	return nil
}

func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }
func (t *Table) Disconnect() error          { return nil }
func (t *Table) Destroy() error             { return nil }

func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	c.rows = nil
	c.pos = 0
	if idxNum != 1 || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	source, ok := vals[0].(string)
	if !ok {
		return fmt.Errorf("vp_admin: MATCH expects source table name as TEXT")
	}
	m := c.table.module
	n, err := vptab.ReindexLogged(context.Background(), m.logger, m.db, strings.TrimSpace(source), m.metric, m.opts...)
	if err != nil {
		return err
	}
	c.rows = []string{fmt.Sprintf("reindexed:%d", n)}
	return nil
}

func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}
func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("vp_admin: Column out of range")
	}
	if col == 0 {
		return c.rows[c.pos], nil
	}
	return nil, nil
}
func (c *Cursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }
func (c *Cursor) Close() error         { c.rows = nil; c.pos = 0; return nil }
