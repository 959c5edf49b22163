package vptab

import (
	"context"
	"fmt"
	"sync"

	"modernc.org/sqlite/vtab"

	idxapi "github.com/viant/sqlite-vptree/index"
	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/logging"
)

const (
	colID = iota
	colDistance
	colQuery
	colRadius
)

const (
	idxScan = iota
	idxMatch
	idxMatchRadius
)

// Table represents a single vptree virtual table instance.
type Table struct {
	module    *Module
	dbName    string
	tableName string
	source    string
	opts      tableOptions
	logger    *logging.Logger

	dbPathOnce sync.Once
	dbPath     string
}

// BestIndex pushes down MATCH on the query column and equality on radius.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	var matchConstraint, radiusConstraint *vtab.Constraint
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		switch {
		case c.Column == colQuery && c.Op == vtab.OpMATCH:
			matchConstraint = c
		case c.Column == colRadius && c.Op == vtab.OpEQ:
			radiusConstraint = c
		}
	}
	switch {
	case matchConstraint == nil:
		info.IdxNum = idxScan
	case radiusConstraint == nil:
		matchConstraint.ArgIndex = 0
		matchConstraint.Omit = true
		info.IdxNum = idxMatch
	default:
		matchConstraint.ArgIndex = 0
		matchConstraint.Omit = true
		radiusConstraint.ArgIndex = 1
		radiusConstraint.Omit = true
		info.IdxNum = idxMatchRadius
	}
	return nil
}

// Open allocates a new cursor.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect cleans up per-connection resources.
func (t *Table) Disconnect() error { return nil }

// Destroy keeps the persisted tree; it is owned by the source table.
func (t *Table) Destroy() error { return nil }

func (t *Table) cachedDbPath(ctx context.Context) string {
	t.dbPathOnce.Do(func() {
		path, err := resolveDbPath(ctx, t.module.db, t.dbName)
		if err != nil {
			path = t.dbName
		}
		t.dbPath = path
	})
	return t.dbPath
}

// ensureIndex loads or builds the in-memory index, sharing it across
// connections and persisting trees in vptree_storage.
func (t *Table) ensureIndex(ctx context.Context) (idxapi.Index, error) {
	db := t.module.db
	if err := ensureStorage(ctx, db); err != nil {
		return nil, err
	}
	if err := ensureTriggers(ctx, db, t.source); err != nil {
		return nil, err
	}

	key := cacheKey(t.cachedDbPath(ctx), t.source, t.module.metric.Name(), t.opts.kind)
	entry := sharedCache.entry(key)
	if idx := entry.get(); idx != nil {
		return idx, nil
	}
	if idx, ok, err := t.loadPersisted(ctx); err != nil {
		return nil, err
	} else if ok {
		entry.set(idx)
		return idx, nil
	}

	for !entry.startBuild() {
		if idx := entry.waitForBuild(); idx != nil {
			return idx, nil
		}
	}
	defer entry.finishBuild()

	unlock, err := acquireBuildLock(ctx, db, t.source)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if idx, ok, err := t.loadPersisted(ctx); err != nil {
		return nil, err
	} else if ok {
		entry.set(idx)
		return idx, nil
	}

	opts := append(t.opts.treeOptions(), vptree.WithLogger(t.logger))
	built, err := buildIndex(ctx, db, t.source, t.opts.kind, t.module.metric, opts)
	if err != nil {
		return nil, err
	}
	entry.set(built)
	return built, nil
}

func (t *Table) loadPersisted(ctx context.Context) (idxapi.Index, bool, error) {
	if t.opts.kind != kindTree {
		return nil, false, nil
	}
	tree := vptree.New(t.module.metric, t.opts.treeOptions()...)
	ok, err := loadPersistedTree(ctx, t.module.db, t.source, tree)
	if !ok || err != nil {
		return nil, false, err
	}
	return tree, true, nil
}

// lookupRow resolves the source rowid of id.
func (t *Table) lookupRow(ctx context.Context, id string) (int64, error) {
	q := fmt.Sprintf("SELECT rowid FROM %s WHERE id = ?", quoteIdent(t.source))
	var rid int64
	if err := t.module.db.QueryRowContext(ctx, q, id).Scan(&rid); err != nil {
		return 0, err
	}
	return rid, nil
}
