package vptab

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	sqlite "modernc.org/sqlite"
	"modernc.org/sqlite/vtab"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/logging"
)

// ModuleName is the name used in CREATE VIRTUAL TABLE ... USING vptree(...).
const ModuleName = "vptree"

// Module implements vtab.Module for the vptree virtual table.
type Module struct {
	db     *sql.DB
	metric distance.Metric
	logger *logging.Logger
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger for build and search events.
func WithLogger(l *logging.Logger) Option {
	return func(m *Module) { m.logger = l }
}

// ErrAlreadyRegistered is returned when Register is called again with a
// different database or metric. The driver keeps one module per process.
var ErrAlreadyRegistered = errors.New("module already registered")

var (
	registerMu             sync.Mutex
	registered             *Module
	registerInvalidateOnce sync.Once
)

// Register registers the vptree virtual table module with the provided
// *sql.DB and the vptree_invalidate(table) SQL function used by triggers.
// Every vptree table measures distance with metric. The module is bound to
// the first db and metric registered in the process; repeating that pair is
// a no-op, any other pair fails with ErrAlreadyRegistered.
func Register(db *sql.DB, metric distance.Metric, opts ...Option) error {
	if metric == nil {
		return fmt.Errorf("vptree: metric is required")
	}
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered != nil {
		if registered.db != db || registered.metric.Name() != metric.Name() {
			return fmt.Errorf("vptree: module bound to %s on its first handle, got %s: %w", registered.metric.Name(), metric.Name(), ErrAlreadyRegistered)
		}
		return nil
	}
	mod := &Module{db: db, metric: metric}
	for _, opt := range opts {
		opt(mod)
	}
	mod.logger = logging.OrNoop(mod.logger).WithMetric(metric.Name())
	// triggers call vptree_invalidate on every connection, so it has to be
	// registered before the module opens one
	registerInvalidateOnce.Do(func() { _ = sqlite.RegisterDeterministicScalarFunction("vptree_invalidate", 1, invalidateFunc) })
	if err := vtab.RegisterModule(db, ModuleName, mod); err != nil {
		return err
	}
	registered = mod
	return nil
}

// invalidateFunc implements SQL scalar vptree_invalidate(table TEXT) -> INT.
func invalidateFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return int64(0), nil
	}
	var table string
	switch v := args[0].(type) {
	case string:
		table = v
	case []byte:
		table = string(v)
	default:
		return int64(0), nil
	}
	return int64(InvalidateCache(table)), nil
}

// Create initializes a vptree table instance.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

// Connect attaches to an existing vptree table instance.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

func (m *Module) connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vptree: expects at least 3 args, got %d", len(args))
	}
	if err := ctx.EnableConstraintSupport(); err != nil {
		return nil, fmt.Errorf("vptree: EnableConstraintSupport failed: %w", err)
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(id TEXT, distance REAL, query HIDDEN, radius HIDDEN)", args[2])); err != nil {
		return nil, err
	}
	source, opts := parseArgs(args[3:])
	// storage tables and triggers are created on first use to avoid DDL
	// from inside xCreate
	return &Table{
		module:    m,
		dbName:    args[1],
		tableName: args[2],
		source:    source,
		opts:      opts,
		logger:    m.logger.WithTable(source),
	}, nil
}
