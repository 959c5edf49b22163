package engine

import (
	"database/sql/driver"
	"fmt"
	"sync"

	sqlite "modernc.org/sqlite"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
)

// DefaultFunction is the SQL name of the default histogram distance.
const DefaultFunction = "hist_distance"

var (
	functionsMu sync.RWMutex
	functions   = map[string]distance.Metric{}
)

// RegisterDistanceFunction registers a deterministic SQL scalar function
// name(a BLOB, b BLOB) -> REAL evaluating metric. The driver registers
// functions process-wide for connections opened after the first call;
// registering the same name again rebinds it to the new metric.
//
//	SELECT id FROM features WHERE hist_distance(vector, ?) <= ?
func RegisterDistanceFunction(name string, metric distance.Metric) error {
	if name == "" || metric == nil {
		return fmt.Errorf("engine: function name and metric are required: %w", feature.ErrInvalidInput)
	}
	functionsMu.Lock()
	defer functionsMu.Unlock()
	if _, ok := functions[name]; ok {
		functions[name] = metric
		return nil
	}
	if err := sqlite.RegisterDeterministicScalarFunction(name, 2, distanceImpl(name)); err != nil {
		return fmt.Errorf("engine: register %s: %w", name, err)
	}
	functions[name] = metric
	return nil
}

// RegisterDefaultFunctions registers hist_distance over the default
// colour/texture layout and hist_l2 over Euclidean distance.
func RegisterDefaultFunctions() error {
	metric, err := distance.NewIntersection()
	if err != nil {
		return err
	}
	if err := RegisterDistanceFunction(DefaultFunction, metric); err != nil {
		return err
	}
	return RegisterDistanceFunction("hist_l2", distance.Euclidean{})
}

func lookupMetric(name string) distance.Metric {
	functionsMu.RLock()
	defer functionsMu.RUnlock()
	return functions[name]
}

func asVector(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return feature.DecodeVector(v)
	default:
		return nil, fmt.Errorf("unsupported argument type %T for vector; want BLOB", arg)
	}
}

func distanceImpl(name string) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
		}
		a, err := asVector(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		b, err := asVector(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if a == nil || b == nil {
			return nil, nil
		}
		d, err := distance.Checked(lookupMetric(name), a, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return d, nil
	}
}
