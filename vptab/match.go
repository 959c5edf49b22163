package vptab

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/sqlite-vptree/feature"
	"modernc.org/sqlite/vtab"
)

// DecodeQuery converts a MATCH argument into a vector. BLOBs use the feature
// encoding; strings may hold a JSON array, base64 of the BLOB encoding, or a
// comma-separated float list.
func DecodeQuery(v interface{}) ([]float32, error) {
	switch val := v.(type) {
	case []byte:
		vec, err := feature.DecodeVector(val)
		if err == nil && len(vec) == 0 {
			err = fmt.Errorf("empty query vector: %w", feature.ErrInvalidInput)
		}
		return vec, err
	case string:
		return decodeQueryString(val)
	default:
		return nil, fmt.Errorf("vptree: expected MATCH arg as BLOB or string, got %T", v)
	}
}

func decodeQueryString(raw string) ([]float32, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("vptree: MATCH string is empty")
	}
	if strings.HasPrefix(s, "[") {
		var floats []float64
		if err := json.Unmarshal([]byte(s), &floats); err == nil && len(floats) > 0 {
			vec := make([]float32, len(floats))
			for i, f := range floats {
				vec[i] = float32(f)
			}
			return vec, nil
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) > 0 {
		if vec, err := feature.DecodeVector(b); err == nil {
			return vec, nil
		}
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		vec := make([]float32, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			f, err := strconv.ParseFloat(p, 32)
			if err != nil {
				return nil, fmt.Errorf("vptree: invalid MATCH float %q: %w", p, err)
			}
			vec = append(vec, float32(f))
		}
		if len(vec) > 0 {
			return vec, nil
		}
	}
	return nil, fmt.Errorf("vptree: MATCH string must be base64-encoded vector or JSON/CSV float list")
}

func asFloat(v vtab.Value) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	case []byte:
		return parseFloat(string(val))
	case string:
		return parseFloat(val)
	default:
		return 0, fmt.Errorf("vptree: unsupported radius type %T", v)
	}
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("vptree: cannot parse radius %q: %w", s, err)
	}
	return f, nil
}
