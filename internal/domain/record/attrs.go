package record

import (
	"encoding/json"
	"fmt"
)

// parseID normalizes the id attribute out of a raw record. JSON decoding
// hands numbers over as float64; application code may supply Go integers.
// A nil id means the record has not been persisted yet.
func parseID(v any) (*int64, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		id := int64(n)
		return &id, nil
	case int:
		id := int64(n)
		return &id, nil
	case int64:
		return &n, nil
	case json.Number:
		id, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", n, err)
		}
		return &id, nil
	default:
		return nil, fmt.Errorf("invalid id value %v (%T)", v, v)
	}
}

// subRecords coerces a column's raw payload into a list of raw records.
// The server sends a JSON array for every column, singletons included.
func subRecords(v any) ([]map[string]any, error) {
	switch records := v.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		return records, nil
	case []any:
		out := make([]map[string]any, 0, len(records))
		for _, r := range records {
			m, ok := r.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("sub-record is %T, want object", r)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("column payload is %T, want list", v)
	}
}

// displayToWire rewrites an edited date value into its wire form. Edits
// arrive in display format; values that are already Dates pass through.
func displayToWire(v any) (string, error) {
	switch d := v.(type) {
	case string:
		parsed, err := ParseDisplayDate(d)
		if err != nil {
			return "", err
		}
		return parsed.Wire(), nil
	case Date:
		return d.Wire(), nil
	default:
		return "", fmt.Errorf("unsupported date value %v (%T)", v, v)
	}
}
