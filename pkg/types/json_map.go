package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a loosely typed jsonb column.
type JSONMap map[string]any

// Value marshals the map to jsonb. A nil map stores SQL NULL.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("json_map: marshal: %w", err)
	}
	return raw, nil
}

// Scan decodes jsonb back into the map.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("json_map: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}

	out := JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("json_map: unmarshal: %w", err)
	}
	*m = out
	return nil
}
