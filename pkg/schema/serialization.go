package schema

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON serializes the schema as a map of property names to type names.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	raw := make(map[string]string, len(s))
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("field %s: type is nil", key)
		}
		raw[key] = typ.Name()
	}
	return json.Marshal(raw)
}

// UnmarshalJSON parses a map of property names to type names.
// Custom types cannot round-trip and fail to parse.
func (s *Schema) UnmarshalJSON(data []byte) error {
	if s == nil {
		return fmt.Errorf("schema: UnmarshalJSON on nil pointer")
	}
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	parsed, err := ParseTypeMap(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
