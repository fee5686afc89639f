package schema

import "sort"

// Schema is a map of property names to their expected types.
// Example: {"name": String(), "columns": Slice(Map()), "bucket": Nullable(String())}
type Schema map[string]Type

// Fields returns the schema's field names in sorted order.
func (s Schema) Fields() []string {
	fields := make([]string, 0, len(s))
	for name := range s {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// Validate checks if data conforms to the schema.
// Every schema field is required; extra keys in data are ignored.
// Failures are reported in field-name order.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	var errs []error
	for _, fieldName := range schema.Fields() {
		value, exists := data[fieldName]
		if !exists {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: "required"})
			continue
		}
		if err := schema[fieldName].Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Missing returns the schema fields absent from data, sorted.
func Missing(schema Schema, data map[string]any) []string {
	var missing []string
	for _, fieldName := range schema.Fields() {
		if _, ok := data[fieldName]; !ok {
			missing = append(missing, fieldName)
		}
	}
	return missing
}
