// Package schema provides a small runtime type system for node properties.
//
// Each node type declares the properties it must carry after defaulting as a Schema,
// a map of property names to Types. Validate reports every missing or mistyped
// property at once:
//
//	s := schema.Schema{
//	    "name":    schema.String(),
//	    "columns": schema.Slice(schema.Map()),
//	    "bucket":  schema.Nullable(schema.String()),
//	}
//
//	if err := schema.Validate(s, props); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        // *ValidationError with Key and Reason
//	    }
//	}
//
// Schemas serialize to JSON as a map of property names to type names
// ("string", "[map]", "?string") and parse back with ParseTypeMap.
package schema
