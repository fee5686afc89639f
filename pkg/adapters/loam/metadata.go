package loam

// NodeMetadata is the header of one node document.
// It uses "mapstructure" tags to match standard frontmatter/YAML keys.
type NodeMetadata struct {
	ID    string         `json:"id" mapstructure:"id"`
	Type  string         `json:"type" mapstructure:"type"`
	Props map[string]any `json:"props" mapstructure:"props"`
	Meta  map[string]any `json:"meta" mapstructure:"meta"`
	Edges []LoaderEdge   `json:"edges" mapstructure:"edges"`
}

// LoaderEdge is an outgoing edge. "to" is accepted as shorthand for "target".
type LoaderEdge struct {
	Target string `json:"target" mapstructure:"target"`
	To     string `json:"to" mapstructure:"to"`
	Kind   string `json:"kind" mapstructure:"kind"`
}
