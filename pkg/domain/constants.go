package domain

// Metadata keys written by the compiler.
const (
	// KeyCompiledAt records the last successful compile time (RFC 3339) in BuilderState.Metadata.
	KeyCompiledAt = "compiled_at"
	// KeyLastBuild records the last successful build id in BuilderState.Metadata.
	KeyLastBuild = "last_build_id"
)

// DefaultVersion is assigned to states that do not carry one.
const DefaultVersion = "1"
