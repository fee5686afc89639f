package domain

// File is one generated file, addressed by its path relative to the scaffold root.
type File struct {
	Path      string `json:"path"`
	Content   []byte `json:"-"`
	NodeID    string `json:"node_id,omitempty"`
	Generator string `json:"generator"`
}

// Artifact types that do not correspond to a node type.
const (
	ArtifactConfig = "config"
)

// Artifact describes what a generator produced for one node.
type Artifact struct {
	Type    string   `json:"type"`
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Route   string   `json:"route,omitempty"`
	Method  string   `json:"method,omitempty"`
	Table   string   `json:"table,omitempty"`
	Columns []Column `json:"columns,omitempty"`
	Slug    string   `json:"slug,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
	Title   string   `json:"title,omitempty"`
	Binding *Binding `json:"binding,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// Binding is the resolved data a page is wired to.
type Binding struct {
	Table     *TableBinding     `json:"table,omitempty"`
	FileStore *FileStoreBinding `json:"file_store,omitempty"`
	APIs      []APIBinding      `json:"apis,omitempty"`
	Form      *Form             `json:"form,omitempty"`
}

// TableBinding points a page at a generated table.
type TableBinding struct {
	NodeID  string   `json:"node_id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// FileStoreBinding points a page at an upload location.
type FileStoreBinding struct {
	NodeID   string `json:"node_id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Location string `json:"location"`
}

// APIBinding points a page at a generated endpoint.
type APIBinding struct {
	NodeID string `json:"node_id"`
	Route  string `json:"route"`
	Method string `json:"method"`
}

// ArchiveDescriptor locates a packaged scaffold.
type ArchiveDescriptor struct {
	Key      string `json:"key"`
	Path     string `json:"path"`
	ByteSize int64  `json:"byte_size"`
	SHA256   string `json:"sha256"`
	MIME     string `json:"mime"`
}

// ArchiveMIME is the media type of packaged scaffolds.
const ArchiveMIME = "application/zip"
