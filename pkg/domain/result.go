package domain

// Stage is a step of the compile pipeline.
type Stage string

const (
	StageReceived   Stage = "received"
	StageNormalized Stage = "normalized"
	StageGenerated  Stage = "generated"
	StagePackaged   Stage = "packaged"
	StageTested     Stage = "tested"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Result is the structured outcome of a compile.
// It is always returned, including on failure.
type Result struct {
	Success           bool               `json:"success"`
	ProjectID         string             `json:"project_id"`
	BuildID           string             `json:"build_id"`
	Stage             Stage              `json:"stage"`
	Artifacts         []Artifact         `json:"artifacts"`
	PreviewURLs       []string           `json:"preview_urls"`
	DefaultPreviewURL string             `json:"default_preview_url,omitempty"`
	Errors            []string           `json:"errors"`
	Warnings          []string           `json:"warnings,omitempty"`
	Files             []string           `json:"files,omitempty"`
	Archive           *ArchiveDescriptor `json:"archive,omitempty"`

	// Causes holds the typed errors behind Errors, in the same order.
	Causes []error `json:"-"`
}

// Fail records err in the result.
func (r *Result) Fail(err error) {
	r.Errors = append(r.Errors, err.Error())
	r.Causes = append(r.Causes, err)
}
