package job

// Job represents internal job storage (not exposed in API)
type Job struct {
	JobID   string       `json:"job_id"`
	Type    Type         `json:"type"`
	Status  Status       `json:"status"`
	Results RenderResult `json:"results,omitempty"`
}

// Type for internal job classification
type Type string

const (
	TypeRender Type = "render"
)

// Status for internal job tracking
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// RenderResult is the stored outcome of a render job.
type RenderResult struct {
	Album       string `json:"album,omitempty"`
	PersonName  string `json:"person_name,omitempty"`
	AssetID     string `json:"asset_id,omitempty"`
	Illustrated bool   `json:"illustrated"`
	Path        string `json:"path,omitempty"`
	PublicURL   string `json:"public_url,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Error       string `json:"error,omitempty"`
}
