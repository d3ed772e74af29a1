package domain

import "time"

type InstanceStatus string

const (
	InstanceDraft     InstanceStatus = "DRAFT"
	InstanceFilled    InstanceStatus = "FILLED"
	InstanceUploaded  InstanceStatus = "UPLOADED"
	InstanceVerified  InstanceStatus = "VERIFIED"
	InstanceFinalized InstanceStatus = "FINALIZED"
)

var instanceTransitions = map[InstanceStatus][]InstanceStatus{
	InstanceDraft:     {InstanceFilled, InstanceFinalized},
	InstanceFilled:    {InstanceFilled, InstanceUploaded, InstanceFinalized},
	InstanceUploaded:  {InstanceUploaded, InstanceVerified, InstanceFinalized},
	InstanceVerified:  {InstanceFinalized},
	InstanceFinalized: nil,
}

// CanTransition applies the linear lifecycle. DRAFT may jump to FINALIZED only
// for file-only templates, where the uploaded file is the artifact.
func CanTransition(from, to InstanceStatus, fileOnly bool) bool {
	if from == InstanceDraft && to == InstanceFinalized {
		return fileOnly
	}
	for _, next := range instanceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type StoredFile struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MIMEType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	URL        string `json:"url,omitempty"`
}

// FileUpload is one file supplied by the caller, fully buffered.
type FileUpload struct {
	FileName string
	MIMEType string
	Content  []byte
}

func (f FileUpload) Size() int64 {
	return int64(len(f.Content))
}

type Artifact struct {
	StorageKey string    `json:"storage_key"`
	URL        string    `json:"url"`
	MIMEType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	RenderedAt time.Time `json:"rendered_at"`
}

type DocumentInstance struct {
	ID              string         `json:"id"`
	FilingID        string         `json:"filing_id"`
	TemplateID      string         `json:"template_id"`
	TemplateCode    string         `json:"template_code"`
	TemplateVersion int            `json:"template_version"`
	Status          InstanceStatus `json:"status"`
	FilledData      map[string]any `json:"filled_data,omitempty"`
	Files           []StoredFile   `json:"files,omitempty"`
	Artifact        *Artifact      `json:"artifact,omitempty"`
	Version         int            `json:"version"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (i *DocumentInstance) HasData() bool {
	return len(i.FilledData) > 0
}

// StorageKeys lists every stored object the instance owns, once each. A
// file-only artifact shares its key with the uploaded file.
func (i *DocumentInstance) StorageKeys() []string {
	keys := make([]string, 0, len(i.Files)+1)
	seen := make(map[string]bool, len(i.Files)+1)
	add := func(key string) {
		if key != "" && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for _, f := range i.Files {
		add(f.StorageKey)
	}
	if i.Artifact != nil {
		add(i.Artifact.StorageKey)
	}
	return keys
}
