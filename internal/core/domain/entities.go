package domain

import (
	"time"
)

// DefaultImageRef is shown when a project has neither a saved overlay nor a
// layout image.
const DefaultImageRef = "/aradhana.png"

// DefaultCorners positions the default overlay. The order is not canonical;
// the alignment controller assigns roles on load.
var DefaultCorners = Corners{
	{72.88638384002304, 21.18693643432666},
	{72.88657589833529, 21.18627221433158},
	{72.88862142140012, 21.18654325550465},
	{72.88849713957224, 21.18722347804809},
}

// Project is a real-estate development that owns at most one overlay.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Location       string    `json:"location,omitempty"`
	Description    string    `json:"description,omitempty"`
	ContactDetails string    `json:"contact_details,omitempty"`
	LayoutImage    string    `json:"layout_image,omitempty"`
	HasMap         bool      `json:"has_map"` // computed field
	CreatedAt      time.Time `json:"created_at"`
}

// MapConfig is the persisted overlay alignment for one project.
// Corners are stored in role order with any flip already applied.
type MapConfig struct {
	ProjectID string    `json:"project_id"`
	ImageRef  string    `json:"image_ref"`
	Corners   Corners   `json:"corners"`
	Opacity   float64   `json:"opacity"`
	FlipH     bool      `json:"flip_h"`
	FlipV     bool      `json:"flip_v"`
	IsDefault bool      `json:"is_default"` // computed field
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DefaultMapConfig returns the config used when none has been saved.
func DefaultMapConfig(projectID, imageRef string) *MapConfig {
	if imageRef == "" {
		imageRef = DefaultImageRef
	}
	return &MapConfig{
		ProjectID: projectID,
		ImageRef:  imageRef,
		Corners:   DefaultCorners,
		Opacity:   1,
		IsDefault: true,
	}
}

// Validate checks a config before it is persisted.
func (m *MapConfig) Validate() error {
	if m.ProjectID == "" {
		return &ConfigurationError{Field: "project_id", Reason: "is required"}
	}
	if m.ImageRef == "" {
		return &ConfigurationError{Field: "image_ref", Reason: "is required"}
	}
	if !finite(m.Opacity) || m.Opacity < 0 || m.Opacity > 1 {
		return &ConfigurationError{Field: "opacity", Reason: "must be between 0 and 1"}
	}
	return m.Corners.Validate()
}

// MapConfigEvent is published whenever a project's overlay changes.
type MapConfigEvent struct {
	Type      string     `json:"type"` // "saved" or "deleted"
	ProjectID string     `json:"project_id"`
	Config    *MapConfig `json:"config,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Map config event types.
const (
	MapConfigSaved   = "saved"
	MapConfigDeleted = "deleted"
)

// ImageInfo describes an uploaded overlay image.
type ImageInfo struct {
	Ref          string `json:"image_ref"`
	ContentType  string `json:"content_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int    `json:"size"`
	ThumbnailRef string `json:"thumbnail_ref,omitempty"` // small JPEG preview
}

// UploadTicket is a short-lived presigned upload target.
type UploadTicket struct {
	Key       string    `json:"key"`
	Ref       string    `json:"image_ref"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
