// Package cloudinary provides a narrow client for the Cloudinary media
// service: listing, uploading and deleting video assets.
package cloudinary

import (
	"fmt"
	"time"
)

// Resource types understood by the upload and admin APIs.
const (
	ResourceVideo = "video"
	ResourceAuto  = "auto"
)

// Sort directions for asset listings, ordered by creation time.
const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// Asset describes a stored media asset. Field names follow Cloudinary's
// JSON so that results can be passed through to clients unchanged.
type Asset struct {
	PublicID     string    `json:"public_id"`
	SecureURL    string    `json:"secure_url"`
	URL          string    `json:"url,omitempty"`
	Format       string    `json:"format,omitempty"`
	ResourceType string    `json:"resource_type,omitempty"`
	Bytes        int       `json:"bytes,omitempty"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListQuery selects previously uploaded assets.
type ListQuery struct {
	Prefix       string
	ResourceType string
	MaxResults   int
	Direction    string
	NextCursor   string
}

// Listing is the result of a ListAssets call.
type Listing struct {
	Assets     []Asset `json:"resources"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// UploadParams controls a single upload.
type UploadParams struct {
	Folder         string
	ResourceType   string
	AllowedFormats []string
	// Transformation is applied before the asset is stored. Empty means none.
	Transformation string
}

// DeleteQuery names the assets to delete.
type DeleteQuery struct {
	PublicIDs    []string
	ResourceType string
}

// DeleteResult acknowledges a deletion. Deleted maps each public ID to its
// outcome ("deleted" or "not_found").
type DeleteResult struct {
	Deleted map[string]string `json:"deleted"`
	Partial bool              `json:"partial"`
}

// APIError is a failure reported by the Cloudinary API itself.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloudinary: %s: %s", e.Op, e.Message)
}
