package cloudinary

import (
	"context"
	"errors"
	"fmt"

	cldsdk "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Static errors for client construction.
var (
	// ErrCloudNameRequired is returned when the cloud name is empty.
	ErrCloudNameRequired = errors.New("cloudinary: cloud name is required")
	// ErrAPIKeyRequired is returned when the API key is empty.
	ErrAPIKeyRequired = errors.New("cloudinary: API key is required")
	// ErrAPISecretRequired is returned when the API secret is empty.
	ErrAPISecretRequired = errors.New("cloudinary: API secret is required")
)

// Client defines the operations used against the media service.
// Each call blocks until the remote request settles and yields exactly one
// of a result or an error.
type Client interface {
	// ListAssets enumerates assets matching the query.
	ListAssets(ctx context.Context, q ListQuery) (*Listing, error)

	// Upload sends a local file path or remote URL to the service.
	Upload(ctx context.Context, source string, params UploadParams) (*Asset, error)

	// DeleteAssets removes assets by public ID.
	DeleteAssets(ctx context.Context, q DeleteQuery) (*DeleteResult, error)
}

// SDKClient implements Client on top of the official Cloudinary SDK.
// Credentials are bound to the instance; nothing is configured globally.
type SDKClient struct {
	cld *cldsdk.Cloudinary
}

// ClientOption is a function that configures an SDKClient.
type ClientOption func(*SDKClient)

// WithAPIPrefix overrides the API base URL (used by tests).
// The SDK copies its configuration into the admin and upload APIs, so each
// copy is updated.
func WithAPIPrefix(prefix string) ClientOption {
	return func(c *SDKClient) {
		c.cld.Config.API.UploadPrefix = prefix
		c.cld.Admin.Config.API.UploadPrefix = prefix
		c.cld.Upload.Config.API.UploadPrefix = prefix
	}
}

// NewClient creates an SDK-backed client for the given account.
func NewClient(cloudName, apiKey, apiSecret string, opts ...ClientOption) (*SDKClient, error) {
	switch {
	case cloudName == "":
		return nil, ErrCloudNameRequired
	case apiKey == "":
		return nil, ErrAPIKeyRequired
	case apiSecret == "":
		return nil, ErrAPISecretRequired
	}

	cld, err := cldsdk.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: create SDK client: %w", err)
	}

	c := &SDKClient{cld: cld}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListAssets enumerates uploaded assets under q.Prefix.
func (c *SDKClient) ListAssets(ctx context.Context, q ListQuery) (*Listing, error) {
	resp, err := c.cld.Admin.Assets(ctx, admin.AssetsParams{
		AssetType:    api.AssetType(q.ResourceType),
		DeliveryType: string(api.Upload),
		Prefix:       q.Prefix,
		MaxResults:   q.MaxResults,
		Direction:    q.Direction,
		NextCursor:   q.NextCursor,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary: list assets: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, &APIError{Op: "list assets", Message: resp.Error.Message}
	}

	listing := &Listing{
		Assets:     make([]Asset, 0, len(resp.Assets)),
		NextCursor: resp.NextCursor,
	}
	for _, a := range resp.Assets {
		listing.Assets = append(listing.Assets, Asset{
			PublicID:     a.PublicID,
			SecureURL:    a.SecureURL,
			URL:          a.URL,
			Format:       a.Format,
			ResourceType: a.AssetType,
			Bytes:        a.Bytes,
			Width:        a.Width,
			Height:       a.Height,
			CreatedAt:    a.CreatedAt,
		})
	}
	return listing, nil
}

// Upload sends source to the service with the given parameters.
func (c *SDKClient) Upload(ctx context.Context, source string, params UploadParams) (*Asset, error) {
	resp, err := c.cld.Upload.Upload(ctx, source, uploader.UploadParams{
		Folder:         params.Folder,
		ResourceType:   params.ResourceType,
		AllowedFormats: api.CldAPIArray(params.AllowedFormats),
		Transformation: params.Transformation,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary: upload: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, &APIError{Op: "upload", Message: resp.Error.Message}
	}

	return &Asset{
		PublicID:     resp.PublicID,
		SecureURL:    resp.SecureURL,
		URL:          resp.URL,
		Format:       resp.Format,
		ResourceType: resp.ResourceType,
		Bytes:        resp.Bytes,
		Width:        resp.Width,
		Height:       resp.Height,
		Duration:     durationOf(resp.Response),
		CreatedAt:    resp.CreatedAt,
	}, nil
}

// DeleteAssets removes the given public IDs.
func (c *SDKClient) DeleteAssets(ctx context.Context, q DeleteQuery) (*DeleteResult, error) {
	resp, err := c.cld.Admin.DeleteAssets(ctx, admin.DeleteAssetsParams{
		AssetType:    api.AssetType(q.ResourceType),
		DeliveryType: api.Upload,
		PublicIDs:    api.CldAPIArray(q.PublicIDs),
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary: delete assets: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, &APIError{Op: "delete assets", Message: resp.Error.Message}
	}

	return &DeleteResult{
		Deleted: resp.Deleted,
		Partial: resp.Partial,
	}, nil
}

// durationOf extracts the video duration from the raw upload response.
// The SDK stores the decoded body behind a pointer.
func durationOf(raw any) float64 {
	var m map[string]any
	switch v := raw.(type) {
	case *map[string]any:
		if v == nil {
			return 0
		}
		m = *v
	case map[string]any:
		m = v
	default:
		return 0
	}
	d, _ := m["duration"].(float64)
	return d
}
