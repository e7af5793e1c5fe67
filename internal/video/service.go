// Package video provides the Service use case that turns upload and
// listing intents into calls against the media service.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/videojoin/internal/cloudinary"
	"github.com/maauso/videojoin/internal/transform"
)

// AllowedFormat is the only container format accepted for uploads.
const AllowedFormat = "mp4"

// Static errors for service input validation.
var (
	// ErrSourceRequired is returned when an upload has no source.
	ErrSourceRequired = errors.New("video: upload source is required")
	// ErrNoIDs is returned when Delete is called without identifiers.
	ErrNoIDs = errors.New("video: at least one public ID is required")
	// ErrNoSources is returned when Join is called without sources.
	ErrNoSources = errors.New("video: at least one source is required")
)

// UploadIntent is a source file plus the clips to splice onto it, in order.
type UploadIntent struct {
	// Source is a local file path or a remote URL.
	Source string
	// Clips are public IDs of stored videos, in stacking order.
	Clips []transform.ClipRef
}

// JoinOutcome describes a completed Join.
type JoinOutcome struct {
	// Result is the joined (or single) uploaded asset.
	Result *cloudinary.Asset
	// Clips are the intermediate clips spliced onto the first source.
	Clips []transform.ClipRef
}

// Service builds media-service requests for listing, uploading, joining
// and deleting videos.
type Service struct {
	client            cloudinary.Client
	logger            *slog.Logger
	uploadConcurrency int
	cleanupClips      bool
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithUploadConcurrency limits parallel clip uploads during Join.
func WithUploadConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.uploadConcurrency = n
		}
	}
}

// WithClipCleanup controls whether Join deletes intermediate clips after
// the joined upload succeeds.
func WithClipCleanup(enabled bool) ServiceOption {
	return func(s *Service) {
		s.cleanupClips = enabled
	}
}

// NewService creates a new Service around client.
func NewService(client cloudinary.Client, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client:            client,
		logger:            logger,
		uploadConcurrency: 3,
		cleanupClips:      true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every joined output.
func (s *Service) List(ctx context.Context) (*cloudinary.Listing, error) {
	listing, err := s.client.ListAssets(ctx, cloudinary.ListQuery{
		Prefix:       transform.JoinedFolder,
		ResourceType: cloudinary.ResourceVideo,
	})
	if err != nil {
		return nil, fmt.Errorf("list joined videos: %w", err)
	}
	return listing, nil
}

// Latest returns the most recently created joined output. It reports
// false when there is none or when the lookup fails; failures are logged
// and never returned.
func (s *Service) Latest(ctx context.Context) (*cloudinary.Asset, bool) {
	listing, err := s.client.ListAssets(ctx, cloudinary.ListQuery{
		Prefix:       transform.JoinedFolder,
		ResourceType: cloudinary.ResourceVideo,
		MaxResults:   1,
		Direction:    cloudinary.DirectionDesc,
	})
	if err != nil {
		s.logger.Error("failed to fetch latest video",
			slog.String("prefix", transform.JoinedFolder),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	if listing == nil || len(listing.Assets) == 0 {
		s.logger.Info("no videos found",
			slog.String("prefix", transform.JoinedFolder),
		)
		return nil, false
	}

	latest := listing.Assets[0]
	s.logger.Info("latest video found",
		slog.String("public_id", latest.PublicID),
	)
	return &latest, true
}

// Upload sends intent.Source to the media service. When clips are given
// they are spliced onto the source and the result lands in the joined
// folder; otherwise the source is stored as-is in the plain folder.
func (s *Service) Upload(ctx context.Context, intent UploadIntent) (*cloudinary.Asset, error) {
	if intent.Source == "" {
		return nil, ErrSourceRequired
	}

	chain, err := transform.Build(intent.Clips)
	if err != nil {
		return nil, err
	}
	folder := transform.Folder(intent.Clips)

	s.logger.Debug("uploading video",
		slog.String("folder", folder),
		slog.Int("clips", len(intent.Clips)),
		slog.String("transformation", chain.String()),
	)

	asset, err := s.client.Upload(ctx, intent.Source, cloudinary.UploadParams{
		Folder:         folder,
		ResourceType:   cloudinary.ResourceAuto,
		AllowedFormats: []string{AllowedFormat},
		Transformation: chain.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}

	s.logger.Info("video uploaded",
		slog.String("public_id", asset.PublicID),
		slog.String("folder", folder),
		slog.Int("clips", len(intent.Clips)),
	)
	return asset, nil
}

// Delete removes the given videos.
func (s *Service) Delete(ctx context.Context, ids []string) (*cloudinary.DeleteResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}

	res, err := s.client.DeleteAssets(ctx, cloudinary.DeleteQuery{
		PublicIDs:    ids,
		ResourceType: cloudinary.ResourceVideo,
	})
	if err != nil {
		return nil, fmt.Errorf("delete videos: %w", err)
	}
	return res, nil
}

// Join concatenates sources in order. Every source after the first is
// uploaded as a plain clip, then the first source is uploaded with those
// clips spliced onto it. A single source is a plain upload.
func (s *Service) Join(ctx context.Context, sources []string) (*JoinOutcome, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	clips, err := s.uploadClips(ctx, sources[1:])
	if err != nil {
		return nil, err
	}

	result, err := s.Upload(ctx, UploadIntent{Source: sources[0], Clips: clips})
	if err != nil {
		return nil, err
	}

	if s.cleanupClips && len(clips) > 0 {
		s.deleteClips(ctx, clips)
	}

	return &JoinOutcome{Result: result, Clips: clips}, nil
}

// uploadClips uploads sources as plain clips and returns their public IDs
// in source order.
func (s *Service) uploadClips(ctx context.Context, sources []string) ([]transform.ClipRef, error) {
	clips := make([]transform.ClipRef, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.uploadConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			asset, err := s.Upload(gctx, UploadIntent{Source: src})
			if err != nil {
				return fmt.Errorf("clip %d: %w", i+1, err)
			}
			clips[i] = transform.ClipRef(asset.PublicID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}

func (s *Service) deleteClips(ctx context.Context, clips []transform.ClipRef) {
	ids := make([]string, len(clips))
	for i, c := range clips {
		ids[i] = string(c)
	}
	if _, err := s.Delete(ctx, ids); err != nil {
		s.logger.Warn("failed to clean up intermediate clips",
			slog.Any("public_ids", ids),
			slog.String("error", err.Error()),
		)
	}
}
