package server

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/videojoin/internal/cloudinary"
	"github.com/maauso/videojoin/internal/storage"
	"github.com/maauso/videojoin/internal/video"
)

const (
	// uploadField is the multipart field holding the videos, in join order.
	uploadField = "videos"
	// sniffLen is how much of each part is inspected for its content type.
	sniffLen = 3072
)

// mp4MIMEs are the sniffed types accepted as MP4. M4V is the same container
// under an Apple brand.
var mp4MIMEs = []string{"video/mp4", "video/x-m4v"}

//go:embed web/index.html
var indexHTML []byte

var errUnsupportedFormat = errors.New("unsupported video format")

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *video.Service
	store          storage.Storage
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
	maxFiles       int
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithUploadLimits caps the request body size and the number of files per
// upload. Non-positive values keep the defaults.
func WithUploadLimits(maxBytes int64, maxFiles int) HandlerOption {
	return func(h *Handlers) {
		if maxBytes > 0 {
			h.maxUploadBytes = maxBytes
		}
		if maxFiles > 0 {
			h.maxFiles = maxFiles
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *video.Service, store storage.Storage, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		store:          store,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: 200 << 20,
		maxFiles:       10,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Index serves the upload page.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListVideos handles GET /api/videos requests.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list videos",
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to list videos", "LIST_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse[*cloudinary.Listing]{Result: listing})
}

// LatestVideo handles GET /api/videos/latest requests.
func (h *Handlers) LatestVideo(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.service.Latest(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no joined videos found", "NO_VIDEOS")
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse[*cloudinary.Asset]{Result: asset})
}

// UploadVideos handles POST /api/videos requests. The multipart field
// "videos" carries one or more MP4 files in the order they are joined.
func (h *Handlers) UploadVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cleanupCtx := context.WithoutCancel(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart/form-data body", "INVALID_MULTIPART")
		return
	}

	var paths []string
	defer func() {
		if err := h.store.CleanupTemp(cleanupCtx, paths); err != nil {
			h.logger.Warn("failed to clean up temp files",
				slog.String("request_id", RequestIDFrom(ctx)),
				slog.String("error", err.Error()),
			)
		}
	}()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.writeReadError(w, err)
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if len(paths) >= h.maxFiles {
			_ = part.Close()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per upload", h.maxFiles), "TOO_MANY_FILES")
			return
		}

		path, err := h.savePart(r, part)
		_ = part.Close()
		if errors.Is(err, errUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is not an MP4 video", part.FileName()), "UNSUPPORTED_FORMAT")
			return
		}
		if err != nil {
			h.writeReadError(w, err)
			return
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		writeError(w, http.StatusBadRequest, "no videos provided", "NO_FILES")
		return
	}

	sources := make([]string, 0, len(paths))
	staged := make([]storage.Staged, 0, len(paths))
	defer func() {
		for _, s := range staged {
			if err := h.store.Unstage(cleanupCtx, s); err != nil {
				h.logger.Warn("failed to unstage file",
					slog.String("request_id", RequestIDFrom(ctx)),
					slog.String("key", s.Key),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
	for _, p := range paths {
		s, err := h.store.Stage(ctx, p)
		if err != nil {
			h.logger.Error("failed to stage file",
				slog.String("request_id", RequestIDFrom(ctx)),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to stage upload", "STAGING_FAILED")
			return
		}
		staged = append(staged, s)
		sources = append(sources, s.Source)
	}

	out, err := h.service.Join(ctx, sources)
	if err != nil {
		h.logger.Error("failed to join videos",
			slog.String("request_id", RequestIDFrom(ctx)),
			slog.Int("files", len(sources)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "upload to media service failed", "UPLOAD_FAILED")
		return
	}

	h.logger.Info("videos joined",
		slog.String("request_id", RequestIDFrom(ctx)),
		slog.String("public_id", out.Result.PublicID),
		slog.Int("files", len(sources)),
	)

	writeJSON(w, http.StatusOK, ResultResponse[*cloudinary.Asset]{Result: out.Result})
}

// DeleteVideos handles DELETE /api/videos requests.
func (h *Handlers) DeleteVideos(w http.ResponseWriter, r *http.Request) {
	var req DeleteVideosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	res, err := h.service.Delete(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error("failed to delete videos",
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.Any("public_ids", req.IDs),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to delete videos", "DELETE_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, ResultResponse[*cloudinary.DeleteResult]{Result: res})
}

// savePart checks that part is an MP4 and writes it to a temp file.
func (h *Handlers) savePart(r *http.Request, part *multipart.Part) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(part, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]

	if !isMP4(head) {
		return "", errUnsupportedFormat
	}

	name := filepath.Base(part.FileName())
	if filepath.Ext(name) == "" {
		name += ".mp4"
	}
	return h.store.SaveTemp(r.Context(), name, io.MultiReader(bytes.NewReader(head), part))
}

// isMP4 reports whether head sniffs as an MP4 container.
func isMP4(head []byte) bool {
	mt := mimetype.Detect(head)
	for _, m := range mp4MIMEs {
		if mt.Is(m) {
			return true
		}
	}
	return false
}

// writeReadError maps a failure while reading the request body.
func (h *Handlers) writeReadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), "REQUEST_TOO_LARGE")
		return
	}
	h.logger.Warn("failed to read upload",
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusBadRequest, "malformed multipart body", "INVALID_MULTIPART")
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
