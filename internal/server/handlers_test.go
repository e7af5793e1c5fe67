package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/videojoin/internal/cloudinary"
	"github.com/maauso/videojoin/internal/storage"
	"github.com/maauso/videojoin/internal/transform"
	"github.com/maauso/videojoin/internal/video"
)

// mockClient implements cloudinary.Client for testing.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) ListAssets(ctx context.Context, q cloudinary.ListQuery) (*cloudinary.Listing, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudinary.Listing), args.Error(1)
}

func (m *mockClient) Upload(ctx context.Context, source string, params cloudinary.UploadParams) (*cloudinary.Asset, error) {
	args := m.Called(ctx, source, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudinary.Asset), args.Error(1)
}

func (m *mockClient) DeleteAssets(ctx context.Context, q cloudinary.DeleteQuery) (*cloudinary.DeleteResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudinary.DeleteResult), args.Error(1)
}

// mp4Header is the smallest ftyp box that sniffs as video/mp4.
var mp4Header = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2")

var errRemote = errors.New("remote failure")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandlers(t *testing.T, opts ...HandlerOption) (*Handlers, *mockClient, *storage.LocalStorage) {
	t.Helper()
	client := &mockClient{}
	logger := testLogger()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := video.NewService(client, logger, video.WithUploadConcurrency(1))
	return NewHandlers(svc, store, logger, opts...), client, store
}

type part struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		var (
			w   interface{ Write([]byte) (int, error) }
			err error
		)
		if p.name == "" {
			w, err = mw.CreateFormField(p.field)
		} else {
			w, err = mw.CreateFormFile(p.field, p.name)
		}
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/videos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func videoPart(name string) part {
	return part{field: "videos", name: name, data: append(append([]byte{}, mp4Header...), []byte(name)...)}
}

func tempFileNamed(prefix string) any {
	return mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(filepath.Base(p), prefix+"_")
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestIndex(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="videos"`)
	assert.Contains(t, rec.Body.String(), "/api/videos")
}

func TestUploadVideos_JoinsInOrder(t *testing.T) {
	h, client, store := newTestHandlers(t)

	clips := []transform.ClipRef{"videos/second", "videos/third"}
	chain, err := transform.Build(clips)
	require.NoError(t, err)

	plain := cloudinary.UploadParams{Folder: "videos/", ResourceType: "auto", AllowedFormats: []string{"mp4"}}
	client.On("Upload", mock.Anything, tempFileNamed("second"), plain).
		Return(&cloudinary.Asset{PublicID: "videos/second"}, nil).Once()
	client.On("Upload", mock.Anything, tempFileNamed("third"), plain).
		Return(&cloudinary.Asset{PublicID: "videos/third"}, nil).Once()
	client.On("Upload", mock.Anything, tempFileNamed("first"), cloudinary.UploadParams{
		Folder:         "concatenated-videos/",
		ResourceType:   "auto",
		AllowedFormats: []string{"mp4"},
		Transformation: chain.String(),
	}).Return(&cloudinary.Asset{PublicID: "concatenated-videos/first", SecureURL: "https://x/y.mp4"}, nil).Once()
	client.On("DeleteAssets", mock.Anything, cloudinary.DeleteQuery{
		PublicIDs:    []string{"videos/second", "videos/third"},
		ResourceType: "video",
	}).Return(&cloudinary.DeleteResult{}, nil).Once()

	req := multipartRequest(t, videoPart("first.mp4"), videoPart("second.mp4"), videoPart("third.mp4"))
	rec := httptest.NewRecorder()

	h.UploadVideos(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ResultResponse[cloudinary.Asset]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://x/y.mp4", resp.Result.SecureURL)
	client.AssertExpectations(t)

	// Staged temp files are removed once the request completes.
	entries, err := os.ReadDir(store.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadVideos_SingleFile(t *testing.T) {
	h, client, _ := newTestHandlers(t)
	client.On("Upload", mock.Anything, tempFileNamed("only"), mock.Anything).
		Return(&cloudinary.Asset{PublicID: "videos/only", SecureURL: "https://x/only.mp4"}, nil).Once()

	rec := httptest.NewRecorder()
	h.UploadVideos(rec, multipartRequest(t, videoPart("only.mp4")))

	assert.Equal(t, http.StatusOK, rec.Code)
	client.AssertNotCalled(t, "DeleteAssets", mock.Anything, mock.Anything)
}

func TestIsMP4(t *testing.T) {
	tests := []struct {
		name  string
		brand string
		want  bool
	}{
		{"isom", "isom", true},
		{"mp42", "mp42", true},
		{"avc1", "avc1", true},
		{"apple m4v", "M4V ", true},
		{"quicktime", "qt  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head := []byte("\x00\x00\x00\x18ftyp" + tt.brand + "\x00\x00\x02\x00" + tt.brand + "iso2")
			assert.Equal(t, tt.want, isMP4(head))
		})
	}
	assert.False(t, isMP4([]byte("just some text")))
}

func TestUploadVideos_AcceptsM4VBrand(t *testing.T) {
	h, client, _ := newTestHandlers(t)
	client.On("Upload", mock.Anything, tempFileNamed("apple"), mock.Anything).
		Return(&cloudinary.Asset{PublicID: "videos/apple", SecureURL: "https://x/apple.mp4"}, nil).Once()

	m4v := []byte("\x00\x00\x00\x18ftypM4V \x00\x00\x02\x00M4V iso2")
	rec := httptest.NewRecorder()
	h.UploadVideos(rec, multipartRequest(t, part{field: "videos", name: "apple.m4v", data: m4v}))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	client.AssertExpectations(t)
}

func TestUploadVideos_NoFiles(t *testing.T) {
	h, client, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.UploadVideos(rec, multipartRequest(t, part{field: "title", data: []byte("x")}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_FILES", decodeError(t, rec).Code)
	client.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadVideos_NotMultipart(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/videos", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.UploadVideos(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_MULTIPART", decodeError(t, rec).Code)
}

func TestUploadVideos_UnsupportedFormat(t *testing.T) {
	h, client, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.UploadVideos(rec, multipartRequest(t, part{field: "videos", name: "notes.mp4", data: []byte("just some text")}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", decodeError(t, rec).Code)
	client.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadVideos_TooManyFiles(t *testing.T) {
	h, _, _ := newTestHandlers(t, WithUploadLimits(0, 1))

	rec := httptest.NewRecorder()
	h.UploadVideos(rec, multipartRequest(t, videoPart("a.mp4"), videoPart("b.mp4")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TOO_MANY_FILES", decodeError(t, rec).Code)
}

func TestUploadVideos_TooLarge(t *testing.T) {
	h, _, _ := newTestHandlers(t, WithUploadLimits(64, 0))

	big := part{field: "videos", name: "big.mp4", data: append(append([]byte{}, mp4Header...), bytes.Repeat([]byte("x"), 4096)...)}
	rec := httptest.NewRecorder()
	h.UploadVideos(rec, multipartRequest(t, big))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "REQUEST_TOO_LARGE", decodeError(t, rec).Code)
}

func TestUploadVideos_RemoteFailure(t *testing.T) {
	h, client, _ := newTestHandlers(t)
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, errRemote)

	rec := httptest.NewRecorder()
	h.UploadVideos(rec, multipartRequest(t, videoPart("a.mp4")))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPLOAD_FAILED", decodeError(t, rec).Code)
}

func TestListVideos(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h, client, _ := newTestHandlers(t)
		client.On("ListAssets", mock.Anything, mock.Anything).Return(&cloudinary.Listing{
			Assets: []cloudinary.Asset{{PublicID: "concatenated-videos/a"}},
		}, nil)

		rec := httptest.NewRecorder()
		h.ListVideos(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ResultResponse[cloudinary.Listing]
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Result.Assets, 1)
		assert.Equal(t, "concatenated-videos/a", resp.Result.Assets[0].PublicID)
	})

	t.Run("remote failure", func(t *testing.T) {
		h, client, _ := newTestHandlers(t)
		client.On("ListAssets", mock.Anything, mock.Anything).Return(nil, errRemote)

		rec := httptest.NewRecorder()
		h.ListVideos(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "LIST_FAILED", decodeError(t, rec).Code)
	})
}

func TestLatestVideo(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		h, client, _ := newTestHandlers(t)
		client.On("ListAssets", mock.Anything, mock.Anything).Return(&cloudinary.Listing{
			Assets: []cloudinary.Asset{{PublicID: "concatenated-videos/new", SecureURL: "https://x/new.mp4"}},
		}, nil)

		rec := httptest.NewRecorder()
		h.LatestVideo(rec, httptest.NewRequest(http.MethodGet, "/api/videos/latest", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ResultResponse[cloudinary.Asset]
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "https://x/new.mp4", resp.Result.SecureURL)
	})

	t.Run("remote failure is reported as none", func(t *testing.T) {
		h, client, _ := newTestHandlers(t)
		client.On("ListAssets", mock.Anything, mock.Anything).Return(nil, errRemote)

		rec := httptest.NewRecorder()
		h.LatestVideo(rec, httptest.NewRequest(http.MethodGet, "/api/videos/latest", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NO_VIDEOS", decodeError(t, rec).Code)
	})
}

func TestDeleteVideos(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h, client, _ := newTestHandlers(t)
		client.On("DeleteAssets", mock.Anything, cloudinary.DeleteQuery{
			PublicIDs:    []string{"a", "b"},
			ResourceType: "video",
		}).Return(&cloudinary.DeleteResult{Deleted: map[string]string{"a": "deleted", "b": "deleted"}}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/videos", strings.NewReader(`{"ids":["a","b"]}`))
		rec := httptest.NewRecorder()
		h.DeleteVideos(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ResultResponse[cloudinary.DeleteResult]
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "deleted", resp.Result.Deleted["a"])
		client.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		h, _, _ := newTestHandlers(t)

		rec := httptest.NewRecorder()
		h.DeleteVideos(rec, httptest.NewRequest(http.MethodDelete, "/api/videos", strings.NewReader("nope")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
	})

	t.Run("validation error", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"ids":[]}`, `{"ids":["a",""]}`} {
			h, client, _ := newTestHandlers(t)

			rec := httptest.NewRecorder()
			h.DeleteVideos(rec, httptest.NewRequest(http.MethodDelete, "/api/videos", strings.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code, body)
			client.AssertNotCalled(t, "DeleteAssets", mock.Anything, mock.Anything)
		}
	})

	t.Run("remote failure", func(t *testing.T) {
		h, client, _ := newTestHandlers(t)
		client.On("DeleteAssets", mock.Anything, mock.Anything).Return(nil, errRemote)

		rec := httptest.NewRecorder()
		h.DeleteVideos(rec, httptest.NewRequest(http.MethodDelete, "/api/videos", strings.NewReader(`{"ids":["a"]}`)))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "DELETE_FAILED", decodeError(t, rec).Code)
	})
}

func TestRouter_Integration(t *testing.T) {
	h, client, _ := newTestHandlers(t)
	client.On("ListAssets", mock.Anything, mock.Anything).Return(&cloudinary.Listing{}, nil)

	router := NewRouter(h, testLogger(), DefaultConfig())

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/videos", http.StatusOK},
		{http.MethodGet, "/api/videos/latest", http.StatusNotFound},
		{http.MethodGet, "/missing", http.StatusNotFound},
		{http.MethodPut, "/api/videos", http.StatusMethodNotAllowed},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORSMiddleware(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	cfg := Config{AllowedOrigins: []string{"https://example.com"}}
	router := NewRouter(h, testLogger(), cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "https://example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := RecoveryMiddleware(testLogger())(panicHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}
