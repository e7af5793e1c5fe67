package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/videojoin/internal/cloudinary"
)

// FieldName is the multipart field carrying the selected videos.
const FieldName = "videos"

// UploadPath is the server endpoint the form posts to.
const UploadPath = "/api/videos"

// SubmitError is a non-2xx response from the upload endpoint.
type SubmitError struct {
	Status  int
	Message string
	Code    string
}

func (e *SubmitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("form: upload failed with status %d", e.Status)
	}
	return fmt.Sprintf("form: upload failed with status %d: %s (%s)", e.Status, e.Message, e.Code)
}

// HTTPSubmitter posts selections as multipart/form-data.
type HTTPSubmitter struct {
	baseURL    string
	httpClient *http.Client
}

// SubmitterOption is a function that configures an HTTPSubmitter.
type SubmitterOption func(*HTTPSubmitter)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) SubmitterOption {
	return func(s *HTTPSubmitter) {
		s.httpClient = c
	}
}

// NewHTTPSubmitter creates a submitter for the server at baseURL.
func NewHTTPSubmitter(baseURL string, opts ...SubmitterOption) *HTTPSubmitter {
	s := &HTTPSubmitter{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Joining happens synchronously on the server.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type uploadResponse struct {
	Result *cloudinary.Asset `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Submit streams files, in order, to the upload endpoint.
func (s *HTTPSubmitter) Submit(ctx context.Context, files []File) (*cloudinary.Asset, error) {
	if len(files) == 0 {
		return nil, ErrEmptySelection
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeParts(mw, files))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+UploadPath, pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("form: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("form: post upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("form: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		subErr := &SubmitError{Status: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			subErr.Message = er.Error
			subErr.Code = er.Code
		}
		return nil, subErr
	}

	var ur uploadResponse
	if err := json.Unmarshal(body, &ur); err != nil {
		return nil, fmt.Errorf("form: decode response: %w", err)
	}
	if ur.Result == nil {
		return nil, ErrEmptyResult
	}
	return ur.Result, nil
}

// writeParts writes one file part per selected file and closes mw.
func writeParts(mw *multipart.Writer, files []File) error {
	for _, f := range files {
		if err := writePart(mw, f); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writePart(mw *multipart.Writer, f File) error {
	src, err := os.Open(f.Path) // #nosec G304 - path is chosen by the user
	if err != nil {
		return fmt.Errorf("form: open %s: %w", f.Path, err)
	}
	defer func() { _ = src.Close() }()

	name := f.Name
	if name == "" {
		name = filepath.Base(f.Path)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, name))
	h.Set("Content-Type", "video/mp4")

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("form: create part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("form: write %s: %w", name, err)
	}
	return nil
}

// IsSubmitError reports whether err is a rejected upload.
func IsSubmitError(err error) bool {
	var se *SubmitError
	return errors.As(err, &se)
}
