// Package form implements the upload form: a three-state machine that
// collects an ordered file selection, submits it once, and ends with the
// joined video.
package form

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/maauso/videojoin/internal/cloudinary"
)

// Static errors for form transitions.
var (
	// ErrSubmitting is returned when the form is busy with a submission.
	ErrSubmitting = errors.New("form: submission in progress")
	// ErrDone is returned when the form already holds a result.
	ErrDone = errors.New("form: already completed")
	// ErrEmptySelection is returned when submitting with no files selected.
	ErrEmptySelection = errors.New("form: no files selected")
	// ErrEmptyResult is returned when a submission yields neither result nor error.
	ErrEmptyResult = errors.New("form: submission returned no result")
)

// File is one selected video.
type File struct {
	// Name is the file name sent with the upload.
	Name string
	// Path is where the file is read from.
	Path string
}

// State is one of Idle, Submitting or Done.
type State interface {
	isState()
}

// Idle accepts a new selection or a submission.
type Idle struct {
	Selection []File
}

// Submitting holds the selection being uploaded.
type Submitting struct {
	Selection []File
}

// Done holds the joined video.
type Done struct {
	Result *cloudinary.Asset
}

func (Idle) isState()       {}
func (Submitting) isState() {}
func (Done) isState()       {}

// Submitter uploads a selection and returns the joined video.
type Submitter interface {
	Submit(ctx context.Context, files []File) (*cloudinary.Asset, error)
}

// Form is the upload form state machine. It is not safe for concurrent
// use; a single goroutine owns it.
type Form struct {
	state  State
	logger *slog.Logger
}

// New returns a form in the Idle state with an empty selection.
func New(logger *slog.Logger) *Form {
	if logger == nil {
		logger = slog.Default()
	}
	return &Form{state: Idle{}, logger: logger}
}

// State returns the current state.
func (f *Form) State() State {
	return f.state
}

// Selection returns the selected files, or nil once done.
func (f *Form) Selection() []File {
	switch s := f.state.(type) {
	case Idle:
		return s.Selection
	case Submitting:
		return s.Selection
	default:
		return nil
	}
}

// Result returns the joined video once done.
func (f *Form) Result() (*cloudinary.Asset, bool) {
	d, ok := f.state.(Done)
	if !ok {
		return nil, false
	}
	return d.Result, true
}

// Loading reports whether a submission is outstanding.
func (f *Form) Loading() bool {
	_, ok := f.state.(Submitting)
	return ok
}

// CanSubmit reports whether the submit action is enabled.
func (f *Form) CanSubmit() bool {
	s, ok := f.state.(Idle)
	return ok && len(s.Selection) > 0
}

// Select replaces the current selection.
func (f *Form) Select(files []File) error {
	switch f.state.(type) {
	case Submitting:
		return ErrSubmitting
	case Done:
		return ErrDone
	}
	f.state = Idle{Selection: slices.Clone(files)}
	return nil
}

// Begin moves an Idle form with a non-empty selection to Submitting and
// returns the selection in the order it was made.
func (f *Form) Begin() ([]File, error) {
	switch s := f.state.(type) {
	case Submitting:
		return nil, ErrSubmitting
	case Done:
		return nil, ErrDone
	case Idle:
		if len(s.Selection) == 0 {
			return nil, ErrEmptySelection
		}
		f.state = Submitting(s)
		return slices.Clone(s.Selection), nil
	default:
		return nil, ErrEmptySelection
	}
}

// Resolve ends a submission. A result moves the form to Done; an error is
// logged and the form returns to Idle with its selection intact. Calls
// outside Submitting are ignored.
func (f *Form) Resolve(result *cloudinary.Asset, err error) {
	s, ok := f.state.(Submitting)
	if !ok {
		return
	}

	if err == nil && result == nil {
		err = ErrEmptyResult
	}
	if err != nil {
		f.logger.Error("upload failed",
			slog.Int("files", len(s.Selection)),
			slog.String("error", err.Error()),
		)
		f.state = Idle(s)
		return
	}

	f.logger.Info("upload complete",
		slog.String("public_id", result.PublicID),
		slog.String("secure_url", result.SecureURL),
	)
	f.state = Done{Result: result}
}

// Submit runs one full submission through sub. The form always leaves
// Submitting before Submit returns, whatever the outcome.
func (f *Form) Submit(ctx context.Context, sub Submitter) (err error) {
	files, err := f.Begin()
	if err != nil {
		return err
	}

	var result *cloudinary.Asset
	defer func() {
		if r := recover(); r != nil {
			f.Resolve(nil, errors.New("form: submitter panicked"))
			panic(r)
		}
		f.Resolve(result, err)
	}()

	result, err = sub.Submit(ctx, files)
	return err
}
