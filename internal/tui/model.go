// Package tui renders the upload form in the terminal.
package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maauso/videojoin/internal/form"
)

// Model is the bubbletea model wrapping the upload form.
type Model struct {
	// Form owns the selection and submission state.
	Form *form.Form
	// Submitter sends the selection to the server.
	Submitter form.Submitter
	// ServerURL is shown in the header.
	ServerURL string

	ctx context.Context
}

// NewModel creates a model with files as the initial selection.
func NewModel(ctx context.Context, sub form.Submitter, serverURL string, files []form.File, logger *slog.Logger) (Model, error) {
	f := form.New(logger)
	if err := f.Select(files); err != nil {
		return Model{}, err
	}
	return Model{
		Form:      f,
		Submitter: sub,
		ServerURL: serverURL,
		ctx:       ctx,
	}, nil
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return nil
}
