package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maauso/videojoin/internal/form"
)

// submitFiles creates a command that uploads files and reports the outcome.
func submitFiles(ctx context.Context, sub form.Submitter, files []form.File) tea.Cmd {
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = SubmitDoneMsg{Err: fmt.Errorf("submit panicked: %v", r)}
			}
		}()
		result, err := sub.Submit(ctx, files)
		return SubmitDoneMsg{Result: result, Err: err}
	}
}
