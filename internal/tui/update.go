package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case SubmitDoneMsg:
		return m.handleSubmitDone(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "enter":
		if !m.Form.CanSubmit() {
			return m, nil
		}
		files, err := m.Form.Begin()
		if err != nil {
			return m, nil
		}
		return m, submitFiles(m.ctx, m.Submitter, files)
	}
	return m, nil
}

// handleSubmitDone resolves the outstanding submission.
func (m Model) handleSubmitDone(msg SubmitDoneMsg) (tea.Model, tea.Cmd) {
	m.Form.Resolve(msg.Result, msg.Err)
	return m, nil
}
