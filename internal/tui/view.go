package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Video Join"))
	b.WriteString("\n")
	if m.ServerURL != "" {
		b.WriteString(InfoStyle.Render("Server: " + m.ServerURL))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if result, ok := m.Form.Result(); ok {
		b.WriteString(StatusStyle.Render("Joined video ready"))
		b.WriteString("\n\n")
		b.WriteString(BoxStyle.Render(result.SecureURL))
		b.WriteString("\n\n")
		b.WriteString(HighlightStyle.Render("Press 'q' or Ctrl+C to exit"))
		return b.String()
	}

	selection := m.Form.Selection()
	if len(selection) == 0 {
		b.WriteString(InfoStyle.Render("No videos selected"))
		b.WriteString("\n\n")
	} else {
		var list strings.Builder
		for i, f := range selection {
			if i > 0 {
				list.WriteString("\n")
			}
			fmt.Fprintf(&list, "%d. %s", i+1, f.Name)
		}
		b.WriteString(BoxStyle.Render(list.String()))
		b.WriteString("\n\n")
	}

	switch {
	case m.Form.Loading():
		b.WriteString(StatusStyle.Render(fmt.Sprintf("Uploading %d videos...", len(selection))))
	case m.Form.CanSubmit():
		b.WriteString(InfoStyle.Render("Press Enter to upload | Press 'q' or Ctrl+C to quit"))
	default:
		b.WriteString(InfoStyle.Render("Press 'q' or Ctrl+C to quit"))
	}

	return b.String()
}
