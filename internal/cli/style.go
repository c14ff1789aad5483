package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"pillar/internal/entity"
)

// styles colors status and priority labels. Colors are only applied when
// stdout is a terminal and NO_COLOR is unset, so piped output stays plain.
type styles struct {
	enabled  bool
	header   lipgloss.Style
	dim      lipgloss.Style
	status   map[entity.Status]lipgloss.Style
	priority map[entity.Priority]lipgloss.Style
}

func newStyles(out io.Writer, env map[string]string) *styles {
	enabled := false

	if file, ok := out.(*os.File); ok {
		enabled = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
	}

	if _, noColor := env["NO_COLOR"]; noColor {
		enabled = false
	}

	return &styles{
		enabled: enabled,
		header:  lipgloss.NewStyle().Bold(true),
		dim:     lipgloss.NewStyle().Faint(true),
		status: map[entity.Status]lipgloss.Style{
			entity.StatusBacklog:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			entity.StatusTodo:       lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
			entity.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
			entity.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
			entity.StatusCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		},
		priority: map[entity.Priority]lipgloss.Style{
			entity.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			entity.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
			entity.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
			entity.PriorityUrgent: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

// Status styles an already-padded status cell.
func (s *styles) Status(text string, status entity.Status) string {
	if !s.enabled {
		return text
	}

	return s.status[status].Render(text)
}

// Priority styles an already-padded priority cell.
func (s *styles) Priority(text string, priority entity.Priority) string {
	if !s.enabled {
		return text
	}

	return s.priority[priority].Render(text)
}

// Header styles a section or column header.
func (s *styles) Header(text string) string {
	if !s.enabled {
		return text
	}

	return s.header.Render(text)
}

// Dim styles secondary text like timestamps.
func (s *styles) Dim(text string) string {
	if !s.enabled {
		return text
	}

	return s.dim.Render(text)
}
