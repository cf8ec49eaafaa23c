package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"pkt.systems/webchat/schema"
)

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	danger  lipgloss.Style
	info    lipgloss.Style
}

// Dracula palette.
func defaultStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9")),
		label:   lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("#6272a4")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#f1fa8c")),
		danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd")),
	}
}

func (s styles) stateStyle(state schema.ConsumerState) lipgloss.Style {
	switch state {
	case schema.ConsumerReady:
		return s.success
	case schema.ConsumerOpening:
		return s.warning
	case schema.ConsumerClosed:
		return s.danger
	default:
		return s.info
	}
}
