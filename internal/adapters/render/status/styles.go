package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	name      lipgloss.Style
	detail    lipgloss.Style
	warning   lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	key       lipgloss.Style
	meta      lipgloss.Style
	badge     lipgloss.Style
	own       lipgloss.Style
	other     lipgloss.Style
	typing    lipgloss.Style
	healthy   lipgloss.Style
	degraded  lipgloss.Style
	connected lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		name:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		key:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		meta:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		badge:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("161")).Padding(0, 1),
		own:       lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		other:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		typing:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		healthy:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		degraded:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		connected: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
}
