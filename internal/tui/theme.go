package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorPrimary   = lipgloss.Color("#2563EB")
	colorSecondary = lipgloss.Color("#06B6D4")
	colorSuccess   = lipgloss.Color("#22C55E")
	colorWarning   = lipgloss.Color("#EAB308")
	colorDanger    = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
)

var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorPrimary).
			Padding(0, 1)

	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1).
			Width(24)

	styleCardHot = styleCard.BorderForeground(colorDanger)

	styleLabel  = lipgloss.NewStyle().Foreground(colorMuted)
	styleValue  = lipgloss.NewStyle().Bold(true)
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary)
	styleFooter = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	styleSpark  = lipgloss.NewStyle().Foreground(colorSecondary)

	severityStyles = map[string]lipgloss.Style{
		"info":    lipgloss.NewStyle().Foreground(colorSecondary),
		"warning": lipgloss.NewStyle().Foreground(colorWarning),
		"error":   lipgloss.NewStyle().Foreground(colorDanger).Bold(true),
	}

	styleRunning = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleStopped = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
)
