package tui

import "github.com/charmbracelet/lipgloss"

// Palette (ANSI 256).
const (
	colorAccent = lipgloss.Color("212")
	colorMuted  = lipgloss.Color("245")
	colorFaint  = lipgloss.Color("241")
	colorOK     = lipgloss.Color("78")
	colorWarn   = lipgloss.Color("214")
	colorError  = lipgloss.Color("196")
	colorUser   = lipgloss.Color("111")
	colorText   = lipgloss.Color("252")
	colorBar    = lipgloss.Color("236")
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	subtitleStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle      = lipgloss.NewStyle().Foreground(colorOK)
	warnStyle         = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle        = lipgloss.NewStyle().Foreground(colorError)
	dimStyle          = lipgloss.NewStyle().Foreground(colorFaint)
	userMsgStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorUser)
	assistantMsgStyle = lipgloss.NewStyle().Foreground(colorText)
	selectedStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorFaint).
			Background(colorBar).
			Padding(0, 1)
)
