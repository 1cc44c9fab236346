package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/iliyamo/flight-seat-reservation/internal/seatgrid"
)

var (
	colorAccent  = lipgloss.Color("#3B82F6")
	colorWhite   = lipgloss.Color("#FFFFFF")
	colorDim     = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#374151")
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	SubtitleStyle = lipgloss.NewStyle().Foreground(colorDim)
	HelpStyle     = lipgloss.NewStyle().Foreground(colorDim)
	ErrorStyle    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	SuccessStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	SpinnerStyle  = lipgloss.NewStyle().Foreground(colorAccent)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// seatStyles colours every visual state of a seat.
var seatStyles = map[seatgrid.VisualState]lipgloss.Style{
	seatgrid.Available:        lipgloss.NewStyle().Foreground(colorWhite),
	seatgrid.LocallySelected:  lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
	seatgrid.BeingConfirmed:   lipgloss.NewStyle().Foreground(colorWarning).Bold(true),
	seatgrid.ConfirmedMine:    lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
	seatgrid.HeldByOther:      lipgloss.NewStyle().Foreground(colorWarning).Faint(true),
	seatgrid.ConfirmedByOther: lipgloss.NewStyle().Foreground(colorError).Faint(true),
	seatgrid.LockedOut:        lipgloss.NewStyle().Foreground(colorMuted),
}

func seatStyle(st seatgrid.VisualState) lipgloss.Style {
	if s, ok := seatStyles[st]; ok {
		return s
	}
	return seatStyles[seatgrid.Available]
}
