package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/seat"
	"github.com/iliyamo/flight-seat-reservation/internal/seatgrid"
)

// seatGlyph is the text drawn for a seat in each visual state.
func seatGlyph(st seatgrid.VisualState) string {
	switch st {
	case seatgrid.LocallySelected:
		return "[*]"
	case seatgrid.BeingConfirmed:
		return "[~]"
	case seatgrid.ConfirmedMine:
		return "[#]"
	case seatgrid.HeldByOther:
		return "[h]"
	case seatgrid.ConfirmedByOther:
		return "[x]"
	case seatgrid.LockedOut:
		return "[-]"
	default:
		return "[ ]"
	}
}

// FormatCountdown renders the time left as mm:ss, clamped at zero.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	s := m.snap

	b.WriteString(TitleStyle.Render("Flight "+s.FlightID) + "  " +
		SubtitleStyle.Render("order "+s.OrderID) + "\n")
	phase := s.Phase
	if phase == "" {
		phase = "unknown"
	}
	b.WriteString(SubtitleStyle.Render("phase: "+phase) + "\n\n")

	b.WriteString(BoxStyle.Render(m.renderCabin()) + "\n")
	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(renderLegend() + "\n")
	b.WriteString(HelpStyle.Render("arrows/hjkl move · space toggle · enter confirm seats · p confirm order · q quit"))
	return b.String()
}

func (m Model) renderCabin() string {
	s := m.snap
	states := make(map[seat.ID]seatgrid.VisualState, len(s.Seats))
	for _, v := range s.Seats {
		states[v.ID] = v.State
	}

	var b strings.Builder
	b.WriteString("    ")
	for col := 1; col <= s.Layout.Cols; col++ {
		b.WriteString(" " + string(rune('A'+col-1)) + " ")
	}
	b.WriteString("\n")
	for row := 1; row <= s.Layout.Rows; row++ {
		fmt.Fprintf(&b, "%3d ", row)
		for col := 1; col <= s.Layout.Cols; col++ {
			id := seat.ID{Row: row, Col: col}
			st := states[id]
			style := seatStyle(st)
			if id == m.cursor {
				style = style.Reverse(true)
			}
			b.WriteString(style.Render(seatGlyph(st)))
		}
		if row < s.Layout.Rows {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderStatus() string {
	s := m.snap
	parts := []string{fmt.Sprintf("%d seat(s) selected", len(s.Selected))}
	if s.HasUnconfirmedChanges {
		parts = append(parts, WarningStyle.Render("● unconfirmed changes"))
	}
	switch s.Gate {
	case seatgrid.Idle:
		if s.Locked {
			parts = append(parts, SubtitleStyle.Render("locked"))
		}
	default:
		parts = append(parts, m.spinner.View()+" "+s.Gate.String())
	}
	if !s.HoldExpiresAt.IsZero() && !s.Locked {
		left := s.HoldExpiresAt.Sub(m.now)
		style := SuccessStyle
		if left < time.Minute {
			style = WarningStyle
		}
		parts = append(parts, style.Render("hold "+FormatCountdown(left)))
	}

	line := strings.Join(parts, "  ")
	switch {
	case m.err != nil:
		line += "\n" + ErrorStyle.Render(m.err.Error())
	case m.status != "":
		line += "\n" + SubtitleStyle.Render(m.status)
	}
	return line
}

func renderLegend() string {
	entries := []seatgrid.VisualState{
		seatgrid.Available, seatgrid.LocallySelected, seatgrid.BeingConfirmed,
		seatgrid.ConfirmedMine, seatgrid.HeldByOther, seatgrid.ConfirmedByOther,
	}
	cells := make([]string, 0, len(entries))
	for _, st := range entries {
		cells = append(cells, seatStyle(st).Render(seatGlyph(st))+" "+st.String())
	}
	return strings.Join(cells, "  ")
}
