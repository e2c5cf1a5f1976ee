package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/foundry9/robonav/telemetry"
)

const (
	colSession  = 10
	colUser     = 14
	colPhase    = 22
	colPos      = 10
	colHeading  = 8
	colSteps    = 6
	colHits     = 6
	colRecharge = 6
	colTime     = 8
)

func header() string {
	return strings.Join([]string{
		padRight("SESSION", colSession),
		padRight("USER", colUser),
		padRight("PHASE", colPhase),
		padRight("POS", colPos),
		padRight("HEADING", colHeading),
		padLeft("STEPS", colSteps),
		padLeft("HITS", colHits),
		padRight("CHG", colRecharge),
		padRight("TIME", colTime),
	}, " ")
}

func renderSessionRow(ev telemetry.Event, selected bool) string {
	pos := "-"
	if ev.Position != nil {
		pos = fmt.Sprintf("%d,%d", ev.Position.X, ev.Position.Y)
	}
	heading := ev.Heading
	if heading == "" {
		heading = "-"
	}
	recharge := ""
	if ev.Recharging {
		recharge = "yes"
	}
	row := strings.Join([]string{
		padRight(truncate(ev.SessionID, colSession), colSession),
		padRight(truncate(ev.Username, colUser), colUser),
		padRight(ev.Phase, colPhase),
		padRight(pos, colPos),
		padRight(heading, colHeading),
		padLeft(fmt.Sprintf("%d", ev.StepsRemaining), colSteps),
		padLeft(fmt.Sprintf("%d", ev.ObstacleHits), colHits),
		padRight(recharge, colRecharge),
		padRight(formatTime(ev.Time), colTime),
	}, " ")

	style := lipgloss.NewStyle()
	if ev.Kind == telemetry.Obstacle {
		style = style.Foreground(lipgloss.Color("3"))
	}
	if ev.Kind == telemetry.Error {
		style = style.Foreground(lipgloss.Color("1"))
	}
	if selected {
		style = style.Reverse(true)
	}
	return style.Render(row)
}

// renderList draws a bordered, titled box listing every live session,
// scrolled so the cursor row stays visible within maxRows.
func (m Model) renderList(maxRows int) string {
	var b strings.Builder
	b.WriteString(header())
	b.WriteString("\n")

	if len(m.order) == 0 {
		b.WriteString("(no active sessions)")
	}

	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}
	end := start + maxRows
	if end > len(m.order) {
		end = len(m.order)
	}

	for i := start; i < end; i++ {
		id := m.order[i]
		ev, ok := m.sessions[id]
		if !ok {
			continue
		}
		b.WriteString(renderSessionRow(ev, i == m.cursor))
		b.WriteString("\n")
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	title := " robonav sessions "
	rendered := box.Render(strings.TrimRight(b.String(), "\n"))
	return spliceTitle(rendered, title)
}

// spliceTitle overwrites the top border of rendered with title, matching
// the dashboard's bordered-box convention.
func spliceTitle(rendered, title string) string {
	lines := strings.SplitN(rendered, "\n", 2)
	if len(lines) == 0 {
		return rendered
	}
	top := lines[0]
	if len([]rune(top)) < len(title)+2 {
		return rendered
	}
	runes := []rune(top)
	copy(runes[2:2+len([]rune(title))], []rune(title))
	lines[0] = string(runes)
	return strings.Join(lines, "\n")
}
