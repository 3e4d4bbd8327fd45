package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/parser"
)

// ActivityTimerModel shows the live clock of a running activity.
type ActivityTimerModel struct {
	width    int
	height   int
	activity models.TrackedActivity
	title    string // sheet or operation label shown above the clock
	now      func() time.Time

	elapsed time.Duration
	frame   int

	stopping bool // s pressed: caller stops the activity
	exiting  bool // q/esc: leave it running
}

type timerTickMsg struct{}

// NewActivityTimerModel starts the clock at activity.StartedAt.
func NewActivityTimerModel(activity models.TrackedActivity, title string, now func() time.Time) ActivityTimerModel {
	if now == nil {
		now = time.Now
	}
	return ActivityTimerModel{
		activity: activity,
		title:    title,
		now:      now,
		elapsed:  elapsedSince(activity.StartedAt, now()),
	}
}

// Stopping reports whether the user asked to stop the activity.
func (m ActivityTimerModel) Stopping() bool { return m.stopping }

// Elapsed is the time shown on the clock.
func (m ActivityTimerModel) Elapsed() time.Duration { return m.elapsed }

func elapsedSince(start, now time.Time) time.Duration {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	return now.Sub(start).Truncate(time.Second)
}

func timerTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return timerTickMsg{} })
}

func (m ActivityTimerModel) Init() tea.Cmd {
	return timerTick()
}

func (m ActivityTimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		m.elapsed = elapsedSince(m.activity.StartedAt, m.now())
		m.frame = (m.frame + 1) % 2
		if m.stopping || m.exiting {
			return m, nil
		}
		return m, timerTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "s", "S":
			m.stopping = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.exiting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ActivityTimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	center := lipgloss.NewStyle().Align(lipgloss.Center).Width(m.width)

	marker := "●"
	if m.frame == 1 {
		marker = "○"
	}
	header := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
	parts := []string{
		center.Render(header.Render(fmt.Sprintf("%s  ACTIVITY RUNNING  %s", marker, marker))),
		center.Render(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText)).Bold(true).Render(m.title)),
		center.Render(renderClock(m.elapsed)),
	}

	info := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true)
	lines := []string{
		fmt.Sprintf("activity %s · operation %s", m.activity.ActivityID, m.activity.OperationExecutionID),
		fmt.Sprintf("started %s (%s)", m.activity.StartedAt.Local().Format("15:04:05"), parser.FormatMinutes(int64(m.elapsed/time.Minute))),
	}
	for _, l := range lines {
		parts = append(parts, center.Render(info.Render(l)))
	}

	body := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(parts, "\n\n"))

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render("s stop activity · esc/q leave it running")

	return lipgloss.JoinVertical(lipgloss.Left, body, help)
}

// clockGlyphs draws digits three cells wide and three rows high.
var clockGlyphs = map[rune][3]string{
	'0': {"┌─┐", "│ │", "└─┘"},
	'1': {"  ╷", "  │", "  ╵"},
	'2': {"╶─┐", "┌─┘", "└─╴"},
	'3': {"╶─┐", " ─┤", "╶─┘"},
	'4': {"╷ ╷", "└─┤", "  ╵"},
	'5': {"┌─╴", "└─┐", "╶─┘"},
	'6': {"┌─╴", "├─┐", "└─┘"},
	'7': {"╶─┐", "  │", "  ╵"},
	'8': {"┌─┐", "├─┤", "└─┘"},
	'9': {"┌─┐", "└─┤", "╶─┘"},
	':': {" ", "∙", "∙"},
}

// renderClock prints hh:mm:ss, or mm:ss under an hour, in the large font.
func renderClock(d time.Duration) string {
	h := int(d.Hours())
	mnt := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	text := fmt.Sprintf("%02d:%02d", mnt, s)
	if h > 0 {
		text = fmt.Sprintf("%02d:%02d:%02d", h, mnt, s)
	}

	var rows [3]strings.Builder
	for _, r := range text {
		g := clockGlyphs[r]
		for i := range rows {
			rows[i].WriteString(g[i])
			rows[i].WriteString(" ")
		}
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = style.Render(rows[i].String())
	}
	return strings.Join(out, "\n")
}
