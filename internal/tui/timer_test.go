package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/trailblaze/fieldops/internal/models"
)

func TestTimerTracksElapsedTime(t *testing.T) {
	now := testNow
	clock := func() time.Time { return now }
	act := models.TrackedActivity{ActivityID: "act-1", OperationExecutionID: "op-1", StartedAt: testNow.Add(-90 * time.Second)}

	var tm tea.Model = NewActivityTimerModel(act, "Poda", clock)
	require.Equal(t, 90*time.Second, tm.(ActivityTimerModel).Elapsed())

	now = now.Add(time.Hour)
	tm, cmd := tm.Update(timerTickMsg{})
	require.NotNil(t, cmd)
	require.Equal(t, time.Hour+90*time.Second, tm.(ActivityTimerModel).Elapsed())

	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	require.Contains(t, tm.(ActivityTimerModel).View(), "act-1")
}

func TestTimerStopAndLeave(t *testing.T) {
	act := models.TrackedActivity{ActivityID: "act-1", StartedAt: testNow}
	clock := func() time.Time { return testNow }

	tm, cmd := NewActivityTimerModel(act, "", clock).Update(key("s"))
	require.True(t, tm.(ActivityTimerModel).Stopping())
	require.IsType(t, tea.QuitMsg{}, cmd())

	tm, _ = NewActivityTimerModel(act, "", clock).Update(key("q"))
	require.False(t, tm.(ActivityTimerModel).Stopping())
	tm, cmd = tm.Update(timerTickMsg{})
	require.Nil(t, cmd)
}

func TestRenderClock(t *testing.T) {
	short := renderClock(75 * time.Second)
	require.Len(t, splitLines(short), 3)
	require.Contains(t, short, "┌─┐")

	require.Equal(t, 0*time.Second, elapsedSince(testNow, testNow.Add(-time.Minute)))
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
