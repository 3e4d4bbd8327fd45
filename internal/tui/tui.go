// Package tui holds the interactive screens of fieldops: the sheet browser,
// the create-sheet wizard and the activity timer.
package tui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/models"
)

// programSender lets placeholders created before the program starts send
// into it once it runs.
type programSender struct {
	p atomic.Pointer[tea.Program]
}

func (s *programSender) Send(msg tea.Msg) {
	if p := s.p.Load(); p != nil {
		p.Send(msg)
	}
}

// RunBrowser runs the sheet browser until the user quits or logs out and
// returns the final state.
func RunBrowser(st app.State, opts BrowserOptions) (app.State, error) {
	sender := &programSender{}
	opts.Sender = sender
	p := tea.NewProgram(NewBrowserModel(st, opts), tea.WithAltScreen())
	sender.p.Store(p)

	final, err := p.Run()
	if err != nil {
		return st, err
	}
	if m, ok := final.(BrowserModel); ok {
		return m.State(), nil
	}
	return st, nil
}

// RunCreateSheet runs the wizard on its own. ok is false when the user left
// without saving.
func RunCreateSheet(prefill string, worksheets []models.Worksheet) (req api.CreateSheetRequest, ok bool, err error) {
	p := tea.NewProgram(NewCreateSheetModel(prefill, worksheets), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return api.CreateSheetRequest{}, false, err
	}
	m, isWizard := final.(CreateSheetModel)
	if !isWizard || !m.Completed() {
		return api.CreateSheetRequest{}, false, nil
	}
	return m.Request(), true, nil
}

// RunActivityTimer shows the live clock of a running activity. stop is true
// when the user asked to stop it.
func RunActivityTimer(activity models.TrackedActivity, title string) (stop bool, elapsed time.Duration, err error) {
	p := tea.NewProgram(NewActivityTimerModel(activity, title, time.Now), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return false, 0, err
	}
	m, ok := final.(ActivityTimerModel)
	if !ok {
		return false, 0, nil
	}
	return m.Stopping(), m.Elapsed(), nil
}
