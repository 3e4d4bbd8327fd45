package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/models"
)

func TestWizardPrefillFromQuickEntry(t *testing.T) {
	m := NewCreateSheetModel("Poda de inverno @ws-12 | vinha norte", nil)
	require.Equal(t, api.CreateSheetRequest{
		Title:                 "Poda de inverno",
		Description:           "vinha norte",
		AssociatedWorkSheetID: "ws-12",
	}, m.Request())
}

func TestWizardRequiresTitleAndWorksheet(t *testing.T) {
	var tm tea.Model = NewCreateSheetModel("", []models.Worksheet{{ID: "ws-1"}, {ID: "ws-2"}})

	tm, _ = tm.Update(key("enter"))
	require.Equal(t, StepTitle, tm.(CreateSheetModel).currentStep)
	require.Equal(t, "Sheet title is required", tm.(CreateSheetModel).validationErr)

	tm = typeText(tm, "Rega")
	tm, _ = tm.Update(key("enter"))
	require.Equal(t, StepWorksheet, tm.(CreateSheetModel).currentStep)

	tm, _ = tm.Update(key("enter"))
	require.Equal(t, "A worksheet is required", tm.(CreateSheetModel).validationErr)

	tm = typeText(tm, "7")
	tm, _ = tm.Update(key("enter"))
	require.Equal(t, "Pick a worksheet between 1 and 2", tm.(CreateSheetModel).validationErr)
}

func TestWizardStandaloneSaveQuits(t *testing.T) {
	var tm tea.Model = NewCreateSheetModel("Rega @ws-2", []models.Worksheet{{ID: "ws-1"}, {ID: "ws-2"}})
	tm, _ = tm.Update(key("enter"))
	tm, _ = tm.Update(key("enter"))
	tm, _ = tm.Update(key("enter"))
	require.Equal(t, StepSave, tm.(CreateSheetModel).currentStep)

	tm, cmd := tm.Update(key("enter"))
	require.True(t, tm.(CreateSheetModel).Completed())
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Equal(t, "ws-2", tm.(CreateSheetModel).Request().AssociatedWorkSheetID)
}

func TestWizardEscAsksBeforeDiscarding(t *testing.T) {
	var tm tea.Model = NewCreateSheetModel("", nil)
	tm, cmd := tm.Update(key("esc"))
	require.True(t, tm.(CreateSheetModel).Cancelled())
	require.IsType(t, tea.QuitMsg{}, cmd())

	tm = NewCreateSheetModel("Rega @ws-1", nil)
	tm, _ = tm.Update(key("esc"))
	require.True(t, tm.(CreateSheetModel).showSaveModal)
	tm, _ = tm.Update(key("n"))
	require.True(t, tm.(CreateSheetModel).Cancelled())
	require.False(t, tm.(CreateSheetModel).Completed())
}
