package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/parser"
)

// Step is the current step of the create-sheet wizard
type Step int

const (
	StepTitle Step = iota
	StepWorksheet
	StepDescription
	StepSave
)

var stepLabels = []string{"Title", "Worksheet", "Description", "Save"}

// wizardDoneMsg is emitted by an embedded wizard when it closes.
type wizardDoneMsg struct {
	Request   api.CreateSheetRequest
	Cancelled bool
}

// CreateSheetModel walks through the fields of a new execution sheet.
type CreateSheetModel struct {
	currentStep Step
	inputs      []textinput.Model
	width       int
	height      int

	worksheets []models.Worksheet // offered as numbered choices

	validationErr string
	completed     bool
	cancelled     bool
	embedded      bool // send wizardDoneMsg instead of quitting

	showSaveModal   bool
	saveModalChoice bool // true for Yes
}

// NewCreateSheetModel builds the wizard. prefill uses the quick-entry syntax
// "Title @worksheet | description".
func NewCreateSheetModel(prefill string, worksheets []models.Worksheet) CreateSheetModel {
	inputs := make([]textinput.Model, 3)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 60
		inputs[i].TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
		inputs[i].PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
		inputs[i].Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	}
	inputs[StepTitle].Placeholder = "Sheet title (required)"
	inputs[StepTitle].CharLimit = 200
	inputs[StepTitle].Focus()

	inputs[StepWorksheet].Placeholder = "Worksheet id, or its number in the list (required)"
	inputs[StepWorksheet].CharLimit = 64

	inputs[StepDescription].Placeholder = "Description (Enter to skip)"
	inputs[StepDescription].CharLimit = 500

	if strings.TrimSpace(prefill) != "" {
		parsed := parser.ParseSheetInput(prefill)
		inputs[StepTitle].SetValue(parsed.Title)
		inputs[StepWorksheet].SetValue(parsed.WorksheetID)
		inputs[StepDescription].SetValue(parsed.Description)
	}

	return CreateSheetModel{
		currentStep: StepTitle,
		inputs:      inputs,
		worksheets:  worksheets,
	}
}

// Request is the sheet as entered so far. A numbered worksheet choice is
// resolved to its id.
func (m CreateSheetModel) Request() api.CreateSheetRequest {
	return api.CreateSheetRequest{
		Title:                 strings.TrimSpace(m.inputs[StepTitle].Value()),
		Description:           strings.TrimSpace(m.inputs[StepDescription].Value()),
		AssociatedWorkSheetID: m.worksheetID(),
	}
}

// Completed reports whether the user saved.
func (m CreateSheetModel) Completed() bool { return m.completed }

// Cancelled reports whether the user left without saving.
func (m CreateSheetModel) Cancelled() bool { return m.cancelled }

func (m CreateSheetModel) worksheetID() string {
	raw := strings.TrimSpace(m.inputs[StepWorksheet].Value())
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(m.worksheets) {
		return m.worksheets[n-1].ID
	}
	return raw
}

func (m CreateSheetModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m CreateSheetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := m.width*2/3 - 10
		if w < 30 {
			w = 30
		}
		if w > 80 {
			w = 80
		}
		for i := range m.inputs {
			m.inputs[i].Width = w
		}
		return m, nil

	case tea.KeyMsg:
		if m.showSaveModal {
			switch msg.String() {
			case "left", "right":
				m.saveModalChoice = !m.saveModalChoice
				return m, nil
			case "y", "Y":
				m.saveModalChoice = true
				return m.handleSaveChoice()
			case "n", "N":
				m.saveModalChoice = false
				return m.handleSaveChoice()
			case "enter":
				return m.handleSaveChoice()
			case "esc":
				m.showSaveModal = false
				return m, nil
			case "ctrl+c":
				return m.cancel()
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			return m.cancel()
		case "esc":
			if m.currentStep == StepSave {
				return m.prevStep()
			}
			if !m.hasChanges() {
				return m.cancel()
			}
			m.showSaveModal = true
			m.saveModalChoice = true
			return m, nil
		case "enter":
			return m.handleEnter()
		case "tab", "down":
			if err := m.validateStep(m.currentStep); err != "" {
				m.validationErr = err
				return m, nil
			}
			return m.nextStep()
		case "shift+tab", "up":
			return m.prevStep()
		}
	}

	var cmd tea.Cmd
	if m.currentStep < StepSave {
		m.inputs[m.currentStep], cmd = m.inputs[m.currentStep].Update(msg)
	}
	return m, cmd
}

func (m CreateSheetModel) hasChanges() bool {
	for _, in := range m.inputs {
		if strings.TrimSpace(in.Value()) != "" {
			return true
		}
	}
	return false
}

// validateStep returns the message blocking the step, or "".
func (m CreateSheetModel) validateStep(step Step) string {
	switch step {
	case StepTitle:
		if strings.TrimSpace(m.inputs[StepTitle].Value()) == "" {
			return "Sheet title is required"
		}
	case StepWorksheet:
		raw := strings.TrimSpace(m.inputs[StepWorksheet].Value())
		if raw == "" {
			return "A worksheet is required"
		}
		if n, err := strconv.Atoi(raw); err == nil && len(m.worksheets) > 0 && (n < 1 || n > len(m.worksheets)) {
			if !m.knownWorksheet(raw) {
				return fmt.Sprintf("Pick a worksheet between 1 and %d", len(m.worksheets))
			}
		}
	}
	return ""
}

func (m CreateSheetModel) knownWorksheet(id string) bool {
	for _, ws := range m.worksheets {
		if ws.ID == id {
			return true
		}
	}
	return false
}

func (m CreateSheetModel) handleEnter() (CreateSheetModel, tea.Cmd) {
	m.validationErr = ""
	if m.currentStep == StepSave {
		return m.save()
	}
	if err := m.validateStep(m.currentStep); err != "" {
		m.validationErr = err
		return m, nil
	}
	return m.nextStep()
}

func (m CreateSheetModel) nextStep() (CreateSheetModel, tea.Cmd) {
	m.validationErr = ""
	if m.currentStep < StepSave {
		m.inputs[m.currentStep].Blur()
		m.currentStep++
		if m.currentStep < StepSave {
			m.inputs[m.currentStep].Focus()
		}
	}
	return m, textinput.Blink
}

func (m CreateSheetModel) prevStep() (CreateSheetModel, tea.Cmd) {
	if m.currentStep > StepTitle {
		if m.currentStep < StepSave {
			m.inputs[m.currentStep].Blur()
		}
		m.currentStep--
		m.inputs[m.currentStep].Focus()
	}
	return m, textinput.Blink
}

func (m CreateSheetModel) save() (CreateSheetModel, tea.Cmd) {
	if err := m.Request().Validate(); err != nil {
		m.validationErr = api.UserMessage(err)
		return m, nil
	}
	m.completed = true
	return m, m.finish()
}

func (m CreateSheetModel) cancel() (CreateSheetModel, tea.Cmd) {
	m.cancelled = true
	return m, m.finish()
}

func (m CreateSheetModel) finish() tea.Cmd {
	if !m.embedded {
		return tea.Quit
	}
	done := wizardDoneMsg{Request: m.Request(), Cancelled: m.cancelled}
	return func() tea.Msg { return done }
}

func (m CreateSheetModel) handleSaveChoice() (CreateSheetModel, tea.Cmd) {
	m.showSaveModal = false
	if m.saveModalChoice {
		return m.save()
	}
	return m.cancel()
}

func (m CreateSheetModel) View() string {
	if m.cancelled || m.completed {
		return ""
	}
	var b strings.Builder

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright))
	b.WriteString(header.Render("🌱 New execution sheet"))
	b.WriteString("\n\n")

	for i, label := range stepLabels {
		step := Step(i)
		marker := "  "
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
		if step == m.currentStep {
			marker = "▸ "
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
		}
		b.WriteString(style.Render(marker + label))
		b.WriteString("\n")
		if step < StepSave {
			b.WriteString("  " + m.inputs[step].View() + "\n")
		}
	}

	if m.currentStep == StepWorksheet && len(m.worksheets) > 0 {
		b.WriteString("\n")
		hint := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
		for i, ws := range m.worksheets {
			line := fmt.Sprintf("  %d. %s", i+1, ws.ID)
			if ws.Title != "" {
				line += " · " + ws.Title
			}
			b.WriteString(hint.Render(line) + "\n")
		}
	}

	if m.currentStep == StepSave {
		req := m.Request()
		preview := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorAccentMain)).
			Padding(0, 1)
		b.WriteString("\n")
		b.WriteString(preview.Render(fmt.Sprintf("%s\nworksheet %s\n%s", req.Title, req.AssociatedWorkSheetID, req.Description)))
		b.WriteString("\n")
	}

	if m.validationErr != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("⚠ " + m.validationErr))
	}

	b.WriteString("\n\n")
	help := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Italic(true)
	b.WriteString(help.Render("enter next/save · tab/shift+tab move · esc leave"))

	view := b.String()
	if m.showSaveModal {
		return m.renderSaveModal()
	}
	return view
}

func (m CreateSheetModel) renderSaveModal() string {
	yes := lipgloss.NewStyle().Padding(0, 2)
	no := lipgloss.NewStyle().Padding(0, 2)
	if m.saveModalChoice {
		yes = yes.Background(lipgloss.Color(ColorAccentBright)).Foreground(lipgloss.Color("#000000")).Bold(true)
	} else {
		no = no.Background(lipgloss.Color(ColorError)).Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	}
	body := "Create this sheet?\n\n" +
		lipgloss.JoinHorizontal(lipgloss.Center, yes.Render("Yes"), "   ", no.Render("No")) +
		"\n\n← → or Y/N, Enter to confirm\nEsc to keep editing"

	modal := lipgloss.NewStyle().
		Width(50).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentBright)).
		Background(lipgloss.Color(ColorCardBackground)).
		Padding(1).
		Align(lipgloss.Center).
		Render(body)
	if m.width == 0 || m.height == 0 {
		return modal
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
