package tui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/parser"
	"github.com/trailblaze/fieldops/internal/photos"
)

// Sender delivers messages into a running program; *tea.Program is one.
type Sender interface {
	Send(msg tea.Msg)
}

// BrowserOptions wires the browser to the rest of the client.
type BrowserOptions struct {
	Context              context.Context
	Dispatcher           *app.Dispatcher
	Photos               *photos.Scheduler // nil disables thumbnails
	Worksheets           func(ctx context.Context) ([]models.Worksheet, error)
	NotificationInterval time.Duration
	BannerTTL            time.Duration // how soon to re-check the banner
	Now                  func() time.Time
	Sender               Sender
}

// Mode is the screen the browser shows.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeWizard
)

type rowKind int

const (
	rowOperation rowKind = iota
	rowParcel
	rowActivity
)

// detailRow addresses one line of the detail screen.
type detailRow struct {
	kind     rowKind
	op       int
	parcel   int
	activity int
}

type actionResultMsg struct {
	action string
	state  app.State
	err    error
}

type notificationsMsg struct {
	notifications []models.Notification
	err           error
}

type notifyTickMsg struct{}

type bannerExpireMsg struct{}

type worksheetsMsg struct {
	worksheets []models.Worksheet
	err        error
}

// photoUpdatedMsg is sent by thumbnail placeholders when a load settles.
type photoUpdatedMsg struct {
	snap photos.Snapshot
}

// photoPlaceholder forwards scheduler callbacks into the program while the
// detail screen that created it is still open.
type photoPlaceholder struct {
	sender   Sender
	attached *atomic.Bool
}

func (p photoPlaceholder) Attached() bool { return p.attached.Load() && p.sender != nil }

func (p photoPlaceholder) ShowLoaded(s photos.Snapshot) { p.sender.Send(photoUpdatedMsg{snap: s}) }

func (p photoPlaceholder) ShowFailed(s photos.Snapshot) { p.sender.Send(photoUpdatedMsg{snap: s}) }

// BrowserModel is the interactive sheet browser.
type BrowserModel struct {
	opts  BrowserOptions
	state app.State
	mode  Mode

	width  int
	height int

	selected int
	row      int
	rows     []detailRow
	detail   app.SheetDetailView
	shown    *models.SheetDetail // sheet the detail rows were built from

	refs     map[string]*photos.PhotoRef
	attached *atomic.Bool

	busy          bool
	confirmDelete bool
	wizard        *CreateSheetModel
	shimmer       Shimmer
}

// NewBrowserModel starts on the list screen with st as the initial state.
func NewBrowserModel(st app.State, opts BrowserOptions) BrowserModel {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BannerTTL <= 0 {
		opts.BannerTTL = app.BannerTTL
	}
	return BrowserModel{
		opts:     opts,
		state:    st,
		refs:     map[string]*photos.PhotoRef{},
		attached: &atomic.Bool{},
		shimmer:  NewShimmer(DefaultShimmerConfig()),
	}
}

// State returns the application state held by the browser.
func (m BrowserModel) State() app.State { return m.state }

// Mode returns the current screen.
func (m BrowserModel) Mode() Mode { return m.mode }

func (m BrowserModel) Init() tea.Cmd {
	return tea.Batch(
		m.dispatch(app.ListSheets{Status: m.state.StatusFilter}),
		m.refreshNotifications(),
		m.notifyTick(),
		m.shimmer.Tick(),
	)
}

func (m BrowserModel) dispatch(a app.Action) tea.Cmd {
	d, ctx, st := m.opts.Dispatcher, m.opts.Context, m.state
	return func() tea.Msg {
		next, err := d.Dispatch(ctx, st, a)
		return actionResultMsg{action: a.Name(), state: next, err: err}
	}
}

// refreshNotifications runs outside the busy flag; only the list is merged back.
func (m BrowserModel) refreshNotifications() tea.Cmd {
	d, ctx, st := m.opts.Dispatcher, m.opts.Context, m.state
	return func() tea.Msg {
		next, err := d.Dispatch(ctx, st, app.RefreshNotifications{})
		return notificationsMsg{notifications: next.Notifications, err: err}
	}
}

func (m BrowserModel) notifyTick() tea.Cmd {
	if m.opts.NotificationInterval <= 0 {
		return nil
	}
	return tea.Tick(m.opts.NotificationInterval, func(time.Time) tea.Msg { return notifyTickMsg{} })
}

func (m BrowserModel) bannerExpire() tea.Cmd {
	return tea.Tick(m.opts.BannerTTL, func(time.Time) tea.Msg { return bannerExpireMsg{} })
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.wizard != nil {
			w, _ := m.wizard.Update(msg)
			wm := w.(CreateSheetModel)
			m.wizard = &wm
		}
		return m, nil

	case shimmerTickMsg:
		m.shimmer = m.shimmer.Advance()
		return m, m.shimmer.Tick()

	case actionResultMsg:
		return m.applyResult(msg)

	case notificationsMsg:
		if msg.err == nil {
			m.state.Notifications = msg.notifications
		}
		return m, nil

	case notifyTickMsg:
		if !m.state.Authenticated() {
			return m, nil
		}
		return m, tea.Batch(m.refreshNotifications(), m.notifyTick())

	case bannerExpireMsg:
		m.state = m.state.DismissExpired(m.opts.Now())
		return m, nil

	case photoUpdatedMsg:
		// refs hold the state; the message only triggers a redraw
		return m, nil

	case worksheetsMsg:
		if m.wizard != nil && msg.err == nil {
			m.wizard.worksheets = msg.worksheets
		}
		return m, nil

	case wizardDoneMsg:
		m.wizard = nil
		m.mode = ModeList
		if msg.Cancelled {
			return m, nil
		}
		m.busy = true
		return m, m.dispatch(app.CreateSheet{Request: msg.Request})

	case tea.KeyMsg:
		if m.mode == ModeWizard && m.wizard != nil {
			w, cmd := m.wizard.Update(msg)
			wm := w.(CreateSheetModel)
			m.wizard = &wm
			return m, cmd
		}
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.confirmDelete {
			return m.handleDeleteConfirm(msg)
		}
		if m.busy {
			return m, nil
		}
		if m.mode == ModeDetail {
			return m.handleDetailKeys(msg)
		}
		return m.handleListKeys(msg)
	}
	return m, nil
}

func (m BrowserModel) quit() (tea.Model, tea.Cmd) {
	m.attached.Store(false)
	return m, tea.Quit
}

func (m BrowserModel) applyResult(msg actionResultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.state = msg.state
	var cmds []tea.Cmd
	if m.state.Banner.Text != "" {
		cmds = append(cmds, m.bannerExpire())
	}
	if msg.action == app.ActionLogout {
		m.attached.Store(false)
		return m, tea.Quit
	}
	if m.selected >= len(m.state.Sheets) {
		m.selected = max(0, len(m.state.Sheets)-1)
	}

	switch {
	case m.state.CurrentSheet == nil && m.mode == ModeDetail:
		m.leaveDetail()
	case m.state.CurrentSheet != nil && m.state.CurrentSheet != m.shown:
		if msg.action == app.ActionViewSheet || m.mode == ModeDetail {
			m.mode = ModeDetail
			m.enterDetail()
		}
	}
	return m, tea.Batch(cmds...)
}

// enterDetail rebuilds the rows of the loaded sheet and schedules its
// thumbnails. Placeholders of the previous build are detached first; refs
// seen before are rebound to the new build and never loaded twice.
func (m *BrowserModel) enterDetail() {
	view, ok := app.BuildSheetDetail(m.state, m.opts.Now())
	if !ok {
		return
	}
	m.detail = view
	m.shown = m.state.CurrentSheet
	m.rows = nil
	for i, op := range view.Operations {
		m.rows = append(m.rows, detailRow{kind: rowOperation, op: i})
		for j, p := range op.Parcels {
			m.rows = append(m.rows, detailRow{kind: rowParcel, op: i, parcel: j})
			for k := range p.Activities {
				m.rows = append(m.rows, detailRow{kind: rowActivity, op: i, parcel: j, activity: k})
			}
		}
	}
	if m.row >= len(m.rows) {
		m.row = max(0, len(m.rows)-1)
	}

	m.attached.Store(false)
	m.attached = &atomic.Bool{}
	m.attached.Store(true)
	if m.opts.Photos == nil {
		return
	}
	placeholder := photoPlaceholder{sender: m.opts.Sender, attached: m.attached}
	var queue []*photos.PhotoRef
	for _, url := range view.PhotoURLs {
		if ref, seen := m.refs[url]; seen {
			ref.Bind(placeholder)
			continue
		}
		ref := photos.NewRef(url, placeholder)
		m.refs[url] = ref
		queue = append(queue, ref)
	}
	m.opts.Photos.Enqueue(queue...)
	m.opts.Photos.RunQueue()
}

func (m *BrowserModel) leaveDetail() {
	m.attached.Store(false)
	m.mode = ModeList
	m.state.CurrentSheet = nil
	m.shown = nil
	m.rows = nil
	m.row = 0
}

func (m BrowserModel) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	roles := m.state.Session.Roles
	switch msg.String() {
	case "q", "esc":
		return m.quit()
	case "up", "k":
		if m.selected > 0 {
			m.selected--
			m.shimmer = m.shimmer.Reset()
		}
	case "down", "j":
		if m.selected < len(m.state.Sheets)-1 {
			m.selected++
			m.shimmer = m.shimmer.Reset()
		}
	case "f":
		m.busy = true
		m.selected = 0
		return m, m.dispatch(app.ListSheets{Status: nextFilter(m.state.StatusFilter)})
	case "r":
		m.busy = true
		return m, m.dispatch(app.ListSheets{Status: m.state.StatusFilter})
	case "enter":
		if sheet, ok := m.selectedSheet(); ok {
			m.busy = true
			return m, m.dispatch(app.ViewSheet{ID: sheet.ID})
		}
	case "n":
		if !auth.CanManage(roles) {
			return m.deny("create execution sheet")
		}
		w := NewCreateSheetModel("", nil)
		w.embedded = true
		w.width, w.height = m.width, m.height
		m.wizard = &w
		m.mode = ModeWizard
		return m, tea.Batch(w.Init(), m.loadWorksheets())
	case "d":
		if _, ok := m.selectedSheet(); ok {
			if !auth.CanManage(roles) {
				return m.deny("delete execution sheet")
			}
			m.confirmDelete = true
		}
	case "x":
		if sheet, ok := m.selectedSheet(); ok {
			m.busy = true
			return m, m.dispatch(app.ExportSheet{ID: sheet.ID})
		}
	case "L":
		m.busy = true
		return m, m.dispatch(app.Logout{})
	}
	return m, nil
}

func (m BrowserModel) handleDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.confirmDelete = false
	sheet, ok := m.selectedSheet()
	if !ok || (msg.String() != "y" && msg.String() != "Y") {
		return m, nil
	}
	m.busy = true
	return m, m.dispatch(app.DeleteSheet{ID: sheet.ID})
}

func (m BrowserModel) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "esc", "backspace":
		m.leaveDetail()
		return m, nil
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(m.rows)-1 {
			m.row++
		}
	case "r":
		m.busy = true
		return m, m.dispatch(app.ViewSheet{ID: m.detail.Sheet.ID})
	case "x":
		m.busy = true
		return m, m.dispatch(app.ExportSheet{ID: m.detail.Sheet.ID})
	case "s":
		row, ok := m.currentRow()
		if !ok || row.kind != rowParcel {
			return m, nil
		}
		op := m.detail.Operations[row.op]
		p := op.Parcels[row.parcel]
		if !p.CanStart {
			return m.deny("start activity")
		}
		m.busy = true
		return m, m.dispatch(app.StartActivity{OperationExecutionID: op.Operation.ID, ParcelOperationExecutionID: p.Parcel.ID})
	case "t":
		row, ok := m.currentRow()
		if !ok || row.kind != rowActivity {
			return m, nil
		}
		op := m.detail.Operations[row.op]
		a := op.Parcels[row.parcel].Activities[row.activity]
		if !a.CanStop {
			return m.deny("stop activity " + a.Activity.ID)
		}
		m.busy = true
		return m, m.dispatch(app.StopActivity{OperationExecutionID: op.Operation.ID, ActivityID: a.Activity.ID})
	case "p":
		m.retryFailedPhotos()
	}
	return m, nil
}

// retryFailedPhotos retries the failed thumbnails of the selected activity,
// or of the whole sheet when no activity is selected.
func (m BrowserModel) retryFailedPhotos() {
	if m.opts.Photos == nil {
		return
	}
	urls := m.detail.PhotoURLs
	if row, ok := m.currentRow(); ok && row.kind == rowActivity {
		urls = m.detail.Operations[row.op].Parcels[row.parcel].Activities[row.activity].Activity.PhotoURLs
	}
	for _, url := range urls {
		if ref, ok := m.refs[url]; ok && ref.State() == photos.Failed {
			_ = m.opts.Photos.Retry(ref)
		}
	}
}

func (m BrowserModel) deny(action string) (tea.Model, tea.Cmd) {
	err := auth.Require(false, action, m.state.Session.Roles)
	m.state.Banner = app.NewBanner(app.BannerError, err.Error(), m.opts.Now())
	return m, m.bannerExpire()
}

func (m BrowserModel) loadWorksheets() tea.Cmd {
	if m.opts.Worksheets == nil {
		return nil
	}
	fn, ctx := m.opts.Worksheets, m.opts.Context
	return func() tea.Msg {
		ws, err := fn(ctx)
		return worksheetsMsg{worksheets: ws, err: err}
	}
}

func (m BrowserModel) selectedSheet() (models.ExecutionSheet, bool) {
	if m.selected < 0 || m.selected >= len(m.state.Sheets) {
		return models.ExecutionSheet{}, false
	}
	return m.state.Sheets[m.selected], true
}

func (m BrowserModel) currentRow() (detailRow, bool) {
	if m.row < 0 || m.row >= len(m.rows) {
		return detailRow{}, false
	}
	return m.rows[m.row], true
}

// nextFilter cycles all → PENDING → IN_PROGRESS → COMPLETED → CANCELLED → all.
func nextFilter(current models.SheetState) models.SheetState {
	if current == "" {
		return models.SheetStates[0]
	}
	for i, s := range models.SheetStates {
		if s == current && i+1 < len(models.SheetStates) {
			return models.SheetStates[i+1]
		}
	}
	return ""
}

func (m BrowserModel) View() string {
	if m.mode == ModeWizard && m.wizard != nil {
		return m.wizard.View()
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var body string
	if m.mode == ModeDetail {
		body = m.renderDetail(m.width - 2)
	} else {
		leftWidth := m.width * 60 / 100
		rightWidth := m.width - leftWidth - 1
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSheetTable(leftWidth), " ", m.renderSheetInfo(rightWidth))
	}

	parts := []string{m.renderHeader()}
	if b := m.renderBanner(); b != "" {
		parts = append(parts, b)
	}
	parts = append(parts, body, m.renderHelpBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m BrowserModel) renderHeader() string {
	s := m.state.Session
	logo := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain)).Bold(true).Render("fieldops")
	user := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).
		Render(fmt.Sprintf("%s · %s", s.DisplayName(), s.PrimaryRole()))
	line := logo + "  " + user
	if badge := app.BuildNotificationBadge(m.state); badge.Visible() {
		line += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Bold(true).
			Render(fmt.Sprintf("🔔 %d", badge.Unread))
	}
	if m.busy {
		line += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText)).Italic(true).Render("working…")
	}
	return line
}

func (m BrowserModel) renderBanner() string {
	b := m.state.Banner
	if !b.Visible(m.opts.Now()) {
		return ""
	}
	return lipgloss.NewStyle().
		Background(BannerColor(b.Kind)).
		Foreground(lipgloss.Color("#FFFFFF")).
		Padding(0, 1).
		Width(max(m.width-2, 10)).
		Render(b.Text)
}

func (m BrowserModel) renderSheetTable(width int) string {
	var b strings.Builder
	list := app.BuildSheetList(m.state)

	filter := "all"
	if list.Filter != "" {
		filter = string(list.Filter)
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright)).
		Render("📋 Execution sheets · " + filter))
	b.WriteString("\n\n")

	if list.Empty != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).Render(list.Empty.Message))
		if list.Empty.ShowCreatePrompt {
			b.WriteString("\n\n")
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Render("Press n to create the first one"))
		}
		return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(ColorBorder)).Width(width).Render(b.String())
	}

	stateWidth := 12
	dateWidth := 10
	titleWidth := max(width-stateWidth-dateWidth-8, 16)
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright)).
		Render(fmt.Sprintf("%-*s %-*s %-*s", titleWidth, "TITLE", stateWidth, "STATE", dateWidth, "ACTIVITY")))
	b.WriteString("\n")

	perPage := max(m.height-10, 3)
	start := (m.selected / perPage) * perPage
	end := min(start+perPage, len(list.Cards))
	for i := start; i < end; i++ {
		card := list.Cards[i]
		title := truncate(card.Sheet.Title, titleWidth)
		if i == m.selected {
			title = m.shimmer.Render(title) + strings.Repeat(" ", titleWidth-len([]rune(title)))
		} else {
			title = fmt.Sprintf("%-*s", titleWidth, title)
		}
		state := lipgloss.NewStyle().Foreground(SheetStateColor(card.Sheet.State)).
			Render(fmt.Sprintf("%-*s", stateWidth, card.Sheet.State))
		date := fmt.Sprintf("%-*s", dateWidth, card.Sheet.LastActivityDate.Display("02/01/2006"))
		line := title + " " + state + " " + date
		if i == m.selected {
			b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentMain)).Render("▸") + line)
		} else {
			b.WriteString(" " + line)
		}
		b.WriteString("\n")
	}
	if perPage < len(list.Cards) {
		pages := (len(list.Cards) + perPage - 1) / perPage
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).
			Render(fmt.Sprintf("\nPage %d/%d (%d sheets)", m.selected/perPage+1, pages, len(list.Cards))))
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(ColorBorder)).Width(width).Render(b.String())
}

func (m BrowserModel) renderSheetInfo(width int) string {
	var b strings.Builder
	sheet, ok := m.selectedSheet()
	if !ok {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).Render("Select a sheet to see its details"))
	} else {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimaryText)).Render(sheet.Title))
		b.WriteString("\n\n")
		field := func(label, value string) {
			if value == "" {
				return
			}
			b.WriteString(label + ": ")
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Render(value))
			b.WriteString("\n")
		}
		field("State", string(sheet.State))
		field("Worksheet", sheet.AssociatedWorkSheetID)
		field("Owner", sheet.AssociatedUser)
		field("Started", sheet.StartDate.Display("02/01/2006"))
		field("Last activity", sheet.LastActivityDate.Display("02/01/2006 15:04"))
		field("Completed", sheet.CompletionDate.Display("02/01/2006"))
		if sheet.Description != "" {
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).Width(width - 2).Render(sheet.Description))
		}
		if m.confirmDelete {
			b.WriteString("\n\n")
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Bold(true).Render("Delete this sheet? y to confirm"))
		}
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(ColorBorder)).Width(width).Render(b.String())
}

func (m BrowserModel) renderDetail(width int) string {
	var b strings.Builder
	sheet := m.detail.Sheet
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimaryText)).Render(sheet.Title))
	b.WriteString("  ")
	b.WriteString(lipgloss.NewStyle().Foreground(SheetStateColor(sheet.State)).Render(string(sheet.State)))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).Render("No operations assigned yet"))
	}
	now := m.opts.Now()
	for i, row := range m.rows {
		op := m.detail.Operations[row.op]
		var line string
		switch row.kind {
		case rowOperation:
			line = fmt.Sprintf("⚙ %s  %s  %.2f/%.2f ha", op.Operation.OperationID, progressBar(op.Progress, 20),
				op.Operation.TotalExecutedArea, op.Operation.ExpectedTotalArea)
			if end := parser.FormatEndDate(op.Operation.PredictedEndDate.Time, now); end != "" {
				line += "  " + end
			}
		case rowParcel:
			p := op.Parcels[row.parcel]
			status := lipgloss.NewStyle().Foreground(ParcelStatusColor(p.Parcel.Status)).Render(string(p.Parcel.Status))
			line = fmt.Sprintf("   ▪ parcel %s  %s", p.Parcel.ParcelID, status)
			if p.Parcel.AssignedUsername != "" {
				line += "  @" + p.Parcel.AssignedUsername
			}
		case rowActivity:
			a := op.Parcels[row.parcel].Activities[row.activity]
			state := "done"
			if a.Activity.Running() {
				state = "running"
			}
			line = fmt.Sprintf("      ↳ %s  %s  %s  %s", a.Activity.ID, a.Activity.OperatorID, state,
				parser.FormatMinutes(int64(a.Elapsed/time.Minute)))
			if glyphs := m.photoGlyphs(a.Activity.PhotoURLs); glyphs != "" {
				line += "  " + glyphs
			}
		}
		if i == m.row {
			line = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright)).Render("▸") + line
		} else {
			line = " " + line
		}
		b.WriteString(line + "\n")
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(ColorBorder)).Width(width).Render(b.String())
}

func (m BrowserModel) photoGlyphs(urls []string) string {
	var b strings.Builder
	for _, url := range urls {
		state := photos.Pending
		if ref, ok := m.refs[url]; ok {
			state = ref.State()
		}
		b.WriteString(photoGlyph(state))
	}
	return b.String()
}

func (m BrowserModel) renderHelpBar() string {
	text := "↑/↓ nav · enter open · f filter · r reload · n new · d delete · x export · L logout · q quit"
	if m.mode == ModeDetail {
		text = "↑/↓ nav · s start · t stop · p retry photos · x export · r reload · esc back · q quit"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render(text)
}

func progressBar(p float64, width int) string {
	filled := int(p*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBorder)).Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, p*100)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
