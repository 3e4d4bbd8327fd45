package tui

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/logging"
	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/photos"
)

var testNow = time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC)

type stubBackend struct {
	mu      sync.Mutex
	calls   map[string]int
	sheets  []models.ExecutionSheet
	detail  models.SheetDetail
	created []api.CreateSheetRequest
	started []string
}

func newStubBackend() *stubBackend {
	detail := models.SheetDetail{
		ExecutionSheet: models.ExecutionSheet{ID: "es-1", Title: "Poda", State: models.SheetInProgress},
		Operations: []models.OperationDetail{{
			OperationExecution: models.OperationExecution{ID: "op-1", OperationID: "PODA", ExpectedTotalArea: 2, TotalExecutedArea: 1},
			Parcels: []models.ParcelDetail{
				{
					ParcelExecution: models.ParcelExecution{ID: "pe-1", ParcelID: "12", Status: models.ParcelAssigned, AssignedUsername: "ana"},
					Activities: []models.Activity{{
						ID:         "act-1",
						OperatorID: "ana",
						StartTime:  models.NewTimestamp(testNow.Add(-2 * time.Hour)),
						EndTime:    models.NewTimestamp(testNow.Add(-time.Hour)),
						PhotoURLs:  models.PhotoURLs{"/photos/view/a.jpg", "/photos/view/b.jpg"},
					}},
				},
				{ParcelExecution: models.ParcelExecution{ID: "pe-2", ParcelID: "13", AssignedUsername: "bruno"}},
			},
		}},
	}
	return &stubBackend{
		calls: map[string]int{},
		sheets: []models.ExecutionSheet{
			{ID: "es-1", Title: "Poda", State: models.SheetInProgress},
			{ID: "es-2", Title: "Rega", State: models.SheetPending},
		},
		detail: detail,
	}
}

func (b *stubBackend) hit(name string) {
	b.mu.Lock()
	b.calls[name]++
	b.mu.Unlock()
}

func (b *stubBackend) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *stubBackend) ListSheets(_ context.Context, status models.SheetState) ([]models.ExecutionSheet, error) {
	b.hit("ListSheets")
	return api.FilterByState(b.sheets, status), nil
}

func (b *stubBackend) GetSheet(_ context.Context, _ string) (models.SheetDetail, error) {
	b.hit("GetSheet")
	return b.detail, nil
}

func (b *stubBackend) CreateSheet(_ context.Context, req api.CreateSheetRequest) (models.ExecutionSheet, error) {
	b.hit("CreateSheet")
	b.created = append(b.created, req)
	return models.ExecutionSheet{ID: "es-3", Title: req.Title}, nil
}

func (b *stubBackend) UpdateSheet(_ context.Context, id string, _ api.UpdateSheetRequest) (models.ExecutionSheet, error) {
	b.hit("UpdateSheet")
	return models.ExecutionSheet{ID: id}, nil
}

func (b *stubBackend) DeleteSheet(_ context.Context, _ string) (string, error) {
	b.hit("DeleteSheet")
	return "", nil
}

func (b *stubBackend) ExportSheet(_ context.Context, id string) (models.ExportDocument, []byte, error) {
	b.hit("ExportSheet")
	return models.ExportDocument{ID: id}, nil, nil
}

func (b *stubBackend) Assign(_ context.Context, _ api.AssignRequest) (api.Message, error) {
	b.hit("Assign")
	return api.Message{}, nil
}

func (b *stubBackend) EditOperationExecution(_ context.Context, _ api.EditOperationRequest) (api.Message, error) {
	b.hit("EditOperationExecution")
	return api.Message{}, nil
}

func (b *stubBackend) StartActivity(_ context.Context, _, peID string) (api.Message, error) {
	b.hit("StartActivity")
	b.started = append(b.started, peID)
	return api.Message{ActivityID: "act-2"}, nil
}

func (b *stubBackend) StopActivity(_ context.Context, _, _ string) (api.Message, error) {
	b.hit("StopActivity")
	return api.Message{}, nil
}

func (b *stubBackend) OperationActivities(_ context.Context, _ string) ([]models.Activity, error) {
	b.hit("OperationActivities")
	return nil, nil
}

func (b *stubBackend) AddActivityInfo(_ context.Context, _ api.AddInfoRequest) (api.Message, error) {
	b.hit("AddActivityInfo")
	return api.Message{}, nil
}

func (b *stubBackend) DeletePhoto(_ context.Context, _, _ string) (api.Message, error) {
	b.hit("DeletePhoto")
	return api.Message{}, nil
}

func (b *stubBackend) UploadPhoto(_ context.Context, _ string, _ io.Reader) (api.UploadResult, error) {
	b.hit("UploadPhoto")
	return api.UploadResult{}, nil
}

func (b *stubBackend) Notifications(_ context.Context) ([]models.Notification, error) {
	b.hit("Notifications")
	return []models.Notification{{ID: "n1"}}, nil
}

func (b *stubBackend) Logout(_ context.Context) error {
	b.hit("Logout")
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
}

func (s *recordingSender) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func typeText(m tea.Model, text string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// press sends a key and feeds the messages its command produces back in,
// as the runtime would. Timers are fired but their messages dropped.
func press(t *testing.T, m tea.Model, k string) tea.Model {
	t.Helper()
	m, cmd := m.Update(key(k))
	return run(m, cmd)
}

func run(m tea.Model, cmd tea.Cmd) tea.Model {
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(m, c)
		}
	case actionResultMsg, notificationsMsg, worksheetsMsg:
		m, _ = m.Update(msg)
	case wizardDoneMsg:
		var next tea.Cmd
		m, next = m.Update(msg)
		m = run(m, next)
	}
	return m
}

type browserFixture struct {
	backend *stubBackend
	sender  *recordingSender
	photos  *photos.Scheduler
	loads   atomic.Int32
}

func newBrowser(t *testing.T, roles ...auth.Role) (BrowserModel, *browserFixture) {
	t.Helper()
	fx := &browserFixture{backend: newStubBackend(), sender: &recordingSender{}}
	fx.photos = photos.NewScheduler(
		photos.LoaderFunc(func(_ context.Context, url string) (*photos.Image, error) {
			fx.loads.Add(1)
			return &photos.Image{Format: "png"}, nil
		}),
		photos.Policy{Name: "test", Attempts: 3, BackoffUnit: time.Millisecond},
		photos.WithSleep(func(context.Context, time.Duration) error { return nil }),
		photos.WithLogger(logging.Discard()),
	)
	d := app.NewDispatcher(fx.backend, app.WithLogger(logging.Discard()), app.WithClock(func() time.Time { return testNow }))
	st := app.NewState(auth.Session{Token: "tok", Username: "ana", Roles: auth.NewRoleSet(roles...)})
	m := NewBrowserModel(st, BrowserOptions{
		Dispatcher: d,
		Photos:     fx.photos,
		Now:        func() time.Time { return testNow },
		BannerTTL:  time.Millisecond,
		Sender:     fx.sender,
		Worksheets: func(context.Context) ([]models.Worksheet, error) {
			return []models.Worksheet{{ID: "ws-1", Title: "Vinha norte"}}, nil
		},
	})
	m.shimmer.Config.Enabled = false

	var tm tea.Model = m
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	tm = run(tm, tm.(BrowserModel).dispatch(app.ListSheets{}))
	return tm.(BrowserModel), fx
}

func TestBrowserCyclesStatusFilter(t *testing.T) {
	m, fx := newBrowser(t, auth.RolePO)
	require.Len(t, m.State().Sheets, 2)

	var tm tea.Model = m
	tm = press(t, tm, "f")
	st := tm.(BrowserModel).State()
	require.Equal(t, models.SheetPending, st.StatusFilter)
	require.Len(t, st.Sheets, 1)
	require.Equal(t, "es-2", st.Sheets[0].ID)

	tm = press(t, tm, "f")
	st = tm.(BrowserModel).State()
	require.Equal(t, models.SheetInProgress, st.StatusFilter)
	require.Equal(t, "es-1", st.Sheets[0].ID)
	require.Equal(t, 3, fx.backend.count("ListSheets"))

	require.Equal(t, models.SheetState(""), nextFilter(models.SheetCancelled))
}

func TestBrowserDetailSchedulesThumbnails(t *testing.T) {
	m, fx := newBrowser(t, auth.RolePO)

	var tm tea.Model = m
	tm = press(t, tm, "enter")
	bm := tm.(BrowserModel)
	require.Equal(t, ModeDetail, bm.Mode())
	require.Len(t, bm.rows, 3, "parcel assigned to someone else is hidden")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fx.photos.Wait(ctx))
	require.Equal(t, 2, fx.sender.len())
	for _, ref := range bm.refs {
		require.Equal(t, photos.Loaded, ref.State())
	}
	require.Contains(t, bm.View(), "Poda")

	tm = press(t, tm, "esc")
	bm = tm.(BrowserModel)
	require.Equal(t, ModeList, bm.Mode())
	require.Nil(t, bm.State().CurrentSheet)
	require.False(t, bm.attached.Load())
}

func TestBrowserReloadKeepsLoadedThumbnails(t *testing.T) {
	m, fx := newBrowser(t, auth.RolePO)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var tm tea.Model = m
	tm = press(t, tm, "enter")
	require.NoError(t, fx.photos.Wait(ctx))
	require.EqualValues(t, 2, fx.loads.Load())
	before := map[string]*photos.PhotoRef{}
	for url, ref := range tm.(BrowserModel).refs {
		before[url] = ref
	}

	tm = press(t, tm, "down")
	tm = press(t, tm, "s")
	require.Equal(t, 2, fx.backend.count("GetSheet"))
	require.NoError(t, fx.photos.Wait(ctx))

	bm := tm.(BrowserModel)
	require.EqualValues(t, 2, fx.loads.Load())
	require.Zero(t, fx.photos.Pending())
	require.Len(t, bm.refs, 2)
	for url, ref := range bm.refs {
		require.Same(t, before[url], ref)
		require.Equal(t, photos.Loaded, ref.State())
	}
	require.True(t, bm.attached.Load())
}

func TestBrowserStartsActivityOnSelectedParcel(t *testing.T) {
	m, fx := newBrowser(t, auth.RolePO)

	var tm tea.Model = m
	tm = press(t, tm, "enter")
	tm = press(t, tm, "down")
	tm = press(t, tm, "s")

	require.Equal(t, []string{"pe-1"}, fx.backend.started)
	require.Equal(t, ModeDetail, tm.(BrowserModel).Mode())
	require.Equal(t, 2, fx.backend.count("GetSheet"))
}

func TestBrowserStopDeniedOnFinishedActivity(t *testing.T) {
	m, fx := newBrowser(t, auth.RolePO)

	var tm tea.Model = m
	tm = press(t, tm, "enter")
	tm = press(t, tm, "down")
	tm = press(t, tm, "down")
	tm = press(t, tm, "t")

	require.Zero(t, fx.backend.count("StopActivity"))
	require.Equal(t, app.BannerError, tm.(BrowserModel).State().Banner.Kind)
}

func TestBrowserCreatePromptOnlyForManagers(t *testing.T) {
	m, fx := newBrowser(t, auth.RolePO)
	var tm tea.Model = m
	tm = press(t, tm, "n")
	require.Equal(t, ModeList, tm.(BrowserModel).Mode())
	require.Contains(t, tm.(BrowserModel).State().Banner.Text, "permission denied")
	require.Zero(t, fx.backend.count("CreateSheet"))
}

func TestBrowserWizardCreatesSheet(t *testing.T) {
	m, fx := newBrowser(t, auth.RoleSysAdmin)

	var tm tea.Model = m
	tm = press(t, tm, "n")
	require.Equal(t, ModeWizard, tm.(BrowserModel).Mode())
	require.Len(t, tm.(BrowserModel).wizard.worksheets, 1)

	tm = typeText(tm, "Rega de verão")
	tm = press(t, tm, "enter")
	tm = typeText(tm, "1")
	tm = press(t, tm, "enter")
	tm = press(t, tm, "enter")
	tm = press(t, tm, "enter")

	require.Equal(t, ModeList, tm.(BrowserModel).Mode())
	require.Equal(t, []api.CreateSheetRequest{{Title: "Rega de verão", AssociatedWorkSheetID: "ws-1"}}, fx.backend.created)
	require.Equal(t, app.BannerSuccess, tm.(BrowserModel).State().Banner.Kind)
}

func TestBrowserDeleteNeedsConfirmation(t *testing.T) {
	m, fx := newBrowser(t, auth.RolePRBO)

	var tm tea.Model = m
	tm = press(t, tm, "d")
	require.True(t, tm.(BrowserModel).confirmDelete)
	tm = press(t, tm, "n")
	require.Zero(t, fx.backend.count("DeleteSheet"))

	tm = press(t, tm, "d")
	_ = press(t, tm, "y")
	require.Equal(t, 1, fx.backend.count("DeleteSheet"))
}

func TestBrowserNotificationsAndBanner(t *testing.T) {
	m, _ := newBrowser(t, auth.RoleRU)

	var tm tea.Model = m
	tm = run(tm, tm.(BrowserModel).refreshNotifications())
	require.Len(t, tm.(BrowserModel).State().Notifications, 1)
	require.Contains(t, tm.(BrowserModel).renderHeader(), "1")

	bm := tm.(BrowserModel)
	bm.state.Banner = app.NewBanner(app.BannerInfo, "hello", testNow.Add(-6*time.Second))
	tm, _ = bm.Update(bannerExpireMsg{})
	require.Empty(t, tm.(BrowserModel).State().Banner.Text)
}

func TestBrowserIgnoresKeysWhileBusy(t *testing.T) {
	m, fx := newBrowser(t, auth.RolePO)
	m.busy = true
	tm, cmd := m.Update(key("f"))
	require.Nil(t, cmd)
	require.Equal(t, 1, fx.backend.count("ListSheets"))
	require.True(t, tm.(BrowserModel).busy)
}

func TestPlaceholderDetachedDropsUpdates(t *testing.T) {
	sender := &recordingSender{}
	p := photoPlaceholder{sender: sender, attached: &atomic.Bool{}}
	require.False(t, p.Attached())
	p.attached.Store(true)
	require.True(t, p.Attached())
	require.False(t, photoPlaceholder{attached: p.attached}.Attached())
}
