package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/export"
	"github.com/trailblaze/fieldops/internal/models"
)

// ErrNoAction is returned when Dispatch is called without an action.
var ErrNoAction = errors.New("no action given")

// Backend is the part of the REST client the dispatcher drives.
type Backend interface {
	ListSheets(ctx context.Context, status models.SheetState) ([]models.ExecutionSheet, error)
	GetSheet(ctx context.Context, id string) (models.SheetDetail, error)
	CreateSheet(ctx context.Context, req api.CreateSheetRequest) (models.ExecutionSheet, error)
	UpdateSheet(ctx context.Context, id string, req api.UpdateSheetRequest) (models.ExecutionSheet, error)
	DeleteSheet(ctx context.Context, id string) (string, error)
	ExportSheet(ctx context.Context, id string) (models.ExportDocument, []byte, error)
	Assign(ctx context.Context, req api.AssignRequest) (api.Message, error)
	EditOperationExecution(ctx context.Context, req api.EditOperationRequest) (api.Message, error)
	StartActivity(ctx context.Context, operationExecutionID, parcelOperationExecutionID string) (api.Message, error)
	StopActivity(ctx context.Context, operationExecutionID, activityID string) (api.Message, error)
	OperationActivities(ctx context.Context, operationExecutionID string) ([]models.Activity, error)
	AddActivityInfo(ctx context.Context, req api.AddInfoRequest) (api.Message, error)
	DeletePhoto(ctx context.Context, activityID, photoURL string) (api.Message, error)
	UploadPhoto(ctx context.Context, name string, r io.Reader) (api.UploadResult, error)
	Notifications(ctx context.Context) ([]models.Notification, error)
	Logout(ctx context.Context) error
}

// ExportRecorder keeps the export history.
type ExportRecorder interface {
	RecordExport(rec models.ExportRecord) (*models.ExportRecord, error)
}

// ActivityTracker remembers activities started from this machine.
type ActivityTracker interface {
	TrackActivity(activityID, operationExecutionID, parcelOperationExecutionID, operator string, startedAt time.Time) (*models.TrackedActivity, error)
	MarkActivityStopped(activityID string, stoppedAt time.Time) (*models.TrackedActivity, error)
}

type handlerFunc func(ctx context.Context, st State, a Action) (State, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithExportRecorder records every successful export.
func WithExportRecorder(r ExportRecorder) Option {
	return func(d *Dispatcher) { d.exports = r }
}

// WithActivityTracker tracks started and stopped activities locally.
func WithActivityTracker(t ActivityTracker) Option {
	return func(d *Dispatcher) { d.activities = t }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithClock replaces time.Now for banners.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher routes named actions to their handlers. Role checks run before
// any request is sent.
type Dispatcher struct {
	backend    Backend
	exports    ExportRecorder
	activities ActivityTracker
	logger     logrus.FieldLogger
	now        func() time.Time
	handlers   map[string]handlerFunc
}

// NewDispatcher wires every action to its handler.
func NewDispatcher(backend Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backend: backend,
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = map[string]handlerFunc{
		ActionListSheets:           d.listSheets,
		ActionViewSheet:            d.viewSheet,
		ActionCreateSheet:          d.createSheet,
		ActionUpdateSheet:          d.updateSheet,
		ActionDeleteSheet:          d.deleteSheet,
		ActionExportSheet:          d.exportSheet,
		ActionAssignOperation:      d.assignOperation,
		ActionEditOperation:        d.editOperation,
		ActionStartActivity:        d.startActivity,
		ActionStopActivity:         d.stopActivity,
		ActionAddActivityInfo:      d.addActivityInfo,
		ActionDeletePhoto:          d.deletePhoto,
		ActionUploadPhoto:          d.uploadPhoto,
		ActionRefreshNotifications: d.refreshNotifications,
		ActionLogout:               d.logout,
	}
	return d
}

// Actions lists the registered action names.
func (d *Dispatcher) Actions() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs one action. On failure it returns st unchanged except for an
// error banner carrying the user-facing message, together with the error.
func (d *Dispatcher) Dispatch(ctx context.Context, st State, a Action) (State, error) {
	if a == nil {
		return d.fail(st, ErrNoAction), ErrNoAction
	}
	log := d.logger.WithField("action", a.Name())
	h, ok := d.handlers[a.Name()]
	if !ok {
		err := fmt.Errorf("unknown action %q", a.Name())
		return d.fail(st, err), err
	}
	if !st.Authenticated() {
		return d.fail(st, auth.ErrAuthenticationMissing), auth.ErrAuthenticationMissing
	}

	next, err := h(ctx, st, a)
	if err != nil {
		log.WithError(err).Warn("action failed")
		return d.fail(st, err), err
	}
	log.Debug("action done")
	return next, nil
}

func (d *Dispatcher) fail(st State, err error) State {
	st.Banner = NewBanner(BannerError, api.UserMessage(err), d.now())
	return st
}

func (d *Dispatcher) succeed(st State, text string) State {
	st.Banner = NewBanner(BannerSuccess, text, d.now())
	return st
}

func wrongAction(a Action) error {
	if a == nil {
		return ErrNoAction
	}
	return fmt.Errorf("handler for %s got %T", a.Name(), a)
}

func (d *Dispatcher) listSheets(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(ListSheets)
	if !ok {
		return st, wrongAction(a)
	}
	sheets, err := d.backend.ListSheets(ctx, act.Status)
	if err != nil {
		return st, err
	}
	st.Sheets = sheets
	st.StatusFilter = act.Status
	return st, nil
}

func (d *Dispatcher) viewSheet(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(ViewSheet)
	if !ok {
		return st, wrongAction(a)
	}
	detail, err := d.backend.GetSheet(ctx, act.ID)
	if err != nil {
		return st, err
	}
	st.CurrentSheet = &detail
	return st, nil
}

func (d *Dispatcher) createSheet(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(CreateSheet)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanManage(st.Session.Roles), "create execution sheet", st.Session.Roles); err != nil {
		return st, err
	}
	sheet, err := d.backend.CreateSheet(ctx, act.Request)
	if err != nil {
		return st, err
	}
	st = d.reloadSheets(ctx, st)
	return d.succeed(st, fmt.Sprintf("Execution sheet %q created", sheet.Title)), nil
}

func (d *Dispatcher) updateSheet(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(UpdateSheet)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanManage(st.Session.Roles), "edit execution sheet", st.Session.Roles); err != nil {
		return st, err
	}
	if _, err := d.backend.UpdateSheet(ctx, act.ID, act.Request); err != nil {
		return st, err
	}
	st = d.reloadSheets(ctx, st)
	st = d.reloadCurrent(ctx, st, act.ID)
	return d.succeed(st, "Execution sheet updated"), nil
}

func (d *Dispatcher) deleteSheet(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(DeleteSheet)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanManage(st.Session.Roles), "delete execution sheet", st.Session.Roles); err != nil {
		return st, err
	}
	text, err := d.backend.DeleteSheet(ctx, act.ID)
	if err != nil {
		return st, err
	}
	if st.CurrentSheet != nil && st.CurrentSheet.ExecutionSheet.ID == act.ID {
		st.CurrentSheet = nil
	}
	st = d.reloadSheets(ctx, st)
	if text == "" {
		text = "Execution sheet deleted"
	}
	return d.succeed(st, text), nil
}

func (d *Dispatcher) exportSheet(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(ExportSheet)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanExport(st.Session.Roles), "export execution sheet", st.Session.Roles); err != nil {
		return st, err
	}
	format, err := export.ParseFormat(act.Format)
	if err != nil {
		return st, &api.ValidationError{Field: "format", Message: err.Error()}
	}
	path := act.Path
	if path == "" {
		path = export.FileName(act.ID, format)
	}

	doc, raw, err := d.backend.ExportSheet(ctx, act.ID)
	if err != nil {
		return st, err
	}
	if err := export.Write(doc, raw, format, path); err != nil {
		return st, &api.ValidationError{Message: err.Error()}
	}
	if d.exports != nil {
		rec := models.ExportRecord{
			SheetID:    act.ID,
			Path:       path,
			Format:     format,
			Operations: len(doc.Operations),
			ExportedBy: st.Session.Username,
		}
		if _, err := d.exports.RecordExport(rec); err != nil {
			d.logger.WithError(err).Warn("could not record export")
		}
	}
	return d.succeed(st, "Execution sheet exported to "+path), nil
}

func (d *Dispatcher) assignOperation(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(AssignOperation)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanManage(st.Session.Roles), "assign operation", st.Session.Roles); err != nil {
		return st, err
	}
	msg, err := d.backend.Assign(ctx, act.Request)
	if err != nil {
		return st, err
	}
	st = d.reloadCurrent(ctx, st, act.Request.ExecutionSheetID)
	return d.succeed(st, messageOr(msg, "Parcels assigned")), nil
}

func (d *Dispatcher) editOperation(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(EditOperation)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanManage(st.Session.Roles), "edit operation", st.Session.Roles); err != nil {
		return st, err
	}
	msg, err := d.backend.EditOperationExecution(ctx, act.Request)
	if err != nil {
		return st, err
	}
	st = d.reloadCurrent(ctx, st, "")
	return d.succeed(st, messageOr(msg, "Operation updated")), nil
}

func (d *Dispatcher) startActivity(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(StartActivity)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanDoActivity(st.Session.Roles), "start activity", st.Session.Roles); err != nil {
		return st, err
	}
	msg, err := d.backend.StartActivity(ctx, act.OperationExecutionID, act.ParcelOperationExecutionID)
	if err != nil {
		return st, err
	}
	if d.activities != nil && msg.ActivityID != "" {
		if _, err := d.activities.TrackActivity(msg.ActivityID, act.OperationExecutionID, act.ParcelOperationExecutionID, st.Session.Username, d.now()); err != nil {
			d.logger.WithError(err).Warn("could not track activity")
		}
	}
	st = d.reloadCurrent(ctx, st, "")
	return d.succeed(st, messageOr(msg, "Activity started")), nil
}

// resolveActivity finds an activity in the loaded sheet, or asks the backend
// for the operation's activities.
func (d *Dispatcher) resolveActivity(ctx context.Context, st State, operationExecutionID, activityID string) (models.Activity, string, error) {
	if act, ok := st.FindActivity(activityID); ok {
		opID, _ := st.OperationOfActivity(activityID)
		return act, opID, nil
	}
	if operationExecutionID == "" {
		return models.Activity{}, "", &api.ValidationError{Field: "operation", Message: "needed to find activity " + activityID}
	}
	acts, err := d.backend.OperationActivities(ctx, operationExecutionID)
	if err != nil {
		return models.Activity{}, "", err
	}
	for _, act := range acts {
		if act.ID == activityID {
			return act, operationExecutionID, nil
		}
	}
	return models.Activity{}, "", &api.ValidationError{Message: fmt.Sprintf("activity %s not found", activityID)}
}

func (d *Dispatcher) stopActivity(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(StopActivity)
	if !ok {
		return st, wrongAction(a)
	}
	roles := st.Session.Roles
	if err := auth.Require(auth.CanDoActivity(roles), "stop activity", roles); err != nil {
		return st, err
	}
	activity, opID, err := d.resolveActivity(ctx, st, act.OperationExecutionID, act.ActivityID)
	if err != nil {
		return st, err
	}
	if err := auth.Require(auth.CanStopActivity(roles, activity, st.Session.Username), "stop activity "+act.ActivityID, roles); err != nil {
		return st, err
	}
	msg, err := d.backend.StopActivity(ctx, opID, act.ActivityID)
	if err != nil {
		return st, err
	}
	if d.activities != nil {
		if _, err := d.activities.MarkActivityStopped(act.ActivityID, d.now()); err != nil {
			d.logger.WithError(err).Warn("could not update tracked activity")
		}
	}
	st = d.reloadCurrent(ctx, st, "")
	return d.succeed(st, messageOr(msg, "Activity stopped")), nil
}

func (d *Dispatcher) addActivityInfo(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(AddActivityInfo)
	if !ok {
		return st, wrongAction(a)
	}
	roles := st.Session.Roles
	if err := auth.Require(auth.CanDoActivity(roles), "add activity info", roles); err != nil {
		return st, err
	}
	activity, _, err := d.resolveActivity(ctx, st, act.OperationExecutionID, act.Request.ActivityID)
	if err != nil {
		return st, err
	}
	if err := auth.Require(auth.CanAddActivityInfo(roles, activity), "add info to running activity "+activity.ID, roles); err != nil {
		return st, err
	}

	req := act.Request
	if act.UseUploads {
		req.Photos = append(append([]string{}, req.Photos...), st.UploadBuffer...)
	}
	msg, err := d.backend.AddActivityInfo(ctx, req)
	if err != nil {
		return st, err
	}
	if act.UseUploads {
		st.UploadBuffer = nil
	}
	st = d.reloadCurrent(ctx, st, "")
	return d.succeed(st, messageOr(msg, "Activity updated")), nil
}

func (d *Dispatcher) deletePhoto(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(DeletePhoto)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanRemovePhoto(st.Session.Roles), "remove photo", st.Session.Roles); err != nil {
		return st, err
	}
	msg, err := d.backend.DeletePhoto(ctx, act.ActivityID, act.PhotoURL)
	if err != nil {
		return st, err
	}
	st = d.reloadCurrent(ctx, st, "")
	return d.succeed(st, messageOr(msg, "Photo removed")), nil
}

func (d *Dispatcher) uploadPhoto(ctx context.Context, st State, a Action) (State, error) {
	act, ok := a.(UploadPhoto)
	if !ok {
		return st, wrongAction(a)
	}
	if err := auth.Require(auth.CanDoActivity(st.Session.Roles), "upload photo", st.Session.Roles); err != nil {
		return st, err
	}
	res, err := d.backend.UploadPhoto(ctx, act.Filename, act.Reader)
	if err != nil {
		return st, err
	}
	st.UploadBuffer = append(append([]string{}, st.UploadBuffer...), res.PhotoURL)
	return d.succeed(st, "Photo uploaded: "+res.PhotoURL), nil
}

func (d *Dispatcher) refreshNotifications(ctx context.Context, st State, _ Action) (State, error) {
	ns, err := d.backend.Notifications(ctx)
	if err != nil {
		return st, err
	}
	st.Notifications = ns
	return st, nil
}

// logout always ends the local session; a backend failure only means the
// token stays valid until it expires.
func (d *Dispatcher) logout(ctx context.Context, st State, _ Action) (State, error) {
	if err := d.backend.Logout(ctx); err != nil {
		d.logger.WithError(err).Warn("backend logout failed")
	}
	return State{Banner: NewBanner(BannerInfo, "Logged out", d.now())}, nil
}

// reloadSheets refreshes the list under the current filter. A failed reload
// keeps the previous list.
func (d *Dispatcher) reloadSheets(ctx context.Context, st State) State {
	sheets, err := d.backend.ListSheets(ctx, st.StatusFilter)
	if err != nil {
		d.logger.WithError(err).Warn("reloading sheets failed")
		return st
	}
	st.Sheets = sheets
	return st
}

// reloadCurrent refreshes the loaded sheet when it is sheetID (or any
// loaded sheet when sheetID is empty).
func (d *Dispatcher) reloadCurrent(ctx context.Context, st State, sheetID string) State {
	if st.CurrentSheet == nil {
		return st
	}
	id := st.CurrentSheet.ExecutionSheet.ID
	if sheetID != "" && sheetID != id {
		return st
	}
	detail, err := d.backend.GetSheet(ctx, id)
	if err != nil {
		d.logger.WithError(err).Warn("reloading sheet failed")
		return st
	}
	st.CurrentSheet = &detail
	return st
}

func messageOr(msg api.Message, fallback string) string {
	if msg.Message != "" {
		return msg.Message
	}
	return fallback
}
