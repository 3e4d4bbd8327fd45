package app

import (
	"io"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/models"
)

// Action names, as used by Dispatch and in log lines.
const (
	ActionListSheets           = "sheets.list"
	ActionViewSheet            = "sheets.view"
	ActionCreateSheet          = "sheets.create"
	ActionUpdateSheet          = "sheets.update"
	ActionDeleteSheet          = "sheets.delete"
	ActionExportSheet          = "sheets.export"
	ActionAssignOperation      = "operations.assign"
	ActionEditOperation        = "operations.edit"
	ActionStartActivity        = "activity.start"
	ActionStopActivity         = "activity.stop"
	ActionAddActivityInfo      = "activity.addinfo"
	ActionDeletePhoto          = "activity.deletephoto"
	ActionUploadPhoto          = "photos.upload"
	ActionRefreshNotifications = "notifications.refresh"
	ActionLogout               = "session.logout"
)

// Action is one user intent.
type Action interface {
	Name() string
}

// ListSheets loads the sheet list, optionally for a single state.
type ListSheets struct{ Status models.SheetState }

// ViewSheet loads the full tree of one sheet.
type ViewSheet struct{ ID string }

// CreateSheet creates a sheet for a worksheet.
type CreateSheet struct{ Request api.CreateSheetRequest }

// UpdateSheet edits a sheet's fields or state.
type UpdateSheet struct {
	ID      string
	Request api.UpdateSheetRequest
}

// DeleteSheet removes a sheet.
type DeleteSheet struct{ ID string }

// ExportSheet writes a sheet's export to Path in Format (xlsx or json).
type ExportSheet struct {
	ID     string
	Format string
	Path   string
}

// AssignOperation assigns an operation to parcels.
type AssignOperation struct{ Request api.AssignRequest }

// EditOperation changes an operation's planning fields.
type EditOperation struct{ Request api.EditOperationRequest }

// StartActivity opens an activity on a parcel.
type StartActivity struct {
	OperationExecutionID       string
	ParcelOperationExecutionID string
}

// StopActivity closes a running activity. OperationExecutionID may be empty
// when the activity is part of the loaded sheet.
type StopActivity struct {
	OperationExecutionID string
	ActivityID           string
}

// AddActivityInfo attaches observations and evidence to a finished
// activity. With UseUploads the upload buffer is attached too.
type AddActivityInfo struct {
	OperationExecutionID string
	Request              api.AddInfoRequest
	UseUploads           bool
}

// DeletePhoto detaches a photo from an activity.
type DeletePhoto struct {
	ActivityID string
	PhotoURL   string
}

// UploadPhoto uploads a file and keeps its URL in the upload buffer.
type UploadPhoto struct {
	Filename string
	Reader   io.Reader
}

// RefreshNotifications reloads the notification list.
type RefreshNotifications struct{}

// Logout ends the session.
type Logout struct{}

func (ListSheets) Name() string           { return ActionListSheets }
func (ViewSheet) Name() string            { return ActionViewSheet }
func (CreateSheet) Name() string          { return ActionCreateSheet }
func (UpdateSheet) Name() string          { return ActionUpdateSheet }
func (DeleteSheet) Name() string          { return ActionDeleteSheet }
func (ExportSheet) Name() string          { return ActionExportSheet }
func (AssignOperation) Name() string      { return ActionAssignOperation }
func (EditOperation) Name() string        { return ActionEditOperation }
func (StartActivity) Name() string        { return ActionStartActivity }
func (StopActivity) Name() string         { return ActionStopActivity }
func (AddActivityInfo) Name() string      { return ActionAddActivityInfo }
func (DeletePhoto) Name() string          { return ActionDeletePhoto }
func (UploadPhoto) Name() string          { return ActionUploadPhoto }
func (RefreshNotifications) Name() string { return ActionRefreshNotifications }
func (Logout) Name() string               { return ActionLogout }
