package app

import (
	"time"

	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/photos"
)

// EmptyState is shown instead of cards when a list has no sheets.
type EmptyState struct {
	Message          string
	ShowCreatePrompt bool
}

// SheetCard is one sheet in the list together with what may be done to it.
type SheetCard struct {
	Sheet     models.ExecutionSheet
	CanEdit   bool
	CanDelete bool
	CanExport bool
}

// SheetList describes the list screen. Exactly one of Cards and Empty is set.
type SheetList struct {
	Filter    models.SheetState
	Cards     []SheetCard
	Empty     *EmptyState
	CanCreate bool
}

// BuildSheetList turns the loaded sheets into cards for the session's roles.
func BuildSheetList(st State) SheetList {
	roles := st.Session.Roles
	list := SheetList{Filter: st.StatusFilter, CanCreate: auth.CanManage(roles)}
	if len(st.Sheets) == 0 {
		msg := "No execution sheets"
		if st.StatusFilter != "" {
			msg = "No execution sheets in state " + string(st.StatusFilter)
		}
		list.Empty = &EmptyState{Message: msg, ShowCreatePrompt: list.CanCreate}
		return list
	}
	for _, s := range st.Sheets {
		list.Cards = append(list.Cards, SheetCard{
			Sheet:     s,
			CanEdit:   auth.CanManage(roles),
			CanDelete: auth.CanManage(roles),
			CanExport: auth.CanExport(roles),
		})
	}
	return list
}

// ActivityView is one activity row with its affordances.
type ActivityView struct {
	Activity   models.Activity
	Elapsed    time.Duration
	CanStop    bool
	CanAddInfo bool
}

// ParcelView is one parcel row of an operation.
type ParcelView struct {
	Parcel     models.ParcelExecution
	Activities []ActivityView
	CanStart   bool
}

// OperationView is one operation with its progress.
type OperationView struct {
	Operation models.OperationExecution
	Progress  float64 // 0..1
	Parcels   []ParcelView
	CanEdit   bool
	CanAssign bool
}

// SheetDetailView describes the detail screen of one sheet.
type SheetDetailView struct {
	Sheet      models.ExecutionSheet
	Operations []OperationView
	CanExport  bool
	CanManage  bool
	PhotoURLs  []string // every thumbnail on screen, in display order
}

// BuildSheetDetail lays out the loaded sheet. Parcels the session may not see
// are dropped before any row is built. It returns false when no sheet is
// loaded.
func BuildSheetDetail(st State, now time.Time) (SheetDetailView, bool) {
	if st.CurrentSheet == nil {
		return SheetDetailView{}, false
	}
	roles := st.Session.Roles
	user := st.Session.Username
	view := SheetDetailView{
		Sheet:     st.CurrentSheet.ExecutionSheet,
		CanExport: auth.CanExport(roles),
		CanManage: auth.CanManage(roles),
	}
	for _, op := range st.CurrentSheet.Operations {
		ov := OperationView{
			Operation: op.OperationExecution,
			Progress:  progress(op.OperationExecution),
			CanEdit:   view.CanManage,
			CanAssign: view.CanManage,
		}
		for _, p := range auth.VisibleParcelDetails(roles, user, op.Parcels) {
			pv := ParcelView{
				Parcel:   p.ParcelExecution,
				CanStart: auth.CanDoActivity(roles) && p.ParcelExecution.Status != models.ParcelCompleted,
			}
			for _, a := range p.Activities {
				pv.Activities = append(pv.Activities, ActivityView{
					Activity:   a,
					Elapsed:    a.Elapsed(now),
					CanStop:    auth.CanStopActivity(roles, a, user),
					CanAddInfo: auth.CanAddActivityInfo(roles, a),
				})
				view.PhotoURLs = append(view.PhotoURLs, a.PhotoURLs...)
			}
			ov.Parcels = append(ov.Parcels, pv)
		}
		view.Operations = append(view.Operations, ov)
	}
	return view, true
}

// PhotoWorklist returns fresh refs for every thumbnail of the view, ready to
// be enqueued.
func (v SheetDetailView) PhotoWorklist() []*photos.PhotoRef {
	return photos.Refs(v.PhotoURLs...)
}

func progress(op models.OperationExecution) float64 {
	var p float64
	switch {
	case op.PercentExecuted > 0:
		p = op.PercentExecuted / 100
	case op.ExpectedTotalArea > 0:
		p = op.TotalExecutedArea / op.ExpectedTotalArea
	}
	if p > 1 {
		p = 1
	}
	return p
}

// NotificationBadge is the unread counter shown in the header.
type NotificationBadge struct {
	Unread int
	Total  int
}

// Visible reports whether the badge should be drawn.
func (b NotificationBadge) Visible() bool {
	return b.Unread > 0
}

// BuildNotificationBadge counts unread notifications.
func BuildNotificationBadge(st State) NotificationBadge {
	return NotificationBadge{Unread: models.UnreadCount(st.Notifications), Total: len(st.Notifications)}
}
