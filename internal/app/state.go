// Package app holds the client's application state and the dispatcher that
// turns user actions into backend calls.
//
// State is a plain value. Handlers take the current state and return the
// next one; a failed handler hands back the state it was given with an
// error banner, so a failure never leaves half-applied changes behind.
package app

import (
	"time"

	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/models"
)

// BannerTTL is how long a banner stays visible.
const BannerTTL = 5 * time.Second

// BannerKind picks the banner colour.
type BannerKind string

const (
	BannerInfo    BannerKind = "info"
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is a transient message shown above the current view.
type Banner struct {
	Text    string
	Kind    BannerKind
	ShownAt time.Time
}

// NewBanner stamps a banner with the time it is shown.
func NewBanner(kind BannerKind, text string, now time.Time) Banner {
	return Banner{Text: text, Kind: kind, ShownAt: now}
}

// Visible reports whether the banner is still on screen at now.
func (b Banner) Visible(now time.Time) bool {
	if b.Text == "" {
		return false
	}
	return now.Sub(b.ShownAt) < BannerTTL
}

// State is everything the client shows. It is owned by the caller and only
// replaced, never mutated, by the dispatcher.
type State struct {
	Session       auth.Session
	Sheets        []models.ExecutionSheet
	StatusFilter  models.SheetState // empty shows every state
	CurrentSheet  *models.SheetDetail
	Banner        Banner
	UploadBuffer  []string // photo URLs uploaded but not yet attached to an activity
	Notifications []models.Notification
}

// NewState starts a session with nothing loaded.
func NewState(session auth.Session) State {
	return State{Session: session}
}

// Authenticated reports whether a session token is present.
func (s State) Authenticated() bool {
	return s.Session.Token != ""
}

// DismissExpired clears a banner whose time is up.
func (s State) DismissExpired(now time.Time) State {
	if s.Banner.Text != "" && !s.Banner.Visible(now) {
		s.Banner = Banner{}
	}
	return s
}

// FindActivity looks an activity up in the loaded sheet.
func (s State) FindActivity(activityID string) (models.Activity, bool) {
	if s.CurrentSheet == nil {
		return models.Activity{}, false
	}
	for _, op := range s.CurrentSheet.Operations {
		for _, p := range op.Parcels {
			for _, a := range p.Activities {
				if a.ID == activityID {
					return a, true
				}
			}
		}
	}
	return models.Activity{}, false
}

// OperationOfActivity returns the operation execution id holding activityID
// in the loaded sheet.
func (s State) OperationOfActivity(activityID string) (string, bool) {
	if s.CurrentSheet == nil {
		return "", false
	}
	for _, op := range s.CurrentSheet.Operations {
		for _, p := range op.Parcels {
			for _, a := range p.Activities {
				if a.ID == activityID {
					return op.OperationExecution.ID, true
				}
			}
		}
	}
	return "", false
}
