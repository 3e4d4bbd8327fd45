package models

import (
	"encoding/json"
	"time"
)

// Activity is a timed work session by one operator on one parcel
type Activity struct {
	ID                         string    `json:"id"`
	ParcelOperationExecutionID string    `json:"parcelOperationExecutionId,omitempty"`
	ParcelID                   string    `json:"parcelId,omitempty"`
	OperatorID                 string    `json:"operatorId"`
	StartTime                  Timestamp `json:"startTime"`
	EndTime                    Timestamp `json:"endTime"` // zero while running
	Observations               string    `json:"observations,omitempty"`
	PhotoURLs                  PhotoURLs `json:"photoUrls"`
	GPSTrack                   string    `json:"gpsTrack,omitempty"`
}

// UnmarshalJSON also accepts "activityId", which the activity listings use
// instead of "id".
func (a *Activity) UnmarshalJSON(data []byte) error {
	type plain Activity
	var aux struct {
		plain
		ActivityID string `json:"activityId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Activity(aux.plain)
	if a.ID == "" {
		a.ID = aux.ActivityID
	}
	return nil
}

// Running reports whether the activity has no end marker yet.
func (a Activity) Running() bool {
	return a.EndTime.IsZero()
}

// Elapsed returns how long the activity ran, or has been running as of now.
func (a Activity) Elapsed(now time.Time) time.Duration {
	if a.StartTime.IsZero() {
		return 0
	}
	end := now
	if !a.Running() {
		end = a.EndTime.Time
	}
	if end.Before(a.StartTime.Time) {
		return 0
	}
	return end.Sub(a.StartTime.Time)
}

// PhotoURLs decodes plain strings as well as the {"string": "..."} wrappers
// some datastore values serialize to. Empty entries are dropped.
type PhotoURLs []string

func (p *PhotoURLs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	urls := make(PhotoURLs, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" {
				urls = append(urls, s)
			}
			continue
		}
		var wrapped struct {
			String string `json:"string"`
		}
		if err := json.Unmarshal(item, &wrapped); err != nil {
			return err
		}
		if wrapped.String != "" {
			urls = append(urls, wrapped.String)
		}
	}
	*p = urls
	return nil
}
