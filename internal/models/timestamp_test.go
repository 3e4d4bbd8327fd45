package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimestampDecodesBackendShapes(t *testing.T) {
	want := time.Date(2025, time.June, 3, 9, 30, 0, 0, time.UTC)

	cases := map[string]string{
		"millis":        `1748943000000`,
		"millis string": `"1748943000000"`,
		"rfc3339":       `"2025-06-03T09:30:00Z"`,
		"seconds obj":   `{"seconds":1748943000,"nanos":0}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(raw), &ts))
			require.True(t, ts.Equal(want), "got %s", ts.Time)
		})
	}
}

func TestTimestampNullIsZero(t *testing.T) {
	var sheet ExecutionSheet
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s1","completionDate":null}`), &sheet))
	require.True(t, sheet.CompletionDate.IsZero())
	require.Equal(t, "N/A", sheet.CompletionDate.Display("2006-01-02"))
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts Timestamp
	require.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &ts))
}

func TestActivityRunning(t *testing.T) {
	start := time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC)
	running := Activity{ID: "a1", StartTime: NewTimestamp(start)}
	require.True(t, running.Running())
	require.Equal(t, 30*time.Minute, running.Elapsed(start.Add(30*time.Minute)))

	done := Activity{ID: "a2", StartTime: NewTimestamp(start), EndTime: NewTimestamp(start.Add(time.Hour))}
	require.False(t, done.Running())
	require.Equal(t, time.Hour, done.Elapsed(start.Add(5*time.Hour)))
}

func TestParseSheetState(t *testing.T) {
	state, ok := ParseSheetState("in progress")
	require.True(t, ok)
	require.Equal(t, SheetInProgress, state)

	_, ok = ParseSheetState("archived")
	require.False(t, ok)
}

func TestUnreadCount(t *testing.T) {
	ns := []Notification{{ID: "1"}, {ID: "2", Read: true}, {ID: "3"}}
	require.Equal(t, 2, UnreadCount(ns))
}
