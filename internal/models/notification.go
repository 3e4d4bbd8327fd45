package models

// Notification is an outbound message addressed to the current user.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
	Read      bool      `json:"read"`
}

// UnreadCount counts notifications not yet read.
func UnreadCount(ns []Notification) int {
	n := 0
	for _, notification := range ns {
		if !notification.Read {
			n++
		}
	}
	return n
}
