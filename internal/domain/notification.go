package domain

import "time"

// DefaultAlertTitle is shown when a notification arrives without a title.
const DefaultAlertTitle = "Notification"

// Notification is a pending message for the viewer, already normalized.
type Notification struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Alert is a notification surfaced on screen until the viewer dismisses it.
type Alert struct {
	NotificationID int64     `json:"notification_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	RaisedAt       time.Time `json:"raised_at"`
}

// NewAlert builds the on-screen alert for n.
func NewAlert(n Notification, at time.Time) Alert {
	title := n.Title
	if title == "" {
		title = DefaultAlertTitle
	}
	return Alert{NotificationID: n.ID, Title: title, Message: n.Message, RaisedAt: at}
}
