package notify

import (
	"sync"

	"github.com/spec-kit/portfolio-portal/internal/domain"
)

// AlertBoard holds the alerts on screen for one viewer. Alerts never time
// out; they leave only through Dismiss.
type AlertBoard struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

// NewAlertBoard returns an empty board.
func NewAlertBoard() *AlertBoard {
	return &AlertBoard{}
}

// Push shows a new alert.
func (b *AlertBoard) Push(alert domain.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, alert)
}

// List returns the visible alerts, oldest first.
func (b *AlertBoard) List() []domain.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Alert, len(b.alerts))
	copy(out, b.alerts)
	return out
}

// Dismiss removes the alert for notification id and reports whether it was visible.
func (b *AlertBoard) Dismiss(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, alert := range b.alerts {
		if alert.NotificationID == id {
			b.alerts = append(b.alerts[:i], b.alerts[i+1:]...)
			return true
		}
	}
	return false
}
