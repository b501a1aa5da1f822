package backend

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/spec-kit/portfolio-portal/internal/domain"
)

// The backend serializes notifications inconsistently, so every field is looked
// up under each casing it has been seen with. The first present key wins.
var (
	notificationIDKeys      = []string{"id", "ID", "Id", "notification_id", "Notification_ID", "NotificationID"}
	notificationTitleKeys   = []string{"title", "Title", "notification_title", "Notification_Title"}
	notificationMessageKeys = []string{"message", "Message", "notification_message", "Notification_Message"}
)

type record map[string]json.RawMessage

// decodeRecords accepts a bare array or a {"data": [...]} envelope.
func decodeRecords(body []byte) ([]record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []record
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	if !present(env.Data) {
		return nil, nil
	}
	if err := json.Unmarshal(env.Data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func normalizeNotification(rec record) (domain.Notification, bool) {
	raw, ok := rec.lookup(notificationIDKeys)
	if !ok {
		return domain.Notification{}, false
	}
	id, ok := parseID(raw)
	if !ok {
		return domain.Notification{}, false
	}
	return domain.Notification{
		ID:      id,
		Title:   rec.text(notificationTitleKeys),
		Message: rec.text(notificationMessageKeys),
	}, true
}

func (r record) lookup(keys []string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := r[key]; ok && present(raw) {
			return raw, true
		}
	}
	return nil, false
}

func (r record) text(keys []string) string {
	raw, ok := r.lookup(keys)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// parseID accepts JSON numbers and numeric strings. Zero and negative ids are invalid.
func parseID(raw json.RawMessage) (int64, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if id, err := n.Int64(); err == nil {
		return id, id > 0
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f <= 0 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
