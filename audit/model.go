// audit/model.go
package audit

import "time"

// Entry is one audited access decision.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id"`
	DeviceID     string    `json:"device_id,omitempty"`
	AccessType   string    `json:"access_type"` // "entry" or "denied"
	AccessMethod string    `json:"access_method"`
	Granted      bool      `json:"granted"`
	DenialReason string    `json:"denial_reason,omitempty"`
}
