// model/access.go
package model

import (
	"fmt"
	"time"
)

// In/out direction reported by the terminal for a presentation event.
const (
	DirectionIn  = 0
	DirectionOut = 1
)

// AccessEvent is one credential presentation captured by the terminal.
// Ephemeral; consumed exactly once by the decision engine.
type AccessEvent struct {
	DeviceUserID string    `json:"user_id"`
	VerifyMode   int       `json:"verify_mode"`
	InOutMode    int       `json:"in_out_mode"`
	Timestamp    time.Time `json:"timestamp"`
}

// DedupKey identifies an event across the two device read paths:
// credential id plus second-precision capture time.
func (e AccessEvent) DedupKey() string {
	return fmt.Sprintf("%s_%s", e.DeviceUserID, e.Timestamp.Format("20060102_150405"))
}

// AccessLog is one access_logs row written for every terminal verdict.
type AccessLog struct {
	UserID          string `json:"user_id"`
	DeviceID        string `json:"device_id,omitempty"`
	AccessType      string `json:"access_type"` // "entry" or "denied"
	AccessMethod    string `json:"access_method"`
	Success         bool   `json:"success"`
	DenialReason    string `json:"denial_reason,omitempty"`
	DeviceTimestamp string `json:"device_timestamp"`
}
