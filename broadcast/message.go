// broadcast/message.go
package broadcast

import "github.com/luishdz04/muscleup-gym/model"

// Observer message types.
const (
	TypeAccessGranted      = "access_granted"
	TypeAccessDenied       = "access_denied"
	TypeReconcileCompleted = "sync_completed"
	TypeConnectionStatus   = "connection_status"
)

// AccessMessage is the observer-facing shape of one decision.
type AccessMessage struct {
	Type           string `json:"type"`
	UserID         string `json:"user_id,omitempty"`
	UserName       string `json:"user_name,omitempty"`
	Granted        bool   `json:"granted"`
	Reason         string `json:"reason,omitempty"`
	Timestamp      string `json:"timestamp"`
	EventTimestamp string `json:"event_timestamp,omitempty"`
}

// ReconcileMessage is the observer-facing summary of one pass.
type ReconcileMessage struct {
	Type      string                `json:"type"`
	Counts    model.ReconcileResult `json:"counts"`
	Timestamp string                `json:"timestamp"`
}
