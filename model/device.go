// model/device.go
package model

// Hardware authorization constants for the terminal's native model.
// The allowed group is reachable all day every day; the denied group's
// time window matches nothing. Validity dates are the second pincer:
// an inactive credential is parked in the denied group AND given an
// already-expired validity window, so either factor alone blocks it.
const (
	VerifyStyleFingerprintOnly = 1

	ValidStartDate       = "2024-01-01 00:00:00"
	ValidEndDateActive   = "2099-12-31 23:59:59"
	ValidEndDateInactive = "2000-01-01 23:59:59"

	// One day segment of a terminal timezone spec: open 00:00-23:59.
	// A full week is the segment repeated seven times; an empty spec
	// matches nothing.
	TimeWindowAllDay = "00002359"
)

// AllWeekWindow returns the timezone spec granting access all day,
// every day of the week.
func AllWeekWindow() string {
	spec := ""
	for i := 0; i < 7; i++ {
		spec += TimeWindowAllDay
	}
	return spec
}

// DeviceAssignment is the terminal-side authorization state for one
// enrolled credential. Owned exclusively by the reconciler.
type DeviceAssignment struct {
	DeviceUserID  string
	GroupID       int
	ValidityStart string
	ValidityEnd   string
	VerifyStyle   int
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Created         int `json:"created"`
	Activated       int `json:"activated"`
	Deactivated     int `json:"deactivated"`
	PartialFailures int `json:"partial_failures"`
}
