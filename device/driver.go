// device/driver.go
package device

import "github.com/luishdz04/muscleup-gym/model"

// Driver is the black-box terminal collaborator. The production
// implementation bridges to the vendor SDK on the machine wired to the
// turnstile; everything above it only sees these operations.
type Driver interface {
	Connect() error
	Disconnect() error

	// EnableAutonomousMode toggles the terminal's hands-free behavior.
	// Reconciliation disables it for the duration of a pass so the two
	// workers never interleave raw device I/O.
	EnableAutonomousMode(enabled bool) error

	// ReadRealtimeEvents drains the realtime event buffer. An empty
	// slice with a nil error means no pending events.
	ReadRealtimeEvents() ([]model.AccessEvent, error)

	// LogRecordCount reports the total number of stored log records.
	LogRecordCount() (int, error)

	// ReadLogDelta reads stored log records, skipping the first skip
	// entries. The fallback path when the realtime buffer drops events.
	ReadLogDelta(skip int) ([]model.AccessEvent, error)

	// OpenRelay unlocks the door relay for the given number of seconds.
	OpenRelay(durationSeconds int) error

	EnumerateCredentialIDs() ([]string, error)
	WriteIdentity(deviceUserID, name string) error
	WriteTemplate(deviceUserID string, fingerIndex int, template string) error
	SetVerifyStyle(deviceUserID string, style int) error
	SetGroup(deviceUserID string, groupID int) error
	SetValidityWindow(deviceUserID, start, end string) error

	SetGroupTimeWindow(groupID, timezoneID int, windowSpec string) error
	SetUnlockCombination(spec string) error

	// Commit flushes all pending writes to device flash.
	Commit() error
}
