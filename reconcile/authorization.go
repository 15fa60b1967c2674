// reconcile/authorization.go
package reconcile

import (
	"fmt"

	"github.com/luishdz04/muscleup-gym/device"
	"github.com/luishdz04/muscleup-gym/model"
)

// DeviceAuthorizationWriter flips one credential between allowed and
// denied on the terminal. The two-factor encoding behind it is an
// implementation detail of this interface, not of the reconciler.
type DeviceAuthorizationWriter interface {
	SetAuthorization(deviceUserID string, active bool) error
}

// AuthorizationError reports the per-factor outcome of one write pair.
type AuthorizationError struct {
	DeviceUserID string
	GroupErr     error
	ValidityErr  error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization write for %s: group=%v validity=%v",
		e.DeviceUserID, e.GroupErr, e.ValidityErr)
}

// Partial reports whether exactly one of the two factors was written.
func (e *AuthorizationError) Partial() bool {
	return (e.GroupErr == nil) != (e.ValidityErr == nil)
}

// pincerWriter sets group membership and the validity date range as a
// redundant pair. The terminal's own unlock-combination logic has
// proven unreliable, so an inactive credential is parked in the denied
// group AND stamped with an already-expired validity window; either
// factor alone blocks access if the other misbehaves.
type pincerWriter struct {
	driver       device.Driver
	allowedGroup int
	deniedGroup  int
}

func NewPincerWriter(driver device.Driver, allowedGroup, deniedGroup int) DeviceAuthorizationWriter {
	return &pincerWriter{
		driver:       driver,
		allowedGroup: allowedGroup,
		deniedGroup:  deniedGroup,
	}
}

func (w *pincerWriter) SetAuthorization(deviceUserID string, active bool) error {
	group := w.deniedGroup
	endDate := model.ValidEndDateInactive
	if active {
		group = w.allowedGroup
		endDate = model.ValidEndDateActive
	}

	// Both factors are always attempted, even when the first fails.
	groupErr := w.driver.SetGroup(deviceUserID, group)
	validityErr := w.driver.SetValidityWindow(deviceUserID, model.ValidStartDate, endDate)

	if groupErr != nil || validityErr != nil {
		return &AuthorizationError{
			DeviceUserID: deviceUserID,
			GroupErr:     groupErr,
			ValidityErr:  validityErr,
		}
	}
	return nil
}
