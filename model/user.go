// model/user.go
package model

// User is the stable person record in the store, distinct from any
// device-local credential id.
type User struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email,omitempty"`
	Fingerprint bool   `json:"fingerprint"`
}

// FullName returns the display name written to the terminal.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// FingerprintTemplate maps a store identity to a device-local
// credential id and carries the enrolled template blob.
type FingerprintTemplate struct {
	UserID       string `json:"user_id"`
	DeviceUserID string `json:"device_user_id"`
	FingerIndex  int    `json:"finger_index"`
	Template     string `json:"template"`
}

// EnrolledIdentity is one store identity annotated for reconciliation:
// the device credential it maps to and whether any membership row is
// currently active.
type EnrolledIdentity struct {
	User         User
	DeviceUserID string
	FingerIndex  int
	Template     string
	IsActive     bool
}
