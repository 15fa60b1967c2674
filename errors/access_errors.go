// errors/access_errors.go
package errors

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found for device credential")
	ErrStoreOperation       = errors.New("record store operation failed")
	ErrInvalidCredential    = errors.New("invalid device credential id")
	ErrDeviceNotConnected   = errors.New("device not connected")
	ErrDeviceConnectionLost = errors.New("device connection lost")
)
