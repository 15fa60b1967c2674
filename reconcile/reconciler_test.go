// reconcile/reconciler_test.go
package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luishdz04/muscleup-gym/device"
	"github.com/luishdz04/muscleup-gym/model"
)

var testOpts = Options{
	AllowedGroupID:    2,
	DeniedGroupID:     3,
	AllowedTimezoneID: 1,
	DeniedTimezoneID:  2,
}

type staticEnrollment struct {
	identities []model.EnrolledIdentity
	err        error
}

func (s *staticEnrollment) EnrolledIdentities(ctx context.Context) ([]model.EnrolledIdentity, error) {
	return s.identities, s.err
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) InvalidateCache() { c.calls++ }

func enrolled(deviceUserID, firstName string, active bool) model.EnrolledIdentity {
	return model.EnrolledIdentity{
		User:         model.User{ID: "u-" + deviceUserID, FirstName: firstName, Fingerprint: true},
		DeviceUserID: deviceUserID,
		FingerIndex:  6,
		Template:     "blob-" + deviceUserID,
		IsActive:     active,
	}
}

func newTestReconciler(driver *device.MemoryDriver, enrollment EnrollmentLister, cache CacheInvalidator) *Reconciler {
	writer := NewPincerWriter(driver, testOpts.AllowedGroupID, testOpts.DeniedGroupID)
	return NewReconciler(driver, enrollment, writer, cache, nil, testOpts)
}

func TestProvisionWritesGroupWindows(t *testing.T) {
	driver := device.NewMemoryDriver()
	require.NoError(t, driver.Connect())
	r := newTestReconciler(driver, &staticEnrollment{}, &countingInvalidator{})

	require.NoError(t, r.Provision())

	assert.Equal(t, model.AllWeekWindow(), driver.GroupWindow(testOpts.AllowedGroupID))
	assert.Equal(t, "", driver.GroupWindow(testOpts.DeniedGroupID))
	assert.Equal(t, "2,0,0,0,0", driver.UnlockCombination())
	assert.Equal(t, 1, driver.Commits())
	assert.True(t, driver.AutonomousMode())
}

func TestReconcileCreatesMissingActiveIdentities(t *testing.T) {
	driver := device.NewMemoryDriver()
	require.NoError(t, driver.Connect())
	enrollment := &staticEnrollment{identities: []model.EnrolledIdentity{
		enrolled("7", "Ana", true),
		enrolled("8", "Luis", false),
	}}
	cache := &countingInvalidator{}
	r := newTestReconciler(driver, enrollment, cache)

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	// Only the active identity is created; the inactive one has
	// nothing on the device to restrict yet.
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Activated)
	assert.Equal(t, 1, result.Deactivated)
	assert.Equal(t, 0, result.PartialFailures)

	assignment, ok := driver.Assignment("7")
	require.True(t, ok)
	assert.Equal(t, testOpts.AllowedGroupID, assignment.GroupID)
	assert.Equal(t, model.ValidEndDateActive, assignment.ValidityEnd)
	assert.Equal(t, model.VerifyStyleFingerprintOnly, assignment.VerifyStyle)

	assert.Equal(t, 1, driver.Commits())
	assert.Equal(t, 1, cache.calls)
	assert.True(t, driver.AutonomousMode())
}

func TestReconcileIsIdempotent(t *testing.T) {
	driver := device.NewMemoryDriver()
	require.NoError(t, driver.Connect())
	enrollment := &staticEnrollment{identities: []model.EnrolledIdentity{
		enrolled("7", "Ana", true),
	}}
	r := newTestReconciler(driver, enrollment, &countingInvalidator{})

	first, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Activated)
}

func TestReconcileDeactivatesOnMembershipLapse(t *testing.T) {
	driver := device.NewMemoryDriver()
	require.NoError(t, driver.Connect())
	enrollment := &staticEnrollment{identities: []model.EnrolledIdentity{
		enrolled("7", "Ana", true),
	}}
	r := newTestReconciler(driver, enrollment, &countingInvalidator{})

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	// Membership lapses between passes.
	enrollment.identities[0].IsActive = false

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deactivated)

	assignment, ok := driver.Assignment("7")
	require.True(t, ok)
	assert.Equal(t, testOpts.DeniedGroupID, assignment.GroupID)
	assert.Equal(t, model.ValidEndDateInactive, assignment.ValidityEnd)
}

func TestReconcileCountsAuthorizationFailures(t *testing.T) {
	driver := device.NewMemoryDriver()
	require.NoError(t, driver.Connect())
	enrollment := &staticEnrollment{identities: []model.EnrolledIdentity{
		enrolled("7", "Ana", true),
		enrolled("8", "Luis", true),
	}}
	writer := &failingWriter{failFor: "8"}
	r := NewReconciler(driver, enrollment, writer, &countingInvalidator{}, nil, testOpts)

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Activated)
	assert.Equal(t, 1, result.PartialFailures)
}

func TestReconcileInvalidatesCacheWhenCommitFails(t *testing.T) {
	driver := &commitFailDriver{MemoryDriver: device.NewMemoryDriver()}
	require.NoError(t, driver.Connect())
	enrollment := &staticEnrollment{identities: []model.EnrolledIdentity{
		enrolled("7", "Ana", true),
	}}
	cache := &countingInvalidator{}
	writer := NewPincerWriter(driver, testOpts.AllowedGroupID, testOpts.DeniedGroupID)
	r := NewReconciler(driver, enrollment, writer, cache, nil, testOpts)

	_, err := r.Reconcile(context.Background())
	assert.Error(t, err)

	// The per-identity writes landed before the commit failed, so the
	// verdict cache must not keep serving pre-pass state.
	assert.Equal(t, 1, cache.calls)
}

func TestReconcileFailsWhenDeviceDisconnected(t *testing.T) {
	driver := device.NewMemoryDriver()
	enrollment := &staticEnrollment{identities: []model.EnrolledIdentity{
		enrolled("7", "Ana", true),
	}}
	r := newTestReconciler(driver, enrollment, &countingInvalidator{})

	_, err := r.Reconcile(context.Background())
	assert.Error(t, err)
}

func TestReconcileSurfacesEnrollmentErrors(t *testing.T) {
	driver := device.NewMemoryDriver()
	require.NoError(t, driver.Connect())
	enrollment := &staticEnrollment{err: errors.New("store unreachable")}
	r := newTestReconciler(driver, enrollment, &countingInvalidator{})

	_, err := r.Reconcile(context.Background())
	assert.Error(t, err)
	// Autonomous mode comes back even on a failed pass.
	assert.True(t, driver.AutonomousMode())
}

type commitFailDriver struct {
	*device.MemoryDriver
}

func (d *commitFailDriver) Commit() error {
	return errors.New("flash write rejected")
}

type failingWriter struct {
	failFor string
}

func (w *failingWriter) SetAuthorization(deviceUserID string, active bool) error {
	if deviceUserID == w.failFor {
		return &AuthorizationError{DeviceUserID: deviceUserID, GroupErr: errors.New("write failed")}
	}
	return nil
}
