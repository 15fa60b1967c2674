// device/memory.go
package device

import (
	"sync"

	"github.com/luishdz04/muscleup-gym/errors"
	"github.com/luishdz04/muscleup-gym/model"
)

// MemoryDriver is an in-memory terminal simulator. It backs the test
// suite and local development when no hardware is on the network.
type MemoryDriver struct {
	mu         sync.Mutex
	connected  bool
	autonomous bool

	realtime []model.AccessEvent
	log      []model.AccessEvent

	users        map[string]string // device user id -> display name
	templates    map[string]string // device user id -> template blob
	fingers      map[string]int
	groups       map[string]int
	validity     map[string][2]string
	verifyStyles map[string]int

	groupWindows map[int]string // group id -> window spec
	groupTZ      map[int]int
	unlockSpec   string
	commits      int
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		autonomous:   true,
		users:        make(map[string]string),
		templates:    make(map[string]string),
		fingers:      make(map[string]int),
		groups:       make(map[string]int),
		validity:     make(map[string][2]string),
		verifyStyles: make(map[string]int),
		groupWindows: make(map[int]string),
		groupTZ:      make(map[int]int),
	}
}

func (d *MemoryDriver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

func (d *MemoryDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *MemoryDriver) EnableAutonomousMode(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.autonomous = enabled
	return nil
}

// AutonomousMode reports the current hands-free state. Test hook.
func (d *MemoryDriver) AutonomousMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.autonomous
}

// InjectRealtimeEvent queues an event on the realtime buffer and
// appends it to the stored log, matching how the hardware records both.
func (d *MemoryDriver) InjectRealtimeEvent(ev model.AccessEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.realtime = append(d.realtime, ev)
	d.log = append(d.log, ev)
}

// InjectLogOnlyEvent appends an event to the stored log without
// surfacing it on the realtime buffer, simulating a dropped RT event.
func (d *MemoryDriver) InjectLogOnlyEvent(ev model.AccessEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, ev)
}

func (d *MemoryDriver) ReadRealtimeEvents() ([]model.AccessEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, errors.ErrDeviceNotConnected
	}
	events := d.realtime
	d.realtime = nil
	return events, nil
}

func (d *MemoryDriver) LogRecordCount() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return 0, errors.ErrDeviceNotConnected
	}
	return len(d.log), nil
}

func (d *MemoryDriver) ReadLogDelta(skip int) ([]model.AccessEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, errors.ErrDeviceNotConnected
	}
	if skip >= len(d.log) {
		return nil, nil
	}
	out := make([]model.AccessEvent, len(d.log)-skip)
	copy(out, d.log[skip:])
	return out, nil
}

func (d *MemoryDriver) OpenRelay(durationSeconds int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	return nil
}

func (d *MemoryDriver) EnumerateCredentialIDs() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, errors.ErrDeviceNotConnected
	}
	ids := make([]string, 0, len(d.users))
	for id := range d.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (d *MemoryDriver) WriteIdentity(deviceUserID, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.users[deviceUserID] = name
	return nil
}

func (d *MemoryDriver) WriteTemplate(deviceUserID string, fingerIndex int, template string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.templates[deviceUserID] = template
	d.fingers[deviceUserID] = fingerIndex
	return nil
}

func (d *MemoryDriver) SetVerifyStyle(deviceUserID string, style int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.verifyStyles[deviceUserID] = style
	return nil
}

func (d *MemoryDriver) SetGroup(deviceUserID string, groupID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.groups[deviceUserID] = groupID
	return nil
}

func (d *MemoryDriver) SetValidityWindow(deviceUserID, start, end string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.validity[deviceUserID] = [2]string{start, end}
	return nil
}

func (d *MemoryDriver) SetGroupTimeWindow(groupID, timezoneID int, windowSpec string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.groupWindows[groupID] = windowSpec
	d.groupTZ[groupID] = timezoneID
	return nil
}

func (d *MemoryDriver) SetUnlockCombination(spec string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.unlockSpec = spec
	return nil
}

func (d *MemoryDriver) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.ErrDeviceNotConnected
	}
	d.commits++
	return nil
}

// Assignment returns the current authorization state for a credential.
// Test hook.
func (d *MemoryDriver) Assignment(deviceUserID string) (model.DeviceAssignment, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[deviceUserID]; !ok {
		return model.DeviceAssignment{}, false
	}
	window := d.validity[deviceUserID]
	return model.DeviceAssignment{
		DeviceUserID:  deviceUserID,
		GroupID:       d.groups[deviceUserID],
		ValidityStart: window[0],
		ValidityEnd:   window[1],
		VerifyStyle:   d.verifyStyles[deviceUserID],
	}, true
}

// GroupWindow returns the time window spec provisioned for a group.
// Test hook.
func (d *MemoryDriver) GroupWindow(groupID int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.groupWindows[groupID]
}

// UnlockCombination returns the current unlock combination spec. Test hook.
func (d *MemoryDriver) UnlockCombination() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unlockSpec
}

// Commits returns the number of Commit calls. Test hook.
func (d *MemoryDriver) Commits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits
}
