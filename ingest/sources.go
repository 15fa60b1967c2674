// ingest/sources.go
package ingest

import (
	"github.com/luishdz04/muscleup-gym/device"
	"github.com/luishdz04/muscleup-gym/model"
)

// EventSource is one way of extracting presentation events from the
// terminal. Sources are polled in priority order and merged through
// the same dedup set, because neither read path is reliable alone on
// this hardware.
type EventSource interface {
	Name() string
	Poll() ([]model.AccessEvent, error)
}

// realtimeSource drains the terminal's realtime event buffer.
type realtimeSource struct {
	driver device.Driver
}

func NewRealtimeSource(driver device.Driver) EventSource {
	return &realtimeSource{driver: driver}
}

func (s *realtimeSource) Name() string { return "realtime" }

func (s *realtimeSource) Poll() ([]model.AccessEvent, error) {
	return s.driver.ReadRealtimeEvents()
}

// logDeltaSource watches the terminal's stored-record count and reads
// only newly appended records. The fallback when the realtime buffer
// drops an event.
type logDeltaSource struct {
	driver    device.Driver
	lastCount int
	primed    bool
}

func NewLogDeltaSource(driver device.Driver) EventSource {
	return &logDeltaSource{driver: driver}
}

func (s *logDeltaSource) Name() string { return "log-delta" }

// Prime records the current log length so records predating the
// service are never replayed. Called when monitoring starts; without
// it the baseline would drift to whenever this source first gets a
// poll, swallowing any log-only event landing in between.
func (s *logDeltaSource) Prime() error {
	count, err := s.driver.LogRecordCount()
	if err != nil {
		return err
	}
	s.lastCount = count
	s.primed = true
	return nil
}

func (s *logDeltaSource) Poll() ([]model.AccessEvent, error) {
	count, err := s.driver.LogRecordCount()
	if err != nil {
		return nil, err
	}

	// Fallback when priming at start failed, e.g. the device was still
	// connecting.
	if !s.primed {
		s.lastCount = count
		s.primed = true
		return nil, nil
	}

	if count <= s.lastCount {
		return nil, nil
	}

	events, err := s.driver.ReadLogDelta(s.lastCount)
	if err != nil {
		return nil, err
	}
	s.lastCount = count
	return events, nil
}
