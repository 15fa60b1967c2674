// ingest/monitor.go
package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	access_errors "github.com/luishdz04/muscleup-gym/errors"
	logger "github.com/luishdz04/muscleup-gym/logging"
	"github.com/luishdz04/muscleup-gym/model"
)

// Dispatcher consumes one deduplicated presentation event.
type Dispatcher interface {
	ProcessEvent(ctx context.Context, event model.AccessEvent)
}

// Monitor is the single background worker polling the terminal for
// presentation events. It never blocks the rest of the system: each
// event is dispatched on its own goroutine, and a failing evaluation
// cannot stop ingestion of subsequent events.
type Monitor struct {
	sources    []EventSource
	dedup      *DedupSet
	dispatcher Dispatcher
	interval   time.Duration
	backoff    time.Duration

	onConnectionLost func(error)

	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewMonitor builds a monitor over a prioritized list of event
// sources. onConnectionLost is invoked at most once per Start when the
// device reports an unrecoverable connection loss; it may be nil.
func NewMonitor(sources []EventSource, dedup *DedupSet, dispatcher Dispatcher, interval, backoff time.Duration, onConnectionLost func(error)) *Monitor {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Monitor{
		sources:          sources,
		dedup:            dedup,
		dispatcher:       dispatcher,
		interval:         interval,
		backoff:          backoff,
		onConnectionLost: onConnectionLost,
	}
}

// Start launches the polling worker. Returns false when already
// running.
func (m *Monitor) Start(ctx context.Context) bool {
	if !m.running.CompareAndSwap(false, true) {
		return false
	}
	m.primeSources()
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run(ctx)
	logger.Info("Access event monitoring started",
		zap.Duration("interval", m.interval))
	return true
}

// Stop halts the polling worker and waits for it to exit. In-flight
// dispatches are not interrupted; the unit of cancellation is "stop
// accepting new events".
func (m *Monitor) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stop)
	m.wg.Wait()
	logger.Info("Access event monitoring stopped")
}

// IsRunning reports whether the polling worker is active.
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// primeSources lets sources that track a position in device storage
// anchor it to the moment monitoring starts, not to their first poll.
func (m *Monitor) primeSources() {
	for _, source := range m.sources {
		p, ok := source.(interface{ Prime() error })
		if !ok {
			continue
		}
		if err := p.Prime(); err != nil {
			logger.Warn("Failed to prime event source",
				zap.String("source", source.Name()), zap.Error(err))
		}
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()
	defer m.running.Store(false)

	wait := m.interval
	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := m.tick(ctx); err != nil {
			if m.isConnectionLoss(err) {
				logger.Error("Device connection lost, stopping ingestion", zap.Error(err))
				if m.onConnectionLost != nil {
					m.onConnectionLost(err)
				}
				return
			}
			logger.Error("Event polling failed, backing off", zap.Error(err))
			wait = m.backoff
			continue
		}
		wait = m.interval
	}
}

// tick polls the sources in priority order. The first source that
// yields events ends the tick; lower-priority sources catch up on the
// next one, with the dedup set absorbing the overlap.
func (m *Monitor) tick(ctx context.Context) error {
	for _, source := range m.sources {
		events, err := source.Poll()
		if err != nil {
			return err
		}
		if len(events) == 0 {
			continue
		}

		for _, event := range events {
			if !m.dedup.Observe(event.DedupKey()) {
				continue
			}
			logger.Info("Presentation event detected",
				zap.String("source", source.Name()),
				zap.String("deviceUserId", event.DeviceUserID),
				zap.Time("capturedAt", event.Timestamp))

			ev := event
			go m.dispatcher.ProcessEvent(ctx, ev)
		}
		return nil
	}
	return nil
}

func (m *Monitor) isConnectionLoss(err error) bool {
	return errors.Is(err, access_errors.ErrDeviceNotConnected) ||
		errors.Is(err, access_errors.ErrDeviceConnectionLost)
}
