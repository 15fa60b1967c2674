// reconcile/reconciler.go
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luishdz04/muscleup-gym/broadcast"
	"github.com/luishdz04/muscleup-gym/device"
	logger "github.com/luishdz04/muscleup-gym/logging"
	"github.com/luishdz04/muscleup-gym/model"
	"github.com/luishdz04/muscleup-gym/util"
)

// EnrollmentLister enumerates enrolled store identities for a pass.
type EnrollmentLister interface {
	EnrolledIdentities(ctx context.Context) ([]model.EnrolledIdentity, error)
}

// CacheInvalidator drops cached verdicts once device state has moved.
type CacheInvalidator interface {
	InvalidateCache()
}

// Options carries the hardware ids the reconciler provisions.
type Options struct {
	AllowedGroupID    int
	DeniedGroupID     int
	AllowedTimezoneID int
	DeniedTimezoneID  int
}

// Reconciler keeps the terminal's group/timezone/validity configuration
// in line with the authoritative membership state. The record store is
// the source of truth for desired state; the terminal for current state.
type Reconciler struct {
	driver     device.Driver
	enrollment EnrollmentLister
	authWriter DeviceAuthorizationWriter
	cache      CacheInvalidator
	eventBus   *util.EventBus
	opts       Options

	passMu  sync.Mutex
	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewReconciler(driver device.Driver, enrollment EnrollmentLister, authWriter DeviceAuthorizationWriter, cache CacheInvalidator, eventBus *util.EventBus, opts Options) *Reconciler {
	return &Reconciler{
		driver:     driver,
		enrollment: enrollment,
		authWriter: authWriter,
		cache:      cache,
		eventBus:   eventBus,
		opts:       opts,
	}
}

// Provision sets up the allowed/denied groups, their time windows, and
// the unlock combination. Runs once before any per-identity pass: the
// allowed group's window is all day every day, the denied group's
// window matches nothing, and the unlock combination is forced to
// "allowed group alone" so the hardware can never demand a multi-group
// combination on its own.
func (r *Reconciler) Provision() error {
	if err := r.driver.EnableAutonomousMode(false); err != nil {
		return fmt.Errorf("disabling autonomous mode: %w", err)
	}
	defer r.enableAutonomous()

	if err := r.driver.SetGroupTimeWindow(r.opts.AllowedGroupID, r.opts.AllowedTimezoneID, model.AllWeekWindow()); err != nil {
		return fmt.Errorf("provisioning allowed group: %w", err)
	}
	if err := r.driver.SetGroupTimeWindow(r.opts.DeniedGroupID, r.opts.DeniedTimezoneID, ""); err != nil {
		return fmt.Errorf("provisioning denied group: %w", err)
	}

	combination := fmt.Sprintf("%d,0,0,0,0", r.opts.AllowedGroupID)
	if err := r.driver.SetUnlockCombination(combination); err != nil {
		logger.Warn("Could not force unlock combination", zap.Error(err))
	}

	if err := r.driver.Commit(); err != nil {
		return fmt.Errorf("committing group provisioning: %w", err)
	}

	logger.Info("Access groups provisioned",
		zap.Int("allowedGroup", r.opts.AllowedGroupID),
		zap.Int("deniedGroup", r.opts.DeniedGroupID))
	return nil
}

// Reconcile runs one full diff-and-write pass. Idempotent: all
// per-identity writes are pure overwrites, so a second pass with
// unchanged data produces identical counts and zero creations.
func (r *Reconciler) Reconcile(ctx context.Context) (model.ReconcileResult, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	var result model.ReconcileResult

	// Reconciliation owns the device exclusively for the duration of
	// the pass; re-enabling is guaranteed on every exit path.
	if err := r.driver.EnableAutonomousMode(false); err != nil {
		return result, fmt.Errorf("disabling autonomous mode: %w", err)
	}
	defer r.enableAutonomous()

	var (
		deviceIDs  []string
		identities []model.EnrolledIdentity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := r.driver.EnumerateCredentialIDs()
		if err != nil {
			return fmt.Errorf("enumerating device credentials: %w", err)
		}
		deviceIDs = ids
		return nil
	})
	g.Go(func() error {
		rows, err := r.enrollment.EnrolledIdentities(gctx)
		if err != nil {
			return fmt.Errorf("listing enrolled identities: %w", err)
		}
		identities = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return result, err
	}

	onDevice := make(map[string]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		onDevice[id] = struct{}{}
	}

	logger.Info("Starting reconciliation pass",
		zap.Int("deviceCredentials", len(deviceIDs)),
		zap.Int("storeIdentities", len(identities)))

	for _, identity := range identities {
		_, exists := onDevice[identity.DeviceUserID]

		// Inactive identities are never auto-created: there is nothing
		// to restrict until a membership exists.
		if !exists && identity.IsActive {
			if err := r.createOnDevice(identity); err != nil {
				logger.Error("Failed to create identity on device",
					zap.Error(err), zap.String("deviceUserId", identity.DeviceUserID))
				result.PartialFailures++
				continue
			}
			result.Created++
		}

		// Weaker verification paths stay closed for everyone, active or
		// not.
		if err := r.driver.SetVerifyStyle(identity.DeviceUserID, model.VerifyStyleFingerprintOnly); err != nil {
			logger.Warn("Failed to set verify style",
				zap.Error(err), zap.String("deviceUserId", identity.DeviceUserID))
		}

		if err := r.authWriter.SetAuthorization(identity.DeviceUserID, identity.IsActive); err != nil {
			if authErr, ok := err.(*AuthorizationError); ok && authErr.Partial() {
				logger.Warn("Partial double-factor write",
					zap.String("deviceUserId", identity.DeviceUserID),
					zap.NamedError("groupErr", authErr.GroupErr),
					zap.NamedError("validityErr", authErr.ValidityErr))
			} else {
				logger.Error("Double-factor write failed",
					zap.Error(err), zap.String("deviceUserId", identity.DeviceUserID))
			}
			result.PartialFailures++
			continue
		}

		if identity.IsActive {
			result.Activated++
		} else {
			result.Deactivated++
		}
	}

	// Every cached grant or denial is suspect once device and store
	// state have moved. The device writes above have landed even if the
	// commit below fails, so invalidate first.
	r.cache.InvalidateCache()

	// One device-wide commit batches the flash writes.
	if err := r.driver.Commit(); err != nil {
		return result, fmt.Errorf("committing reconciliation pass: %w", err)
	}

	logger.Info("Reconciliation pass completed",
		zap.Int("created", result.Created),
		zap.Int("activated", result.Activated),
		zap.Int("deactivated", result.Deactivated),
		zap.Int("partialFailures", result.PartialFailures))

	if r.eventBus != nil {
		r.eventBus.Publish(ctx, util.EventReconcileCompleted, broadcast.ReconcileMessage{
			Type:      broadcast.TypeReconcileCompleted,
			Counts:    result,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return result, nil
}

// Start launches the periodic reconciliation loop, beginning with an
// immediate pass. Returns false when already running.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) bool {
	if !r.running.CompareAndSwap(false, true) {
		return false
	}
	if interval <= 0 {
		interval = 300 * time.Second
	}
	r.stop = make(chan struct{})
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)

		if _, err := r.Reconcile(ctx); err != nil {
			logger.Error("Initial reconciliation failed", zap.Error(err))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Reconcile(ctx); err != nil {
					logger.Error("Periodic reconciliation failed", zap.Error(err))
				}
			}
		}
	}()
	return true
}

// Stop halts the periodic loop and waits for it to exit.
func (r *Reconciler) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	close(r.stop)
	r.wg.Wait()
}

func (r *Reconciler) createOnDevice(identity model.EnrolledIdentity) error {
	if err := r.driver.WriteIdentity(identity.DeviceUserID, identity.User.FullName()); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	if err := r.driver.WriteTemplate(identity.DeviceUserID, identity.FingerIndex, identity.Template); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	logger.Info("Created identity on device",
		zap.String("deviceUserId", identity.DeviceUserID),
		zap.String("name", identity.User.FullName()))
	return nil
}

func (r *Reconciler) enableAutonomous() {
	if err := r.driver.EnableAutonomousMode(true); err != nil {
		logger.Error("Failed to re-enable autonomous device mode", zap.Error(err))
	}
}
