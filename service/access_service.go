// service/access_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luishdz04/muscleup-gym/audit"
	"github.com/luishdz04/muscleup-gym/broadcast"
	logger "github.com/luishdz04/muscleup-gym/logging"
	"github.com/luishdz04/muscleup-gym/model"
	"github.com/luishdz04/muscleup-gym/pdp/engine"
	pdp_model "github.com/luishdz04/muscleup-gym/pdp/model"
	"github.com/luishdz04/muscleup-gym/util"
)

// RelayController is the slice of the device driver the access service
// needs: opening the door relay on a grant.
type RelayController interface {
	OpenRelay(durationSeconds int) error
}

// AccessService ties one decision to its side effects: relay unlock,
// audit row, and observer broadcast. Everything funnels through here
// so a cached verdict still unlocks the door and still leaves a trail.
type AccessService struct {
	evaluator     *engine.Evaluator
	relay         RelayController
	auditSvc      audit.Service
	eventBus      *util.EventBus
	unlockSeconds int
}

func NewAccessService(evaluator *engine.Evaluator, relay RelayController, auditSvc audit.Service, eventBus *util.EventBus, unlockDuration time.Duration) *AccessService {
	seconds := int(unlockDuration.Seconds())
	if seconds <= 0 {
		seconds = 5
	}
	return &AccessService{
		evaluator:     evaluator,
		relay:         relay,
		auditSvc:      auditSvc,
		eventBus:      eventBus,
		unlockSeconds: seconds,
	}
}

// ProcessEvent runs the full decision path for one presentation event.
// It never returns an error: every failure mode ends in a verdict and
// its corresponding audit/broadcast side effects.
func (s *AccessService) ProcessEvent(ctx context.Context, event model.AccessEvent) {
	verdict := s.evaluator.Evaluate(ctx, event.DeviceUserID)

	if verdict.Granted {
		logger.Info("ACCESS GRANTED",
			zap.String("deviceUserId", event.DeviceUserID),
			zap.String("userName", verdict.UserName),
			zap.String("reason", verdict.Reason))

		if err := s.relay.OpenRelay(s.unlockSeconds); err != nil {
			logger.Error("Failed to open door relay", zap.Error(err))
		}
	} else {
		logger.Warn("ACCESS DENIED",
			zap.String("deviceUserId", event.DeviceUserID),
			zap.String("reason", verdict.Reason))
	}

	s.writeAudit(ctx, verdict, event)
	s.broadcastVerdict(ctx, verdict, event)
}

// ValidateAccess evaluates a credential without touching the relay.
// Backs the manual validation action on the admin surface.
func (s *AccessService) ValidateAccess(ctx context.Context, deviceUserID string) *pdp_model.Verdict {
	return s.evaluator.Evaluate(ctx, deviceUserID)
}

// ReloadConfig refreshes the global access configuration and notifies
// observers.
func (s *AccessService) ReloadConfig(ctx context.Context) error {
	if err := s.evaluator.ReloadConfig(ctx); err != nil {
		return err
	}
	s.eventBus.Publish(ctx, util.EventConfigReloaded, s.evaluator.Config())
	return nil
}

// Config returns the current cached global configuration.
func (s *AccessService) Config() model.AccessConfig {
	return s.evaluator.Config()
}

func (s *AccessService) writeAudit(ctx context.Context, verdict *pdp_model.Verdict, event model.AccessEvent) {
	accessType := "entry"
	if !verdict.Granted {
		accessType = "denied"
	}
	// The audit row records when the tap happened, not when the
	// verdict was computed; a cached verdict keeps its original
	// Timestamp.
	entry := audit.Entry{
		Timestamp:    event.Timestamp,
		UserID:       verdict.UserID,
		AccessType:   accessType,
		AccessMethod: "fingerprint",
		Granted:      verdict.Granted,
	}
	if !verdict.Granted {
		entry.DenialReason = verdict.Reason
	}
	if err := s.auditSvc.LogAccess(ctx, entry); err != nil {
		logger.Error("Failed to write access audit row", zap.Error(err))
	}
}

func (s *AccessService) broadcastVerdict(ctx context.Context, verdict *pdp_model.Verdict, event model.AccessEvent) {
	msgType := broadcast.TypeAccessGranted
	eventType := util.EventAccessGranted
	if !verdict.Granted {
		msgType = broadcast.TypeAccessDenied
		eventType = util.EventAccessDenied
	}
	s.eventBus.Publish(ctx, eventType, broadcast.AccessMessage{
		Type:           msgType,
		UserID:         verdict.UserID,
		UserName:       verdict.UserName,
		Granted:        verdict.Granted,
		Reason:         verdict.Reason,
		Timestamp:      time.Now().Format(time.RFC3339),
		EventTimestamp: event.Timestamp.Format(time.RFC3339),
	})
}
