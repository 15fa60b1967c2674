// pdp/engine/evaluator.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	access_errors "github.com/luishdz04/muscleup-gym/errors"
	logger "github.com/luishdz04/muscleup-gym/logging"
	"github.com/luishdz04/muscleup-gym/model"
	pdp_model "github.com/luishdz04/muscleup-gym/pdp/model"
)

// Store is the slice of the record store the evaluator reads from.
type Store interface {
	UserByDeviceCredential(ctx context.Context, deviceUserID string) (*model.User, error)
	LatestMembership(ctx context.Context, userID string) (*model.Membership, error)
	PlanRestrictions(ctx context.Context, planID string) (*model.PlanRestriction, error)
	ActiveGrant(ctx context.Context, userID string, now time.Time) (*model.TemporaryAccess, error)
	IncrementCounter(ctx context.Context, grantID string) error
	Config(ctx context.Context) (*model.AccessConfig, error)
	CountDailyEntries(ctx context.Context, userID string, dayStart, dayEnd time.Time) (int, error)
}

// Evaluator runs the access-decision pipeline for one presented
// credential. The pipeline order is fixed so a denial always reports
// the most meaningful reason, not the cheapest one.
type Evaluator struct {
	store Store
	cache *VerdictCache
	tz    *time.Location
	now   func() time.Time

	mu           sync.RWMutex
	accessConfig model.AccessConfig
}

func NewEvaluator(store Store, cacheTTL time.Duration, tz *time.Location) *Evaluator {
	if tz == nil {
		tz = time.UTC
	}
	return &Evaluator{
		store:        store,
		cache:        NewVerdictCache(cacheTTL),
		tz:           tz,
		now:          time.Now,
		accessConfig: model.DefaultAccessConfig(),
	}
}

// ReloadConfig refreshes the cached global access configuration from
// the store and drops all cached verdicts. When the store is
// unreachable the previously loaded copy stays authoritative.
func (e *Evaluator) ReloadConfig(ctx context.Context) error {
	cfg, err := e.store.Config(ctx)
	if err != nil {
		logger.Error("Failed to reload access configuration", zap.Error(err))
		return err
	}
	if cfg == nil {
		logger.Warn("No access configuration row found, keeping current copy")
		return nil
	}

	e.mu.Lock()
	e.accessConfig = *cfg
	e.mu.Unlock()
	e.cache.InvalidateAll()

	logger.Info("Access configuration reloaded",
		zap.Bool("biometricEnabled", cfg.EnableBiometric),
		zap.Bool("scheduleEnabled", cfg.AccessScheduleEnabled))
	return nil
}

// Config returns the current cached global configuration.
func (e *Evaluator) Config() model.AccessConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.accessConfig
}

// InvalidateCache drops every cached verdict.
func (e *Evaluator) InvalidateCache() {
	e.cache.InvalidateAll()
}

// Evaluate decides whether the credential presented at the terminal is
// granted access. It always terminates in exactly one verdict;
// collaborator failures become denials except where a step explicitly
// fails open.
func (e *Evaluator) Evaluate(ctx context.Context, deviceUserID string) *pdp_model.Verdict {
	now := e.now().In(e.tz)

	if deviceUserID == "" {
		return &pdp_model.Verdict{
			Granted:   false,
			Reason:    "validation error: empty credential id",
			Timestamp: now,
		}
	}

	// 1. Cache hit returns the stored verdict unchanged; staleness is
	// bounded by the TTL.
	if cached := e.cache.Get(deviceUserID, now); cached != nil {
		logger.Info("Using cached verdict", zap.String("deviceUserId", deviceUserID))
		return cached
	}

	verdict := e.evaluate(ctx, deviceUserID, now)
	verdict.Timestamp = now

	// 9. Cache the final verdict.
	e.cache.Set(deviceUserID, verdict, now)
	return verdict
}

func (e *Evaluator) evaluate(ctx context.Context, deviceUserID string, now time.Time) *pdp_model.Verdict {
	cfg := e.Config()
	trace := []pdp_model.StepResult{}

	// 2. Global biometric switch, independent of identity.
	if !cfg.EnableBiometric {
		return deny("biometric control disabled", "", "", trace)
	}
	trace = append(trace, pass("biometric_enabled"))

	// 3. Identity resolution. Whether the id exists anywhere else is
	// deliberately not leaked.
	user, err := e.store.UserByDeviceCredential(ctx, deviceUserID)
	if err != nil {
		if errors.Is(err, access_errors.ErrUserNotFound) {
			return deny("unknown credential", "", "", trace)
		}
		return deny(fmt.Sprintf("validation error: %v", err), "", "", trace)
	}
	userName := user.FullName()
	trace = append(trace, pass("identity"))

	// 4. Enrollment completeness.
	if !user.Fingerprint {
		return deny("no enrolled fingerprint template", user.ID, userName, trace)
	}
	trace = append(trace, pass("enrollment"))

	base := e.evaluateMembershipPolicies(ctx, cfg, user, now, trace)

	// 8. Temporary access overlay: an explicit escape hatch that can
	// override a membership or plan denial. Redemption is atomic on
	// the store side, exactly once per granted use.
	if overlay := e.temporaryOverlay(ctx, user, now); overlay != nil {
		overlay.Trace = append(base.Trace, pass("temporary_access"))
		return overlay
	}
	return base
}

// evaluateMembershipPolicies runs steps 5-7: membership, global
// schedule, and plan restrictions. Returns the verdict before the
// temporary-access overlay is considered.
func (e *Evaluator) evaluateMembershipPolicies(ctx context.Context, cfg model.AccessConfig, user *model.User, now time.Time, trace []pdp_model.StepResult) *pdp_model.Verdict {
	var membership *model.Membership

	// 5. Membership check.
	if cfg.RequireActiveMembership {
		m, err := e.store.LatestMembership(ctx, user.ID)
		if err != nil {
			return deny("membership validation error", user.ID, user.FullName(), trace)
		}
		if m == nil {
			return deny("no active membership", user.ID, user.FullName(), trace)
		}
		if m.Status == model.MembershipFrozen {
			return deny("membership frozen", user.ID, user.FullName(), trace)
		}
		if expired, endDate := membershipExpired(m, now); expired {
			return deny(fmt.Sprintf("membership expired on %s", endDate), user.ID, user.FullName(), trace)
		}
		if m.PaymentType == model.PaymentTypeVisit && m.RemainingVisits <= 0 {
			return deny("no remaining visits", user.ID, user.FullName(), trace)
		}
		membership = m
		trace = append(trace, pass("membership"))
	}

	// 6. Global schedule. Fails open on internal errors so a
	// misconfigured schedule never locks the whole gym out.
	if cfg.AccessScheduleEnabled {
		ok, reason, err := scheduleAllows(cfg.AccessDaysOfWeek, cfg.AccessStartTime, cfg.AccessEndTime, now)
		if err != nil {
			logger.Error("Schedule evaluation failed, failing open", zap.Error(err))
			trace = append(trace, pdp_model.StepResult{Step: "global_schedule", Passed: true, Detail: "fail-open"})
		} else if !ok {
			return deny(reason, user.ID, user.FullName(), trace)
		} else {
			trace = append(trace, pass("global_schedule"))
		}
	}

	// 7. Plan restrictions. Unlike the global schedule these fail
	// permissive only on store errors, never on a real out-of-window
	// evaluation.
	if membership != nil && membership.Plan.ID != "" {
		if v := e.evaluatePlanRestrictions(ctx, membership.Plan.ID, user, now, trace); v != nil {
			return v
		}
		trace = append(trace, pass("plan_restrictions"))
	}

	verdict := &pdp_model.Verdict{
		Granted:    true,
		Reason:     "all validations passed",
		UserID:     user.ID,
		UserName:   user.FullName(),
		AccessType: pdp_model.AccessTypeStandard,
		Trace:      trace,
	}
	if membership != nil {
		verdict.PlanName = membership.Plan.Name
	}
	return verdict
}

// evaluatePlanRestrictions returns a deny verdict when the plan blocks
// access right now, nil when the plan poses no objection.
func (e *Evaluator) evaluatePlanRestrictions(ctx context.Context, planID string, user *model.User, now time.Time, trace []pdp_model.StepResult) *pdp_model.Verdict {
	restriction, err := e.store.PlanRestrictions(ctx, planID)
	if err != nil {
		// Additive restriction on top of an already validated
		// membership: unreachable store means no restriction applies.
		logger.Warn("Plan restriction lookup failed, treating as unrestricted",
			zap.Error(err), zap.String("planId", planID))
		return nil
	}
	if restriction == nil || !restriction.HasTimeRestrictions {
		return nil
	}

	day := strings.ToLower(now.Weekday().String())
	if !containsDay(restriction.AllowedDays, day) {
		return deny(fmt.Sprintf("plan does not allow access on %s", day), user.ID, user.FullName(), trace)
	}

	start := restriction.AccessStartTime
	if start == "" {
		start = "00:00:00"
	}
	end := restriction.AccessEndTime
	if end == "" {
		end = "23:59:59"
	}
	inWindow, err := withinWindow(start, end, now)
	if err != nil {
		logger.Warn("Malformed plan time window, treating as unrestricted",
			zap.Error(err), zap.String("planId", planID))
	} else if !inWindow {
		return deny(fmt.Sprintf("plan allows access only from %s to %s", start[:5], end[:5]),
			user.ID, user.FullName(), trace)
	}

	if restriction.MaxDailyEntries > 0 && restriction.MaxDailyEntries < 999 {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.tz)
		dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)
		entries, err := e.store.CountDailyEntries(ctx, user.ID, dayStart, dayEnd)
		if err != nil {
			logger.Warn("Daily entry count failed, treating as unrestricted", zap.Error(err))
		} else if entries >= restriction.MaxDailyEntries {
			return deny(fmt.Sprintf("daily entry limit reached (%d entries)", restriction.MaxDailyEntries),
				user.ID, user.FullName(), trace)
		}
	}

	today := now.Format("2006-01-02")
	for _, blackout := range restriction.BlackoutDates {
		if blackout == today {
			return deny("blackout date for this plan", user.ID, user.FullName(), trace)
		}
	}
	return nil
}

// temporaryOverlay returns a grant verdict when an active temporary
// grant with remaining entries applies, nil otherwise. A valid overlay
// consumes exactly one entry.
func (e *Evaluator) temporaryOverlay(ctx context.Context, user *model.User, now time.Time) *pdp_model.Verdict {
	grant, err := e.store.ActiveGrant(ctx, user.ID, now)
	if err != nil {
		logger.Warn("Temporary access lookup failed, skipping overlay",
			zap.Error(err), zap.String("userId", user.ID))
		return nil
	}
	if grant == nil {
		return nil
	}
	if grant.CurrentEntries >= grant.MaxEntries {
		logger.Info("Temporary grant exhausted",
			zap.String("userId", user.ID), zap.String("grantId", grant.ID))
		return nil
	}

	if err := e.store.IncrementCounter(ctx, grant.ID); err != nil {
		logger.Error("Failed to redeem temporary access entry",
			zap.Error(err), zap.String("grantId", grant.ID))
		return nil
	}

	return &pdp_model.Verdict{
		Granted:    true,
		Reason:     fmt.Sprintf("temporary access: %s", grant.AccessType),
		UserID:     user.ID,
		UserName:   user.FullName(),
		AccessType: pdp_model.AccessTypeTemporary,
	}
}

func membershipExpired(m *model.Membership, now time.Time) (bool, string) {
	if m.EndDate == "" {
		return false, ""
	}
	endDate, err := time.Parse("2006-01-02", m.EndDate)
	if err != nil {
		return false, ""
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, now.Location())
	return end.Before(today), m.EndDate
}

// scheduleAllows checks the global day/hour window, inclusive at both
// ends. Errors are reported to the caller, which decides the fail
// direction.
func scheduleAllows(allowedDays []string, startStr, endStr string, now time.Time) (bool, string, error) {
	day := strings.ToLower(now.Weekday().String())
	if !containsDay(allowedDays, day) {
		return false, fmt.Sprintf("access not allowed on %s", day), nil
	}

	if startStr == "" {
		startStr = "06:00:00"
	}
	if endStr == "" {
		endStr = "23:00:00"
	}
	inWindow, err := withinWindow(startStr, endStr, now)
	if err != nil {
		return false, "", err
	}
	if !inWindow {
		return false, fmt.Sprintf("outside allowed hours (%s - %s)", startStr[:5], endStr[:5]), nil
	}
	return true, "", nil
}

// withinWindow reports whether now's local time of day falls inside
// [start, end], both HH:MM:SS, inclusive.
func withinWindow(startStr, endStr string, now time.Time) (bool, error) {
	start, err := secondsOfDay(startStr)
	if err != nil {
		return false, err
	}
	end, err := secondsOfDay(endStr)
	if err != nil {
		return false, err
	}
	current := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return start <= current && current <= end, nil
}

func secondsOfDay(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("parsing time of day %q: %w", s, err)
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if strings.EqualFold(d, day) {
			return true
		}
	}
	return false
}

func pass(step string) pdp_model.StepResult {
	return pdp_model.StepResult{Step: step, Passed: true}
}

func deny(reason, userID, userName string, trace []pdp_model.StepResult) *pdp_model.Verdict {
	return &pdp_model.Verdict{
		Granted:  false,
		Reason:   reason,
		UserID:   userID,
		UserName: userName,
		Trace:    trace,
	}
}
