// model/membership.go
package model

// Payment types a membership can carry.
const (
	PaymentTypePeriod = "period"
	PaymentTypeVisit  = "visit"
)

// Membership statuses as stored in user_memberships.
const (
	MembershipActive = "active"
	MembershipFrozen = "frozen"
)

// Membership is one user_memberships row joined with its plan.
// Mutated externally by billing; read-only here.
type Membership struct {
	ID              string `json:"id"`
	UserID          string `json:"userid"`
	Status          string `json:"status"`
	PaymentType     string `json:"payment_type"`
	RemainingVisits int    `json:"remaining_visits"`
	EndDate         string `json:"end_date"` // YYYY-MM-DD, empty for open-ended
	Plan            Plan   `json:"membership_plans"`
}

// Plan is the membership_plans reference embedded in a membership row.
type Plan struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlanRestriction is one plan_access_restrictions row.
type PlanRestriction struct {
	PlanID              string   `json:"plan_id"`
	HasTimeRestrictions bool     `json:"has_time_restrictions"`
	AllowedDays         []string `json:"allowed_days"`
	AccessStartTime     string   `json:"access_start_time"` // HH:MM:SS
	AccessEndTime       string   `json:"access_end_time"`   // HH:MM:SS
	MaxDailyEntries     int      `json:"max_daily_entries"`
	BlackoutDates       []string `json:"blackout_dates"` // YYYY-MM-DD
}

// TemporaryAccess is one temporary_access row. CurrentEntries is only
// ever advanced through the store's atomic increment RPC.
type TemporaryAccess struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	AccessType     string `json:"access_type"`
	IsActive       bool   `json:"is_active"`
	ValidFrom      string `json:"valid_from"`
	ValidUntil     string `json:"valid_until"`
	MaxEntries     int    `json:"max_entries"`
	CurrentEntries int    `json:"current_entries"`
}

// AccessConfig is the cached global policy singleton from
// access_control_config. Loaded at startup, reloadable on demand.
type AccessConfig struct {
	EnableBiometric         bool     `json:"enable_biometric"`
	RequireActiveMembership bool     `json:"require_active_membership"`
	AllowGuestAccess        bool     `json:"allow_guest_access"`
	AccessScheduleEnabled   bool     `json:"access_schedule_enabled"`
	AccessStartTime         string   `json:"access_start_time"` // HH:MM:SS
	AccessEndTime           string   `json:"access_end_time"`   // HH:MM:SS
	AccessDaysOfWeek        []string `json:"access_days_of_week"`
	NotificationEnabled     bool     `json:"notification_enabled"`
}

// DefaultAccessConfig mirrors the fallback used when the store is
// unreachable at startup.
func DefaultAccessConfig() AccessConfig {
	return AccessConfig{
		EnableBiometric:         true,
		RequireActiveMembership: true,
		AllowGuestAccess:        false,
		AccessScheduleEnabled:   true,
		AccessStartTime:         "06:00:00",
		AccessEndTime:           "23:00:00",
		AccessDaysOfWeek: []string{
			"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
		},
		NotificationEnabled: true,
	}
}
