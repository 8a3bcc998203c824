package models

import "time"

// DefaultWeeklyLimit is the fixed outpass allowance per rolling 7-day window.
const DefaultWeeklyLimit = 3

// WeeklyQuota is the student's rolling weekly outpass count against the fixed
// limit. It is derived upstream and memoized here with explicit invalidation;
// the gateway's copy is advisory, hostel-core remains authoritative.
type WeeklyQuota struct {
	Count      int       `json:"count"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	CanRequest bool      `json:"can_request"`
	Stale      bool      `json:"stale,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// NewWeeklyQuota derives remaining and can_request from count and limit.
func NewWeeklyQuota(count, limit int, fetchedAt time.Time) *WeeklyQuota {
	if limit <= 0 {
		limit = DefaultWeeklyLimit
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &WeeklyQuota{
		Count:      count,
		Limit:      limit,
		Remaining:  remaining,
		CanRequest: remaining > 0,
		FetchedAt:  fetchedAt,
	}
}

// ConservativeQuota is the first-load default used when no fetch has ever
// succeeded. It is flagged stale so callers never mistake it for a verified
// allow.
func ConservativeQuota(limit int) *WeeklyQuota {
	q := NewWeeklyQuota(0, limit, time.Time{})
	q.Stale = true
	return q
}

// EligibilityStatus captures the tri-state room allocation gate. Checking is
// distinct from both eligible and ineligible so a submission cannot race past
// an unresolved gate.
type EligibilityStatus string

const (
	EligibilityChecking   EligibilityStatus = "checking"
	EligibilityEligible   EligibilityStatus = "eligible"
	EligibilityIneligible EligibilityStatus = "ineligible"
)

// EligibilityState is the room-allocation precondition snapshot.
type EligibilityState struct {
	Status                  EligibilityStatus `json:"status"`
	HasActiveRoomAllocation bool              `json:"has_active_room_allocation"`
	CheckedAt               time.Time         `json:"checked_at,omitempty"`
}

// Resolved reports whether the gate has a definite answer.
func (e EligibilityState) Resolved() bool {
	return e.Status == EligibilityEligible || e.Status == EligibilityIneligible
}
