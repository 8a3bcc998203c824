package models

import "time"

// OutpassStatus is the lifecycle status of an outpass request. The gateway
// only ever sets pending and cancelled itself; approved, rejected and
// completed are set by the hostel-core backend and observed via re-fetch.
type OutpassStatus string

const (
	StatusPending   OutpassStatus = "pending"
	StatusApproved  OutpassStatus = "approved"
	StatusRejected  OutpassStatus = "rejected"
	StatusCancelled OutpassStatus = "cancelled"
	StatusCompleted OutpassStatus = "completed"
)

// Valid reports whether the status belongs to the known vocabulary.
func (s OutpassStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further student action can ever apply.
// Rejected is not terminal: it is resubmittable via edit.
func (s OutpassStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// OutpassAction is a student-reachable action on an existing request.
type OutpassAction string

const (
	ActionEdit   OutpassAction = "edit"
	ActionExtend OutpassAction = "extend"
	ActionCancel OutpassAction = "cancel"
)

// Allows reports whether the action is legal from the current status.
// Edit from rejected is the resubmit path and behaves as a fresh create on
// the same record id.
func (s OutpassStatus) Allows(action OutpassAction) bool {
	switch action {
	case ActionEdit:
		return s == StatusPending || s == StatusRejected
	case ActionExtend:
		return s == StatusApproved
	case ActionCancel:
		return s == StatusPending
	}
	return false
}

// AllowedActions is the per-record affordance set serialized to the UI so the
// action buttons cannot drift from the transition table.
type AllowedActions struct {
	CanEdit   bool `json:"can_edit"`
	CanExtend bool `json:"can_extend"`
	CanCancel bool `json:"can_cancel"`
}

// ActionsFor derives the affordance set for a status.
func ActionsFor(s OutpassStatus) AllowedActions {
	return AllowedActions{
		CanEdit:   s.Allows(ActionEdit),
		CanExtend: s.Allows(ActionExtend),
		CanCancel: s.Allows(ActionCancel),
	}
}

// TransportMode enumerates how the student intends to travel.
type TransportMode string

const (
	TransportBus     TransportMode = "bus"
	TransportTrain   TransportMode = "train"
	TransportCar     TransportMode = "car"
	TransportTaxi    TransportMode = "taxi"
	TransportAuto    TransportMode = "auto"
	TransportWalking TransportMode = "walking"
	TransportOther   TransportMode = "other"
)

// Valid reports whether the transport mode is a known value.
func (m TransportMode) Valid() bool {
	switch m {
	case TransportBus, TransportTrain, TransportCar, TransportTaxi, TransportAuto, TransportWalking, TransportOther:
		return true
	}
	return false
}

// RecordOrigin tags where the authoritative copy of a record lives. Local
// records were written by the degraded fallback path and are unverified until
// the reconcile worker pushes them to hostel-core.
type RecordOrigin string

const (
	OriginServer RecordOrigin = "server"
	OriginLocal  RecordOrigin = "local"
)

// OutpassRequest is a time-boxed permission request to leave the hostel.
// Dates are YYYY-MM-DD and times HH:MM, matching the hostel-core wire format.
type OutpassRequest struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	Reason          string        `db:"reason" json:"reason"`
	Destination     string        `db:"destination" json:"destination"`
	TransportMode   TransportMode `db:"transport_mode" json:"transport_mode"`
	StartDate       string        `db:"start_date" json:"start_date"`
	StartTime       string        `db:"start_time" json:"start_time"`
	EndDate         string        `db:"end_date" json:"end_date"`
	EndTime         string        `db:"end_time" json:"end_time"`
	ContactName     string        `db:"contact_name" json:"contact_name"`
	ContactPhone    *string       `db:"contact_phone" json:"contact_phone,omitempty"`
	ParentConsent   bool          `db:"parent_consent" json:"parent_consent"`
	Status          OutpassStatus `db:"status" json:"status"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ParentID        *string       `db:"parent_id" json:"parent_id,omitempty"`
	Origin          RecordOrigin  `db:"origin" json:"origin"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Extension reports whether this record extends an approved outpass.
func (r *OutpassRequest) Extension() bool {
	return r.ParentID != nil && *r.ParentID != ""
}
