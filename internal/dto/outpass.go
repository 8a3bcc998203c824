package dto

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
)

// OutpassForm is the declarative field schema for an outpass submission. The
// same struct backs create, edit and resubmit so the form layer and the
// pre-submit gate cannot drift.
type OutpassForm struct {
	Reason        string `json:"reason" validate:"required,min=10,max=500"`
	Destination   string `json:"destination" validate:"required,min=3,max=100"`
	TransportMode string `json:"transportMode" validate:"required,oneof=bus train car taxi auto walking other"`
	StartDate     string `json:"startDate" validate:"required,datetime=2006-01-02"`
	StartTime     string `json:"startTime" validate:"required,datetime=15:04"`
	EndDate       string `json:"endDate" validate:"required,datetime=2006-01-02"`
	EndTime       string `json:"endTime" validate:"required,datetime=15:04"`
	ContactName   string `json:"contactName" validate:"required,min=3,max=50,person_name"`
	ContactPhone  string `json:"contactPhone" validate:"omitempty,len=10,numeric"`
	ParentConsent bool   `json:"parentConsent" validate:"eq=true"`
}

// ExtendOutpassForm carries the new end window for extending an approved
// outpass. The extension inherits every content field from the original.
type ExtendOutpassForm struct {
	EndDate string `json:"endDate" validate:"required,datetime=2006-01-02"`
	EndTime string `json:"endTime" validate:"required,datetime=15:04"`
	Reason  string `json:"reason" validate:"omitempty,min=10,max=500"`
}

// OutpassItem is the wire representation of a request plus the affordances
// derived from its status.
type OutpassItem struct {
	ID              string                `json:"id"`
	StudentID       string                `json:"studentId"`
	Reason          string                `json:"reason"`
	Destination     string                `json:"destination"`
	TransportMode   models.TransportMode  `json:"transportMode"`
	StartDate       string                `json:"startDate"`
	StartTime       string                `json:"startTime"`
	EndDate         string                `json:"endDate"`
	EndTime         string                `json:"endTime"`
	ContactName     string                `json:"contactName"`
	ContactPhone    *string               `json:"contactPhone,omitempty"`
	ParentConsent   bool                  `json:"parentConsent"`
	Status          models.OutpassStatus  `json:"status"`
	RejectionReason *string               `json:"rejectionReason,omitempty"`
	ParentID        *string               `json:"parentId,omitempty"`
	Origin          models.RecordOrigin   `json:"origin"`
	Actions         models.AllowedActions `json:"actions"`
	CreatedAt       string                `json:"createdAt"`
	UpdatedAt       string                `json:"updatedAt"`
}

// NewOutpassItem maps a record to its wire shape.
func NewOutpassItem(r *models.OutpassRequest) OutpassItem {
	return OutpassItem{
		ID:              r.ID,
		StudentID:       r.StudentID,
		Reason:          r.Reason,
		Destination:     r.Destination,
		TransportMode:   r.TransportMode,
		StartDate:       r.StartDate,
		StartTime:       r.StartTime,
		EndDate:         r.EndDate,
		EndTime:         r.EndTime,
		ContactName:     r.ContactName,
		ContactPhone:    r.ContactPhone,
		ParentConsent:   r.ParentConsent,
		Status:          r.Status,
		RejectionReason: r.RejectionReason,
		ParentID:        r.ParentID,
		Origin:          r.Origin,
		Actions:         models.ActionsFor(r.Status),
		CreatedAt:       r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       r.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// HistoryResponse pairs the request history with the quota snapshot so a
// manual refresh re-fetches both atomically.
type HistoryResponse struct {
	Requests []OutpassItem       `json:"requests"`
	Quota    *models.WeeklyQuota `json:"quota"`
	Degraded bool                `json:"degraded,omitempty"`
}

// FieldError describes a single failed field rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// FieldErrors flattens validator output into per-field detail for inline
// rendering next to the offending input.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

var personNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z ]*$`)

// RegisterValidations installs the outpass custom rules on a validator
// instance. person_name: letters and spaces only, never purely numeric.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		if name == "" {
			return false
		}
		return personNameRe.MatchString(name)
	})
}

// NewValidator builds a validator with the outpass rules installed.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = RegisterValidations(v)
	return v
}
