package service

import "time"

// Window violation codes, checked in order with first failure winning.
const (
	WindowInvalidFormat      = "INVALID_FORMAT"
	WindowEndBeforeStart     = "END_BEFORE_START"
	WindowDurationExceedsCap = "DURATION_EXCEEDS_LIMIT"
	WindowStartInPast        = "START_IN_PAST"
)

const (
	maxOutpassWindow       = 7 * 24 * time.Hour
	combinedDateTimeLayout = "2006-01-02 15:04"
)

// WindowViolation is a failed date/time rule.
type WindowViolation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateWindow checks a proposed outpass window against ordering, duration
// and past-date rules. Pure: no clock reads (today is injected) and no I/O,
// so it stays unit-testable in isolation from the pipeline. Returns nil when
// the window passes.
func ValidateWindow(startDate, startTime, endDate, endTime string, today time.Time) *WindowViolation {
	start, end, violation := parseWindow(startDate, startTime, endDate, endTime)
	if violation != nil {
		return violation
	}
	if violation := checkWindowBounds(start, end); violation != nil {
		return violation
	}

	startDay := start.Truncate(24 * time.Hour)
	todayDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if startDay.Before(todayDay) {
		return &WindowViolation{Code: WindowStartInPast, Message: "outpass cannot start on a past date"}
	}

	return nil
}

// ValidateExtensionWindow checks ordering and duration for a window whose
// start is inherited from an existing outpass. An in-progress outpass has a
// start in the past, so the past-date rule does not apply here.
func ValidateExtensionWindow(startDate, startTime, endDate, endTime string) *WindowViolation {
	start, end, violation := parseWindow(startDate, startTime, endDate, endTime)
	if violation != nil {
		return violation
	}
	return checkWindowBounds(start, end)
}

func parseWindow(startDate, startTime, endDate, endTime string) (time.Time, time.Time, *WindowViolation) {
	start, err := time.Parse(combinedDateTimeLayout, startDate+" "+startTime)
	if err != nil {
		return time.Time{}, time.Time{}, &WindowViolation{Code: WindowInvalidFormat, Message: "start date/time is not a valid YYYY-MM-DD HH:MM value"}
	}
	end, err := time.Parse(combinedDateTimeLayout, endDate+" "+endTime)
	if err != nil {
		return time.Time{}, time.Time{}, &WindowViolation{Code: WindowInvalidFormat, Message: "end date/time is not a valid YYYY-MM-DD HH:MM value"}
	}
	return start, end, nil
}

func checkWindowBounds(start, end time.Time) *WindowViolation {
	if !end.After(start) {
		return &WindowViolation{Code: WindowEndBeforeStart, Message: "end of the outpass window must be after its start"}
	}
	if end.Sub(start) > maxOutpassWindow {
		return &WindowViolation{Code: WindowDurationExceedsCap, Message: "outpass window cannot exceed 7 days"}
	}
	return nil
}
