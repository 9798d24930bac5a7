package attendance

import "errors"

var (
	ErrInvalidEmployeeID  = errors.New("attendance: invalid employee id")
	ErrInvalidStatus      = errors.New("attendance: invalid status")
	ErrInvalidDateRange   = errors.New("attendance: end date is before start date")
	ErrInvalidTimes       = errors.New("attendance: departure is before arrival")
	ErrEmployeeNotFound   = errors.New("attendance: employee not found")
	ErrAttendanceNotFound = errors.New("attendance: not found")
)
