package payroll

import "errors"

var (
	ErrInvalidMonth             = errors.New("payroll: invalid month")
	ErrInvalidPolicy            = errors.New("payroll: invalid policy")
	ErrDegenerateScheduleWindow = errors.New("payroll: no working days in settlement window")
)
