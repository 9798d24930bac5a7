package appointment

import (
	"errors"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/timerange"
)

var (
	ErrInvalidID            = errors.New("appointment: invalid id")
	ErrInvalidEmployeeID    = errors.New("appointment: invalid employee id")
	ErrInvalidStatus        = errors.New("appointment: invalid status")
	ErrInvalidRange         = errors.New("appointment: invalid time range")
	ErrInvalidBusinessHours = errors.New("appointment: invalid business hours")
	ErrAppointmentNotFound  = errors.New("appointment: not found")
	// ErrMalformedDate は日付入力が暦日として解釈できない場合に返却されます。
	ErrMalformedDate = timerange.ErrMalformedDate
)
