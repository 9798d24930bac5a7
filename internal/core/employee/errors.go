package employee

import "errors"

var (
	ErrInvalidID         = errors.New("employee: invalid id")
	ErrInvalidName       = errors.New("employee: invalid name")
	ErrInvalidEmail      = errors.New("employee: invalid email")
	ErrInvalidPhone      = errors.New("employee: invalid phone")
	ErrInvalidBaseSalary = errors.New("employee: base salary must not be negative")
	ErrInvalidPageSize   = errors.New("employee: invalid page size")
	ErrInvalidPageToken  = errors.New("employee: invalid page token")
	ErrEmployeeNotFound  = errors.New("employee: not found")
	ErrEmailAlreadyUsed  = errors.New("employee: email already exists")
	ErrEmployeeInUse     = errors.New("employee: still referenced by appointments, attendance or salaries")
)
