package handler

import (
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/appointment"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/attendance"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/employee"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/payroll"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/timerange"
)

// internalErrorMessage はドメインに対応付けられないエラーでクライアントに返す固定文言です。
const internalErrorMessage = "internal error"

// toStatusError はドメインエラーを gRPC ステータスに変換します。
// 対応付けられないエラーは詳細をログに残し、クライアントには固定文言だけを返します。
func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, timerange.ErrMalformedDate),
		errors.Is(err, appointment.ErrInvalidID),
		errors.Is(err, appointment.ErrInvalidEmployeeID),
		errors.Is(err, appointment.ErrInvalidStatus),
		errors.Is(err, appointment.ErrInvalidRange),
		errors.Is(err, appointment.ErrInvalidBusinessHours),
		errors.Is(err, attendance.ErrInvalidEmployeeID),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrInvalidDateRange),
		errors.Is(err, attendance.ErrInvalidTimes),
		errors.Is(err, payroll.ErrInvalidMonth),
		errors.Is(err, payroll.ErrInvalidPolicy),
		errors.Is(err, inventory.ErrInvalidID),
		errors.Is(err, inventory.ErrInvalidTransaction),
		errors.Is(err, inventory.ErrInvalidPrice),
		errors.Is(err, inventory.ErrInvalidRange),
		errors.Is(err, inventory.ErrEmptyTransaction),
		errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidName),
		errors.Is(err, employee.ErrInvalidEmail),
		errors.Is(err, employee.ErrInvalidPhone),
		errors.Is(err, employee.ErrInvalidBaseSalary),
		errors.Is(err, employee.ErrInvalidPageSize),
		errors.Is(err, employee.ErrInvalidPageToken):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrProductInactive),
		errors.Is(err, payroll.ErrDegenerateScheduleWindow),
		errors.Is(err, employee.ErrEmployeeInUse):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, employee.ErrEmailAlreadyUsed):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, attendance.ErrEmployeeNotFound),
		errors.Is(err, attendance.ErrAttendanceNotFound),
		errors.Is(err, inventory.ErrTransactionNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, inventory.ErrReferenceNotFound),
		errors.Is(err, employee.ErrEmployeeNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		slog.Error("unmapped error returned as internal", "error", err)
		return status.Error(codes.Internal, internalErrorMessage)
	}
}
