package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/attendance"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/timerange"
)

// QueryAttendance は employee_id と start_date/end_date の有無に応じて勤怠を検索し、区分ごとの件数も返します。
func (h *SalonGrpcHandler) QueryAttendance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}

	var q attendance.Query
	employeeID, err := f.optStr("employee_id")
	if err != nil {
		return nil, err
	}
	if employeeID != nil && *employeeID != "" {
		q.EmployeeID = employeeID
	}

	startRaw, err := f.str("start_date")
	if err != nil {
		return nil, err
	}
	endRaw, err := f.str("end_date")
	if err != nil {
		return nil, err
	}
	if startRaw != "" || endRaw != "" {
		if startRaw == "" || endRaw == "" {
			return nil, toStatusError(attendance.ErrInvalidDateRange)
		}
		start, err := timerange.ParseDate(startRaw, h.location)
		if err != nil {
			return nil, toStatusError(err)
		}
		end, err := timerange.ParseDate(endRaw, h.location)
		if err != nil {
			return nil, toStatusError(err)
		}
		q.Range = &attendance.DateRange{Start: start, End: end}
	}

	records, err := h.attendance.Find(ctx, q)
	if err != nil {
		return nil, toStatusError(err)
	}
	summary := attendance.Tally(records)

	payload := make([]any, 0, len(records))
	for _, record := range records {
		payload = append(payload, attendancePayload(record))
	}
	return newResponse(map[string]any{
		"records": payload,
		"summary": map[string]any{
			"present":      summary.Present,
			"absent":       summary.Absent,
			"leave":        summary.Leave,
			"unrecognized": summary.Unrecognized,
		},
	})
}

// MarkAttendance は勤怠を記録します。
func (h *SalonGrpcHandler) MarkAttendance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	employeeID, err := f.str("employee_id")
	if err != nil {
		return nil, err
	}
	rawStatus, err := f.str("status")
	if err != nil {
		return nil, err
	}
	arrival, err := f.optTime("arrival")
	if err != nil {
		return nil, err
	}
	departure, err := f.optTime("departure")
	if err != nil {
		return nil, err
	}

	created, err := h.attendance.MarkAttendance(ctx, attendance.MarkAttendanceInput{
		EmployeeID: employeeID,
		Arrival:    arrival,
		Departure:  departure,
		Status:     rawStatus,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"record": attendancePayload(created)})
}

func attendancePayload(a *attendance.Attendance) map[string]any {
	return map[string]any{
		"id":          a.ID,
		"employee_id": a.EmployeeID,
		"arrival":     optionalTime(a.Arrival),
		"departure":   optionalTime(a.Departure),
		"status":      string(a.Status),
	}
}
