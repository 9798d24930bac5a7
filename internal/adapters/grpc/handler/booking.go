package handler

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/appointment"
)

// ListBookedSlots は施術者の指定日の予約済み枠を返します。
func (h *SalonGrpcHandler) ListBookedSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	employeeID, err := f.str("employee_id")
	if err != nil {
		return nil, err
	}
	date, err := f.str("date")
	if err != nil {
		return nil, err
	}

	booked, err := h.appointments.ListBookedSlots(ctx, appointment.ListBookedSlotsInput{EmployeeID: employeeID, Date: date})
	if err != nil {
		return nil, toStatusError(err)
	}

	slots := make([]any, 0, len(booked))
	for _, appt := range booked {
		slots = append(slots, appointmentPayload(appt))
	}
	return newResponse(map[string]any{"slots": slots})
}

// ListFreeSlots は営業時間内の空き枠の開始時刻を返します。open_at/close_at/slot_minutes で営業時間を上書きできます。
func (h *SalonGrpcHandler) ListFreeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	employeeID, err := f.str("employee_id")
	if err != nil {
		return nil, err
	}
	date, err := f.str("date")
	if err != nil {
		return nil, err
	}

	in := appointment.ListFreeSlotsInput{EmployeeID: employeeID, Date: date}
	openAt, err := f.str("open_at")
	if err != nil {
		return nil, err
	}
	closeAt, err := f.str("close_at")
	if err != nil {
		return nil, err
	}
	slotMinutes, hasSlot, err := f.integer("slot_minutes")
	if err != nil {
		return nil, err
	}
	if openAt != "" || closeAt != "" || hasSlot {
		if !hasSlot {
			slotMinutes = 30
		}
		hours, err := appointment.ParseBusinessHours(openAt, closeAt, time.Duration(slotMinutes)*time.Minute)
		if err != nil {
			return nil, toStatusError(err)
		}
		in.Hours = &hours
	}

	free, err := h.appointments.ListFreeSlots(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	slots := make([]any, 0, len(free))
	for _, slot := range free {
		slots = append(slots, formatTime(slot))
	}
	return newResponse(map[string]any{"slots": slots})
}

// UpdateAppointmentStatus は予約状態を更新します。
func (h *SalonGrpcHandler) UpdateAppointmentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	id, err := f.str("id")
	if err != nil {
		return nil, err
	}
	rawStatus, err := f.str("status")
	if err != nil {
		return nil, err
	}

	updated, err := h.appointments.UpdateStatus(ctx, appointment.UpdateStatusInput{ID: id, Status: appointment.Status(rawStatus)})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"appointment": appointmentPayload(updated)})
}

// CancelAppointment は予約を取消状態にします。
func (h *SalonGrpcHandler) CancelAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	id, err := f.str("id")
	if err != nil {
		return nil, err
	}

	cancelled, err := h.appointments.Cancel(ctx, id)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"appointment": appointmentPayload(cancelled)})
}

func appointmentPayload(a *appointment.Appointment) map[string]any {
	if a == nil {
		return nil
	}
	return map[string]any{
		"id":          a.ID,
		"employee_id": a.EmployeeID,
		"service_id":  a.ServiceID,
		"user_id":     a.UserID,
		"time_slot":   formatTime(a.TimeSlot),
		"notes":       a.Notes,
		"status":      string(a.Status),
	}
}
