package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/payroll"
)

const monthLayout = "2006-01"

// SettlePayroll は month (YYYY-MM) の給与を全施術者分精算します。
func (h *SalonGrpcHandler) SettlePayroll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	month, err := h.monthField(req)
	if err != nil {
		return nil, err
	}

	result, err := h.payroll.Settle(ctx, payroll.SettleInput{Month: month})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newResponse(map[string]any{
		"month":        result.Month.Format(monthLayout),
		"working_days": result.WorkingDays,
		"salaries":     salariesPayload(result.Salaries),
	})
}

// ListSalaries は month (YYYY-MM) に保存された給与スナップショットを返します。
func (h *SalonGrpcHandler) ListSalaries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	month, err := h.monthField(req)
	if err != nil {
		return nil, err
	}

	salaries, err := h.payroll.ListSalaries(ctx, month)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"salaries": salariesPayload(salaries)})
}

func (h *SalonGrpcHandler) monthField(req *structpb.Struct) (time.Time, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return time.Time{}, err
	}
	raw, err := f.str("month")
	if err != nil {
		return time.Time{}, err
	}
	month, err := time.ParseInLocation(monthLayout, strings.TrimSpace(raw), h.location)
	if err != nil {
		return time.Time{}, toStatusError(fmt.Errorf("%w: %q", payroll.ErrInvalidMonth, raw))
	}
	return month, nil
}

func salariesPayload(salaries []*payroll.Salary) []any {
	payload := make([]any, 0, len(salaries))
	for _, s := range salaries {
		payload = append(payload, map[string]any{
			"id":                s.ID,
			"employee_id":       s.EmployeeID,
			"month":             s.Month.Format(monthLayout),
			"services_provided": s.ServicesProvided,
			"base_salary":       s.BaseSalary,
			"commission":        s.Commission,
			"performance":       s.Performance,
			"total_salary":      s.TotalSalary,
			"created_at":        formatTime(s.CreatedAt),
		})
	}
	return payload
}
