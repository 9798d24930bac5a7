package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/employee"
)

// CreateEmployee は施術者を登録します。
func (h *SalonGrpcHandler) CreateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}

	name, err := f.str("name")
	if err != nil {
		return nil, err
	}
	email, err := f.str("email")
	if err != nil {
		return nil, err
	}
	phone, err := f.str("phone")
	if err != nil {
		return nil, err
	}
	baseSalary, err := f.optNumber("base_salary")
	if err != nil {
		return nil, err
	}
	if baseSalary == nil {
		return nil, status.Error(codes.InvalidArgument, "base_salary is required")
	}
	joinDate, err := f.date("join_date")
	if err != nil {
		return nil, err
	}

	created, err := h.employees.CreateEmployee(ctx, employee.CreateEmployeeInput{
		Name:       name,
		Email:      email,
		Phone:      phone,
		BaseSalary: *baseSalary,
		JoinDate:   joinDate,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"employee": employeePayload(created)})
}

// UpdateEmployee は施術者情報を更新します。省略したフィールドは変更しません。
func (h *SalonGrpcHandler) UpdateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}

	var in employee.UpdateEmployeeInput
	if in.ID, err = f.str("id"); err != nil {
		return nil, err
	}
	if in.Name, err = f.optStr("name"); err != nil {
		return nil, err
	}
	if in.Email, err = f.optStr("email"); err != nil {
		return nil, err
	}
	if in.Phone, err = f.optStr("phone"); err != nil {
		return nil, err
	}
	if in.BaseSalary, err = f.optNumber("base_salary"); err != nil {
		return nil, err
	}
	if in.JoinDate, err = f.date("join_date"); err != nil {
		return nil, err
	}

	updated, err := h.employees.UpdateEmployee(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"employee": employeePayload(updated)})
}

// DeleteEmployee は施術者を削除します。
func (h *SalonGrpcHandler) DeleteEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	id, err := f.str("id")
	if err != nil {
		return nil, err
	}

	if err := h.employees.DeleteEmployee(ctx, employee.DeleteEmployeeInput{ID: id}); err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{})
}

// GetEmployee は施術者を取得します。
func (h *SalonGrpcHandler) GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	id, err := f.str("id")
	if err != nil {
		return nil, err
	}

	found, err := h.employees.GetEmployee(ctx, employee.GetEmployeeInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"employee": employeePayload(found)})
}

// ListEmployees は施術者一覧をページ単位で返します。
func (h *SalonGrpcHandler) ListEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	pageSize, _, err := f.integer("page_size")
	if err != nil {
		return nil, err
	}
	pageToken, err := f.str("page_token")
	if err != nil {
		return nil, err
	}

	result, err := h.employees.ListEmployees(ctx, employee.ListEmployeesInput{PageSize: pageSize, PageToken: pageToken})
	if err != nil {
		return nil, toStatusError(err)
	}

	employees := make([]any, 0, len(result.Employees))
	for _, e := range result.Employees {
		employees = append(employees, employeePayload(e))
	}
	return newResponse(map[string]any{
		"employees":       employees,
		"next_page_token": result.NextPageToken,
	})
}

func employeePayload(e *employee.Employee) map[string]any {
	var joinDate any
	if e.JoinDate != nil {
		joinDate = e.JoinDate.Format(dateLayout)
	}
	return map[string]any{
		"id":          e.ID,
		"name":        e.Name,
		"email":       e.Email,
		"phone":       e.Phone,
		"base_salary": e.BaseSalary,
		"join_date":   joinDate,
		"created_at":  formatTime(e.CreatedAt),
		"updated_at":  formatTime(e.UpdatedAt),
	}
}
