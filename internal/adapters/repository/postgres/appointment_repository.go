package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/appointment"
	pgdb "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
)

const appointmentSelect = `
        SELECT a.id, a.employee_id, a.service_id, a.user_id, a.time_slot, a.notes, a.status, a.created_at, a.updated_at,
               u.name, u.email, u.mobile, e.name, s.name
          FROM appointments a
          JOIN users u ON u.id = a.user_id
          JOIN employees e ON e.id = a.employee_id
          JOIN salon_services s ON s.id = a.service_id`

// AppointmentRepository は PostgreSQL を利用した予約参照の実装です。
// 範囲検索はすべて取消済みの予約を除外し、両端を含みます。
type AppointmentRepository struct {
	pool pgdb.Queryer
}

// NewAppointmentRepository は AppointmentRepository を生成します。
func NewAppointmentRepository(pool pgdb.Queryer) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// FindByID は ID で予約を取得します。取消済みの予約も返します。
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*appointment.Appointment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, appointmentSelect+`
         WHERE a.id = $1
         LIMIT 1
    `, id)

	found, err := scanAppointment(row)
	if err != nil {
		return nil, translateAppointmentPgError(err)
	}
	return found, nil
}

// FindByEmployeeBetween は施術者の期間内の予約を time_slot 昇順で返します。
func (r *AppointmentRepository) FindByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]*appointment.Appointment, error) {
	return r.query(ctx, appointmentSelect+`
         WHERE a.employee_id = $1
           AND a.time_slot BETWEEN $2 AND $3
           AND a.status <> 'CANCELLED'
         ORDER BY a.time_slot, a.id
    `, employeeID, from, to)
}

// FindBetween は期間内の全予約を time_slot 昇順で返します。
func (r *AppointmentRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*appointment.Appointment, error) {
	return r.query(ctx, appointmentSelect+`
         WHERE a.time_slot BETWEEN $1 AND $2
           AND a.status <> 'CANCELLED'
         ORDER BY a.time_slot, a.id
    `, from, to)
}

// CountByEmployeeBetween は施術者の期間内の予約件数を返します。
func (r *AppointmentRepository) CountByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var count int
	if err := exec.QueryRow(ctx, `
        SELECT COUNT(*)
          FROM appointments
         WHERE employee_id = $1
           AND time_slot BETWEEN $2 AND $3
           AND status <> 'CANCELLED'
    `, employeeID, from, to).Scan(&count); err != nil {
		if isInvalidText(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// UpdateStatus は予約の状態を更新します。
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status appointment.Status, updatedAt time.Time) (*appointment.Appointment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH updated AS (
            UPDATE appointments
               SET status = $1,
                   updated_at = $2
             WHERE id = $3
            RETURNING id, employee_id, service_id, user_id, time_slot, notes, status, created_at, updated_at
        )
        SELECT a.id, a.employee_id, a.service_id, a.user_id, a.time_slot, a.notes, a.status, a.created_at, a.updated_at,
               u.name, u.email, u.mobile, e.name, s.name
          FROM updated a
          JOIN users u ON u.id = a.user_id
          JOIN employees e ON e.id = a.employee_id
          JOIN salon_services s ON s.id = a.service_id
    `, string(status), updatedAt, id)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, translateAppointmentPgError(err)
	}
	return updated, nil
}

// Exists は予約の存在を確認します。POS 取引の参照確認に使います。
func (r *AppointmentRepository) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.pool, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id)
}

func (r *AppointmentRepository) query(ctx context.Context, query string, args ...any) ([]*appointment.Appointment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		if isInvalidText(err) {
			return []*appointment.Appointment{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	appointments := make([]*appointment.Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return appointments, nil
}

func scanAppointment(row pgx.Row) (*appointment.Appointment, error) {
	var (
		appt           appointment.Appointment
		status         string
		customerName   string
		customerEmail  sql.NullString
		customerMobile sql.NullString
		employeeName   string
		serviceName    string
	)

	if err := row.Scan(
		&appt.ID,
		&appt.EmployeeID,
		&appt.ServiceID,
		&appt.UserID,
		&appt.TimeSlot,
		&appt.Notes,
		&status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
		&customerName,
		&customerEmail,
		&customerMobile,
		&employeeName,
		&serviceName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, err
	}

	appt.Status = appointment.Status(status)
	appt.Details = &appointment.Details{
		CustomerName:   customerName,
		CustomerEmail:  customerEmail.String,
		CustomerMobile: customerMobile.String,
		EmployeeName:   employeeName,
		ServiceName:    serviceName,
	}
	return &appt, nil
}

func translateAppointmentPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return appointment.ErrAppointmentNotFound
	}
	return err
}
