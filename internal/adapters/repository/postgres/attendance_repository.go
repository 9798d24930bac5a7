package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/attendance"
	pgdb "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
)

const attendanceColumns = `id, employee_id, arrival, departure, status, created_at`

// AttendanceRepository は PostgreSQL を利用した勤怠記録の実装です。
type AttendanceRepository struct {
	pool pgdb.Queryer
}

// NewAttendanceRepository は AttendanceRepository を生成します。
func NewAttendanceRepository(pool pgdb.Queryer) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Create は勤怠記録を追加します。
func (r *AttendanceRepository) Create(ctx context.Context, a *attendance.Attendance) (*attendance.Attendance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO attendance (id, employee_id, arrival, departure, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+attendanceColumns,
		a.ID,
		a.EmployeeID,
		nullableTimestamp(a.Arrival),
		nullableTimestamp(a.Departure),
		string(a.Status),
		a.CreatedAt,
	)

	created, err := scanAttendance(row)
	if err != nil {
		return nil, translateAttendancePgError(err)
	}
	return created, nil
}

// FindByEmployeeBetween は施術者の arrival が期間内の記録を返します。
func (r *AttendanceRepository) FindByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]*attendance.Attendance, error) {
	return r.query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance
         WHERE employee_id = $1
           AND arrival BETWEEN $2 AND $3
         ORDER BY arrival, id
    `, employeeID, from, to)
}

// FindByEmployee は施術者の全記録を返します。
func (r *AttendanceRepository) FindByEmployee(ctx context.Context, employeeID string) ([]*attendance.Attendance, error) {
	return r.query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance
         WHERE employee_id = $1
         ORDER BY arrival NULLS LAST, id
    `, employeeID)
}

// FindBetween は arrival が期間内の全記録を返します。
func (r *AttendanceRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*attendance.Attendance, error) {
	return r.query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance
         WHERE arrival BETWEEN $1 AND $2
         ORDER BY arrival, id
    `, from, to)
}

// FindAll は全記録を返します。
func (r *AttendanceRepository) FindAll(ctx context.Context) ([]*attendance.Attendance, error) {
	return r.query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance
         ORDER BY arrival NULLS LAST, id
    `)
}

func (r *AttendanceRepository) query(ctx context.Context, query string, args ...any) ([]*attendance.Attendance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		if isInvalidText(err) {
			return []*attendance.Attendance{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	records := make([]*attendance.Attendance, 0)
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanAttendance(row pgx.Row) (*attendance.Attendance, error) {
	var (
		record    attendance.Attendance
		arrival   sql.NullTime
		departure sql.NullTime
		status    string
	)

	if err := row.Scan(
		&record.ID,
		&record.EmployeeID,
		&arrival,
		&departure,
		&status,
		&record.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attendance.ErrAttendanceNotFound
		}
		return nil, err
	}

	record.Arrival = timePtr(arrival)
	record.Departure = timePtr(departure)
	record.Status = attendance.Status(status)
	return &record, nil
}

func translateAttendancePgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case foreignKeyViolationCode, invalidTextCode:
			return attendance.ErrEmployeeNotFound
		case checkViolationCode:
			return attendance.ErrInvalidTimes
		}
	}
	return err
}
