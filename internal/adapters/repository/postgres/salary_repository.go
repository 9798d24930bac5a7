package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/payroll"
	pgdb "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
)

const salaryColumns = `id, employee_id, month, services_provided, base_salary, commission, performance, total_salary, created_at`

// ErrSalaryEmployeeNotFound は給与スナップショットの施術者が存在しない場合に返却されます。
var ErrSalaryEmployeeNotFound = errors.New("salary: employee not found")

// SalaryRepository は PostgreSQL を利用した給与スナップショットの実装です。
type SalaryRepository struct {
	pool pgdb.Queryer
}

// NewSalaryRepository は SalaryRepository を生成します。
func NewSalaryRepository(pool pgdb.Queryer) *SalaryRepository {
	return &SalaryRepository{pool: pool}
}

// Create は給与スナップショットを追加します。
func (r *SalaryRepository) Create(ctx context.Context, s *payroll.Salary) (*payroll.Salary, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO salaries (id, employee_id, month, services_provided, base_salary, commission, performance, total_salary, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+salaryColumns,
		s.ID,
		s.EmployeeID,
		monthDate(s.Month),
		s.ServicesProvided,
		s.BaseSalary,
		s.Commission,
		s.Performance,
		s.TotalSalary,
		s.CreatedAt,
	)

	created, err := scanSalary(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
			return nil, ErrSalaryEmployeeNotFound
		}
		return nil, err
	}
	return created, nil
}

// DeleteByEmployeeAndMonth は (施術者, 月) のスナップショットを削除し、削除件数を返します。
func (r *SalaryRepository) DeleteByEmployeeAndMonth(ctx context.Context, employeeID string, month time.Time) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM salaries WHERE employee_id = $1 AND month = $2`, employeeID, monthDate(month))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByMonth は指定月のスナップショットを作成順に返します。
func (r *SalaryRepository) ListByMonth(ctx context.Context, month time.Time) ([]*payroll.Salary, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+salaryColumns+`
          FROM salaries
         WHERE month = $1
         ORDER BY created_at, employee_id, id
    `, monthDate(month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	salaries := make([]*payroll.Salary, 0)
	for rows.Next() {
		salary, err := scanSalary(rows)
		if err != nil {
			return nil, err
		}
		salaries = append(salaries, salary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return salaries, nil
}

func scanSalary(row pgx.Row) (*payroll.Salary, error) {
	var s payroll.Salary
	if err := row.Scan(
		&s.ID,
		&s.EmployeeID,
		&s.Month,
		&s.ServicesProvided,
		&s.BaseSalary,
		&s.Commission,
		&s.Performance,
		&s.TotalSalary,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.Month = monthDate(s.Month)
	return &s, nil
}

func monthDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
