package payroll

import (
	"context"
	"time"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/attendance"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/employee"
)

// Roster は精算対象の施術者一覧を提供します。
type Roster interface {
	ListAll(ctx context.Context) ([]*employee.Employee, error)
}

// AppointmentCounter は期間内の施術件数を数えます。取消済みの予約は数えません。
type AppointmentCounter interface {
	CountByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) (int, error)
}

// AttendanceSource は期間内の勤怠記録を提供します。
type AttendanceSource interface {
	FindByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]*attendance.Attendance, error)
}

// SalaryRepository は給与スナップショットの永続化の抽象です。
type SalaryRepository interface {
	Create(ctx context.Context, salary *Salary) (*Salary, error)
	DeleteByEmployeeAndMonth(ctx context.Context, employeeID string, month time.Time) (int64, error)
	ListByMonth(ctx context.Context, month time.Time) ([]*Salary, error)
}

// Mailer は精算結果の通知に使う送信手段です。
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}
