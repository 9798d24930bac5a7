package attendance

import (
	"context"
	"time"
)

// Repository は勤怠記録の永続化と検索の抽象です。範囲検索は arrival に対して両端を含みます。
type Repository interface {
	Create(ctx context.Context, record *Attendance) (*Attendance, error)
	FindByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]*Attendance, error)
	FindByEmployee(ctx context.Context, employeeID string) ([]*Attendance, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]*Attendance, error)
	FindAll(ctx context.Context) ([]*Attendance, error)
}

// EmployeeChecker は勤怠登録時に施術者の存在を確認します。
type EmployeeChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}
