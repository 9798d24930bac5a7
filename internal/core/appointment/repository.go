package appointment

import (
	"context"
	"time"
)

// Repository は予約の参照・状態更新を行う抽象です。
// 範囲検索はいずれも両端を含み、取消済み(CANCELLED)の予約を除外して time_slot 昇順で返します。
type Repository interface {
	FindByID(ctx context.Context, id string) (*Appointment, error)
	FindByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]*Appointment, error)
	CountByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) (int, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (*Appointment, error)
}
