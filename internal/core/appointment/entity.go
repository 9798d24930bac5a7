package appointment

import "time"

// Status は予約の状態を表します。
type Status string

const (
	StatusUpcoming  Status = "UPCOMING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Appointment は顧客・施術者・メニューを結びつける予約です。TimeSlot は固定長枠の開始時刻です。
type Appointment struct {
	ID         string
	EmployeeID string
	ServiceID  string
	UserID     string
	TimeSlot   time.Time
	Notes      string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Details    *Details
}

// Details はリマインダー文面に使う関連エンティティのスナップショットです。
type Details struct {
	CustomerName   string
	CustomerEmail  string
	CustomerMobile string
	EmployeeName   string
	ServiceName    string
}
