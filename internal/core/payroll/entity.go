package payroll

import "time"

// Salary は月次精算で生成される給与スナップショットです。生成後に更新されることはありません。
type Salary struct {
	ID               string
	EmployeeID       string
	Month            time.Time
	ServicesProvided int
	BaseSalary       float64
	Commission       float64
	Performance      float64
	TotalSalary      float64
	CreatedAt        time.Time
}

// SettlementMode は同じ月を再精算したときの扱いです。
type SettlementMode string

const (
	// SettlementModeAppend は実行ごとに独立したスナップショットを追加します。
	SettlementModeAppend SettlementMode = "append"
	// SettlementModeReplace は (施術者, 月) の既存スナップショットを削除してから追加します。
	SettlementModeReplace SettlementMode = "replace"
)

// Policy は賞与単価・控除率・休日を定める精算ポリシーです。
type Policy struct {
	ServiceBonusUnit     float64
	AttendanceBonusUnit  float64
	AbsenceDeductionRate float64
	LeaveDeductionRate   float64
	WeekendDays          []time.Weekday
	Mode                 SettlementMode
}

// DefaultPolicy は既定の精算ポリシーを返します。
func DefaultPolicy() Policy {
	return Policy{
		ServiceBonusUnit:     200,
		AttendanceBonusUnit:  200,
		AbsenceDeductionRate: 0.5,
		LeaveDeductionRate:   0.1,
		WeekendDays:          []time.Weekday{time.Saturday, time.Sunday},
		Mode:                 SettlementModeAppend,
	}
}

// Breakdown は 1 名分の精算に使う件数の集計です。
type Breakdown struct {
	ServiceCount int
	PresentDays  int
	AbsentDays   int
	LeaveDays    int
	WorkingDays  int
}
