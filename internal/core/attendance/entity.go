package attendance

import "time"

// Status は勤怠区分を表します。
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusLeave   Status = "LEAVE"
)

// Attendance は施術者の 1 日分の出退勤記録です。同じ日に複数件存在し得ます。
type Attendance struct {
	ID         string
	EmployeeID string
	Arrival    *time.Time
	Departure  *time.Time
	Status     Status
	CreatedAt  time.Time
}

// Summary は勤怠区分ごとの件数です。
type Summary struct {
	Present      int
	Absent       int
	Leave        int
	Unrecognized int
}

