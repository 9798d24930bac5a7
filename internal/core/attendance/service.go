package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/timerange"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

var validate = validator.New()

// DateRange は暦日単位の期間です。Start の 00:00 から End の 23:59:59.999 までを表します。
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Window は DateRange を arrival に適用する時刻範囲に変換します。
func (r DateRange) Window() (timerange.Window, error) {
	if r.End.Before(r.Start) {
		return timerange.Window{}, ErrInvalidDateRange
	}
	return timerange.Days(r.Start, r.End), nil
}

// Query は勤怠検索の条件です。EmployeeID と Range はどちらも省略可能です。
type Query struct {
	EmployeeID *string
	Range      *DateRange
}

// MarkAttendanceInput は勤怠登録の入力です。
type MarkAttendanceInput struct {
	EmployeeID string `validate:"required"`
	Arrival    *time.Time
	Departure  *time.Time
	Status     string `validate:"required"`
}

// Service は勤怠の検索・集計・登録を提供します。
type Service struct {
	repo      Repository
	employees EmployeeChecker
	clock     Clock
	tx        TransactionManager
	logger    *slog.Logger
}

// UseCase は勤怠ユースケースの公開インターフェースです。
type UseCase interface {
	Find(ctx context.Context, q Query) ([]*Attendance, error)
	Summarize(ctx context.Context, q Query) (Summary, error)
	MarkAttendance(ctx context.Context, in MarkAttendanceInput) (*Attendance, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, employees EmployeeChecker, clock Clock, tx TransactionManager, logger *slog.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, employees: employees, clock: clock, tx: tx, logger: logger}
}

// Find は条件の有無に応じて 4 通りの検索を使い分けます。
//
//	施術者 + 期間 → FindByEmployeeBetween
//	施術者のみ    → FindByEmployee
//	期間のみ      → FindBetween
//	指定なし      → FindAll
func (s *Service) Find(ctx context.Context, q Query) ([]*Attendance, error) {
	var employeeID string
	if q.EmployeeID != nil {
		employeeID = strings.TrimSpace(*q.EmployeeID)
		if employeeID == "" {
			return nil, ErrInvalidEmployeeID
		}
	}

	var window timerange.Window
	if q.Range != nil {
		w, err := q.Range.Window()
		if err != nil {
			return nil, err
		}
		window = w
	}

	var records []*Attendance
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		var err error
		switch {
		case q.EmployeeID != nil && q.Range != nil:
			records, err = s.repo.FindByEmployeeBetween(txCtx, employeeID, window.From, window.To)
		case q.EmployeeID != nil:
			records, err = s.repo.FindByEmployee(txCtx, employeeID)
		case q.Range != nil:
			records, err = s.repo.FindBetween(txCtx, window.From, window.To)
		default:
			records, err = s.repo.FindAll(txCtx)
		}
		return err
	}); err != nil {
		return nil, err
	}

	if records == nil {
		records = []*Attendance{}
	}
	return records, nil
}

// Summarize は条件に合う勤怠記録を集計します。
func (s *Service) Summarize(ctx context.Context, q Query) (Summary, error) {
	records, err := s.Find(ctx, q)
	if err != nil {
		return Summary{}, err
	}

	summary := Tally(records)
	if summary.Unrecognized > 0 {
		s.logger.WarnContext(ctx, "attendance records with unrecognized status excluded from tally",
			"count", summary.Unrecognized,
		)
	}
	return summary, nil
}

// Tally は勤怠記録を区分ごとに数えます。未知の区分は Unrecognized に計上し、既知の区分には含めません。
func Tally(records []*Attendance) Summary {
	var summary Summary
	for _, record := range records {
		if record == nil {
			continue
		}
		switch record.Status {
		case StatusPresent:
			summary.Present++
		case StatusAbsent:
			summary.Absent++
		case StatusLeave:
			summary.Leave++
		default:
			summary.Unrecognized++
		}
	}
	return summary
}

// MarkAttendance は勤怠記録を登録します。
func (s *Service) MarkAttendance(ctx context.Context, in MarkAttendanceInput) (*Attendance, error) {
	if err := validate.Struct(in); err != nil {
		if strings.TrimSpace(in.EmployeeID) == "" {
			return nil, ErrInvalidEmployeeID
		}
		return nil, ErrInvalidStatus
	}

	status, err := ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if in.Arrival != nil && in.Departure != nil && in.Departure.Before(*in.Arrival) {
		return nil, ErrInvalidTimes
	}

	record := &Attendance{
		ID:         uuid.NewString(),
		EmployeeID: strings.TrimSpace(in.EmployeeID),
		Arrival:    in.Arrival,
		Departure:  in.Departure,
		Status:     status,
		CreatedAt:  s.clock.Now(),
	}

	var created *Attendance
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if s.employees != nil {
			exists, err := s.employees.Exists(txCtx, record.EmployeeID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: %s", ErrEmployeeNotFound, record.EmployeeID)
			}
		}

		result, err := s.repo.Create(txCtx, record)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "attendance marked",
		"attendance_id", created.ID,
		"employee_id", created.EmployeeID,
		"status", created.Status,
	)
	return created, nil
}

// ParseStatus は文字列を Status に変換します。
func ParseStatus(raw string) (Status, error) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch normalized {
	case StatusPresent, StatusAbsent, StatusLeave:
		return normalized, nil
	default:
		return "", ErrInvalidStatus
	}
}
