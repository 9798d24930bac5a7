package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/attendance"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/employee"
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

const (
	defaultMaxParallel   = 4
	defaultNotifyTimeout = 2 * time.Minute
)

// Dependencies は Service が利用するリポジトリ群です。
type Dependencies struct {
	Roster       Roster
	Appointments AppointmentCounter
	Attendance   AttendanceSource
	Salaries     SalaryRepository
	Mailer       Mailer
}

// Options は Service の動作設定です。
// NotifyTimeout は精算後に非同期で送る給与明細メール全体の上限時間です。
type Options struct {
	Clock         Clock
	Tx            TransactionManager
	Logger        *slog.Logger
	MaxParallel   int
	NotifyTimeout time.Duration
}

// Service は月次給与精算を提供します。
type Service struct {
	deps          Dependencies
	policy        Policy
	clock         Clock
	tx            TransactionManager
	logger        *slog.Logger
	maxParallel   int
	notifyTimeout time.Duration
	notifying     sync.WaitGroup
}

// UseCase は給与精算ユースケースの公開インターフェースです。
type UseCase interface {
	Settle(ctx context.Context, in SettleInput) (*SettleResult, error)
	ListSalaries(ctx context.Context, month time.Time) ([]*Salary, error)
}

// NewService は Service を生成します。ポリシーが不正な場合は ErrInvalidPolicy を返します。
func NewService(deps Dependencies, policy Policy, opts Options) (*Service, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if policy.Mode == "" {
		policy.Mode = SettlementModeAppend
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Tx == nil {
		opts.Tx = noopTransactionManager{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	return &Service{
		deps:          deps,
		policy:        policy,
		clock:         opts.Clock,
		tx:            opts.Tx,
		logger:        opts.Logger,
		maxParallel:   opts.MaxParallel,
		notifyTimeout: opts.NotifyTimeout,
	}, nil
}

// Validate はポリシー値の範囲を検証します。
func (p Policy) Validate() error {
	if p.ServiceBonusUnit < 0 || p.AttendanceBonusUnit < 0 {
		return fmt.Errorf("%w: bonus units must not be negative", ErrInvalidPolicy)
	}
	if p.AbsenceDeductionRate < 0 || p.AbsenceDeductionRate > 1 || p.LeaveDeductionRate < 0 || p.LeaveDeductionRate > 1 {
		return fmt.Errorf("%w: deduction rates must be within [0, 1]", ErrInvalidPolicy)
	}
	switch p.Mode {
	case "", SettlementModeAppend, SettlementModeReplace:
	default:
		return fmt.Errorf("%w: unknown settlement mode %q", ErrInvalidPolicy, p.Mode)
	}
	return nil
}

// SettleInput は精算対象の月です。Month はその月に含まれる任意の日時で構いません。
type SettleInput struct {
	Month time.Time
}

// SettleResult は精算実行の結果です。
type SettleResult struct {
	Month       time.Time
	WorkingDays int
	Salaries    []*Salary
}

// Settle は全施術者の月次給与を計算し、スナップショットとして保存します。
// 施術者ごとの集計は並行に行い、保存は 1 トランザクション内で順に行います。
// 給与明細メールはコミット後にバックグラウンドで送信し、応答を待たせません。
func (s *Service) Settle(ctx context.Context, in SettleInput) (*SettleResult, error) {
	if in.Month.IsZero() {
		return nil, ErrInvalidMonth
	}

	window := timerange.Month(in.Month)
	first := window.From

	workingDays := WorkingDays(window.From, window.To, s.policy.WeekendDays)
	if workingDays == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDegenerateScheduleWindow, first.Format("2006-01"))
	}

	roster, err := s.deps.Roster.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("payroll: load roster: %w", err)
	}

	now := s.clock.Now()
	salaries := make([]*Salary, len(roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, emp := range roster {
		i, emp := i, emp
		g.Go(func() error {
			breakdown, err := s.collect(gctx, emp.ID, window, workingDays)
			if err != nil {
				return fmt.Errorf("payroll: employee %s: %w", emp.ID, err)
			}
			salary, err := Compute(emp.BaseSalary, breakdown, s.policy)
			if err != nil {
				return err
			}
			salary.ID = uuid.NewString()
			salary.EmployeeID = emp.ID
			salary.Month = first
			salary.CreatedAt = now
			salaries[i] = salary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	saved := make([]*Salary, 0, len(salaries))
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		saved = saved[:0]
		for _, salary := range salaries {
			if s.policy.Mode == SettlementModeReplace {
				removed, err := s.deps.Salaries.DeleteByEmployeeAndMonth(txCtx, salary.EmployeeID, first)
				if err != nil {
					return err
				}
				if removed > 0 {
					s.logger.DebugContext(txCtx, "replaced previous salary snapshots",
						"employee_id", salary.EmployeeID,
						"removed", removed,
					)
				}
			}
			created, err := s.deps.Salaries.Create(txCtx, salary)
			if err != nil {
				return err
			}
			saved = append(saved, created)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payroll settled",
		"month", first.Format("2006-01"),
		"employees", len(saved),
		"working_days", workingDays,
		"mode", s.policy.Mode,
	)

	s.notifyAsync(ctx, roster, saved)

	return &SettleResult{Month: first, WorkingDays: workingDays, Salaries: saved}, nil
}

func (s *Service) collect(ctx context.Context, employeeID string, window timerange.Window, workingDays int) (Breakdown, error) {
	serviceCount, err := s.deps.Appointments.CountByEmployeeBetween(ctx, employeeID, window.From, window.To)
	if err != nil {
		return Breakdown{}, fmt.Errorf("count appointments: %w", err)
	}

	records, err := s.deps.Attendance.FindByEmployeeBetween(ctx, employeeID, window.From, window.To)
	if err != nil {
		return Breakdown{}, fmt.Errorf("load attendance: %w", err)
	}

	summary := attendance.Tally(records)
	if summary.Unrecognized > 0 {
		s.logger.WarnContext(ctx, "attendance records with unrecognized status excluded from settlement",
			"employee_id", employeeID,
			"count", summary.Unrecognized,
		)
	}

	return Breakdown{
		ServiceCount: serviceCount,
		PresentDays:  summary.Present,
		AbsentDays:   summary.Absent,
		LeaveDays:    summary.Leave,
		WorkingDays:  workingDays,
	}, nil
}

// Compute は 1 名分の給与を計算します。b.WorkingDays が 0 以下の場合は ErrDegenerateScheduleWindow を返します。
func Compute(baseSalary float64, b Breakdown, policy Policy) (*Salary, error) {
	if b.WorkingDays <= 0 {
		return nil, ErrDegenerateScheduleWindow
	}

	daily := baseSalary / float64(b.WorkingDays)
	serviceBonus := float64(b.ServiceCount) * policy.ServiceBonusUnit
	attendanceBonus := float64(b.PresentDays) * policy.AttendanceBonusUnit
	absenceDeduction := float64(b.AbsentDays) * (daily * policy.AbsenceDeductionRate)
	leaveDeduction := float64(b.LeaveDays) * (daily * policy.LeaveDeductionRate)

	return &Salary{
		ServicesProvided: b.ServiceCount,
		BaseSalary:       baseSalary,
		Commission:       serviceBonus,
		Performance:      attendanceBonus - (absenceDeduction + leaveDeduction),
		TotalSalary:      baseSalary + serviceBonus + attendanceBonus - absenceDeduction - leaveDeduction,
	}, nil
}

// WorkingDays は first から last まで(両端含む)の暦日のうち weekend に含まれない日数を返します。
func WorkingDays(first, last time.Time, weekend []time.Weekday) int {
	var off [7]bool
	for _, day := range weekend {
		off[day] = true
	}

	count := 0
	day := timerange.StartOfDay(first)
	end := timerange.StartOfDay(last)
	for !day.After(end) {
		if !off[day.Weekday()] {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

// ListSalaries は指定月に保存された給与スナップショットを返します。
func (s *Service) ListSalaries(ctx context.Context, month time.Time) ([]*Salary, error) {
	if month.IsZero() {
		return nil, ErrInvalidMonth
	}

	var salaries []*Salary
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.deps.Salaries.ListByMonth(txCtx, timerange.FirstOfMonth(month))
		if err != nil {
			return err
		}
		salaries = found
		return nil
	}); err != nil {
		return nil, err
	}

	if salaries == nil {
		salaries = []*Salary{}
	}
	return salaries, nil
}

// Wait はバックグラウンドで送信中の給与明細メールがすべて終わるまで待機します。
func (s *Service) Wait() {
	s.notifying.Wait()
}

func (s *Service) notifyAsync(ctx context.Context, roster []*employee.Employee, salaries []*Salary) {
	if s.deps.Mailer == nil || len(salaries) == 0 {
		return
	}

	// RPC の終了でキャンセルされないよう親のキャンセルを切り離します。
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	s.notifying.Add(1)
	go func() {
		defer s.notifying.Done()
		defer cancel()
		s.notify(notifyCtx, roster, salaries)
	}()
}

func (s *Service) notify(ctx context.Context, roster []*employee.Employee, salaries []*Salary) {
	emails := make(map[string]*employee.Employee, len(roster))
	for _, emp := range roster {
		emails[emp.ID] = emp
	}

	for _, salary := range salaries {
		emp, ok := emails[salary.EmployeeID]
		if !ok || emp.Email == "" {
			continue
		}
		subject := fmt.Sprintf("Salon Capta: Salary statement for %s", salary.Month.Format("January 2006"))
		body := fmt.Sprintf(
			"Dear %s,\n\nServices provided: %d\nBase salary: %.2f\nCommission: %.2f\nPerformance: %.2f\nTotal salary: %.2f\n",
			emp.Name, salary.ServicesProvided, salary.BaseSalary, salary.Commission, round2(salary.Performance), round2(salary.TotalSalary),
		)
		if ctx.Err() != nil {
			s.logger.WarnContext(ctx, "salary statement delivery timed out",
				"employee_id", emp.ID,
				"error", ctx.Err(),
			)
			return
		}
		if err := s.deps.Mailer.SendMail(ctx, emp.Email, subject, body); err != nil {
			s.logger.WarnContext(ctx, "failed to send salary statement",
				"employee_id", emp.ID,
				"error", err,
			)
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
