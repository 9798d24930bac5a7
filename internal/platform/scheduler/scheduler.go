package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teambition/rrule-go"
)

// Job は繰り返し規則に従って実行されるジョブです。
type Job struct {
	Name string
	Rule string
	Fn   func(ctx context.Context, firedAt time.Time) error

	option rrule.ROption
}

// Scheduler は RFC 5545 の RRULE で次回実行時刻を決めるジョブランナーです。
type Scheduler struct {
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	jobs    []*Job
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New は Scheduler を生成します。loc は規則の BYHOUR 等を解釈するタイムゾーンです。
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		loc:    loc,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}
}

// AddJob はジョブを登録します。規則を解釈できない場合はエラーを返します。
func (s *Scheduler) AddJob(name, rule string, fn func(ctx context.Context, firedAt time.Time) error) error {
	option, err := rrule.StrToROptionInLocation(rule, s.loc)
	if err != nil {
		return fmt.Errorf("scheduler: job %s: parse rule %q: %w", name, rule, err)
	}
	job := &Job{Name: name, Rule: rule, Fn: fn, option: *option}
	if _, err := s.next(job, s.now()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	s.logger.Info("scheduled job registered", "name", name, "rule", rule)
	return nil
}

// NextFire は now より後の次回実行時刻を返します。以降の実行がない場合はゼロ値を返します。
func (s *Scheduler) NextFire(name string, now time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.Name == name {
			return s.next(job, now)
		}
	}
	return time.Time{}, fmt.Errorf("scheduler: unknown job %s", name)
}

func (s *Scheduler) next(job *Job, now time.Time) (time.Time, error) {
	option := job.option
	if option.Dtstart.IsZero() {
		local := now.In(s.loc)
		option.Dtstart = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, -1)
	}
	rule, err := rrule.NewRRule(option)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: job %s: %w", job.Name, err)
	}
	return rule.After(now, false), nil
}

// Start は全ジョブの実行ループを開始します。ctx がキャンセルされるか Stop が呼ばれると終了します。
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.run(ctx, job)
	}
	s.logger.Info("scheduler started", "job_count", len(s.jobs))
}

// Stop は実行ループを停止し、実行中のジョブの完了を待ちます。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, job *Job) {
	defer s.wg.Done()

	for {
		now := s.now()
		fireAt, err := s.next(job, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduled job stopped", "name", job.Name, "error", err)
			return
		}
		if fireAt.IsZero() {
			s.logger.InfoContext(ctx, "scheduled job has no further occurrences", "name", job.Name)
			return
		}

		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduled job stopping", "name", job.Name)
			return
		case <-s.after(fireAt.Sub(now)):
			s.execute(ctx, job, fireAt)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job, firedAt time.Time) {
	start := time.Now()
	s.logger.DebugContext(ctx, "scheduled job starting", "name", job.Name, "fired_at", firedAt)

	if err := job.Fn(ctx, firedAt); err != nil {
		s.logger.ErrorContext(ctx, "scheduled job failed", "name", job.Name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.DebugContext(ctx, "scheduled job completed", "name", job.Name, "duration", time.Since(start))
}
