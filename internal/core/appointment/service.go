package appointment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

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

// BusinessHours は空き枠計算に使う営業時間です。Open と Close は 0:00 からの経過時間で表します。
type BusinessHours struct {
	Open       time.Duration
	Close      time.Duration
	SlotLength time.Duration
}

// ParseBusinessHours は "15:04" 形式の開店・閉店時刻から BusinessHours を構築します。
func ParseBusinessHours(openAt, closeAt string, slotLength time.Duration) (BusinessHours, error) {
	open, err := parseClock(openAt)
	if err != nil {
		return BusinessHours{}, err
	}
	closing, err := parseClock(closeAt)
	if err != nil {
		return BusinessHours{}, err
	}
	hours := BusinessHours{Open: open, Close: closing, SlotLength: slotLength}
	if err := hours.validate(); err != nil {
		return BusinessHours{}, err
	}
	return hours, nil
}

func parseClock(raw string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBusinessHours, raw)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (h BusinessHours) validate() error {
	if h.SlotLength <= 0 || h.Close <= h.Open || h.Close > 24*time.Hour {
		return ErrInvalidBusinessHours
	}
	return nil
}

// Service は予約枠の参照と状態遷移を提供します。
type Service struct {
	repo     Repository
	clock    Clock
	location *time.Location
	hours    BusinessHours
	logger   *slog.Logger
}

// UseCase は予約ユースケースの公開インターフェースです。
type UseCase interface {
	ListBookedSlots(ctx context.Context, in ListBookedSlotsInput) ([]*Appointment, error)
	ListFreeSlots(ctx context.Context, in ListFreeSlotsInput) ([]time.Time, error)
	ListInRange(ctx context.Context, from, to time.Time) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, in UpdateStatusInput) (*Appointment, error)
	Cancel(ctx context.Context, id string) (*Appointment, error)
}

// NewService は Service を生成します。loc は日付入力を解釈するタイムゾーンです。
func NewService(repo Repository, clock Clock, loc *time.Location, hours BusinessHours, logger *slog.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock, location: loc, hours: hours, logger: logger}
}

// ListBookedSlotsInput は予約済み枠の取得入力です。Date は YYYY-MM-DD 形式です。
type ListBookedSlotsInput struct {
	EmployeeID string
	Date       string
}

// ListFreeSlotsInput は空き枠の取得入力です。Hours が nil の場合はサービス既定の営業時間を使います。
type ListFreeSlotsInput struct {
	EmployeeID string
	Date       string
	Hours      *BusinessHours
}

// UpdateStatusInput は予約状態の更新入力です。
type UpdateStatusInput struct {
	ID     string
	Status Status
}

// ListBookedSlots は指定日の施術者の予約を時刻順に返します。予約がない日は空スライスを返します。
func (s *Service) ListBookedSlots(ctx context.Context, in ListBookedSlotsInput) ([]*Appointment, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, ErrInvalidEmployeeID
	}

	day, err := timerange.ParseDate(in.Date, s.location)
	if err != nil {
		return nil, err
	}

	window := timerange.Day(day)
	booked, err := s.repo.FindByEmployeeBetween(ctx, employeeID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	if booked == nil {
		booked = []*Appointment{}
	}

	s.logger.DebugContext(ctx, "loaded booked slots",
		"employee_id", employeeID,
		"date", day.Format(timerange.DateLayout),
		"count", len(booked),
	)
	return booked, nil
}

// ListFreeSlots は営業時間から予約済み枠を差し引いた空き枠の開始時刻を返します。
func (s *Service) ListFreeSlots(ctx context.Context, in ListFreeSlotsInput) ([]time.Time, error) {
	hours := s.hours
	if in.Hours != nil {
		hours = *in.Hours
	}
	if err := hours.validate(); err != nil {
		return nil, err
	}

	booked, err := s.ListBookedSlots(ctx, ListBookedSlotsInput{EmployeeID: in.EmployeeID, Date: in.Date})
	if err != nil {
		return nil, err
	}

	// ListBookedSlots が日付を検証済みのため再解析は失敗しない。
	day, _ := timerange.ParseDate(in.Date, s.location)
	return freeSlots(day, hours, booked), nil
}

func freeSlots(day time.Time, hours BusinessHours, booked []*Appointment) []time.Time {
	open := day.Add(hours.Open)
	closing := day.Add(hours.Close)

	slots := make([]time.Time, 0, int(hours.Close-hours.Open)/int(hours.SlotLength))
	for start := open; !start.Add(hours.SlotLength).After(closing); start = start.Add(hours.SlotLength) {
		end := start.Add(hours.SlotLength)
		taken := false
		for _, appt := range booked {
			bookedEnd := appt.TimeSlot.Add(hours.SlotLength)
			if appt.TimeSlot.Before(end) && bookedEnd.After(start) {
				taken = true
				break
			}
		}
		if !taken {
			slots = append(slots, start)
		}
	}
	return slots
}

// ListInRange は範囲内の全施術者の予約を返します。リマインダー送信などの定期処理が利用します。
func (s *Service) ListInRange(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	appointments, err := s.repo.FindBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "loaded appointments in range", "from", from, "to", to, "count", len(appointments))
	return appointments, nil
}

// UpdateStatus は予約状態を更新します。
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*Appointment, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	status, err := ParseStatus(string(in.Status))
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, in.ID, status, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "appointment status updated", "appointment_id", in.ID, "status", status)
	return updated, nil
}

// Cancel は予約を取消状態にします。取消済みの予約は予約済み枠・施術件数に数えられません。
func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	return s.UpdateStatus(ctx, UpdateStatusInput{ID: id, Status: StatusCancelled})
}

// ParseStatus は大小文字や引用符の揺れを吸収して Status に変換します。
func ParseStatus(raw string) (Status, error) {
	normalized := Status(strings.ToUpper(strings.Trim(strings.TrimSpace(raw), `"`)))
	switch normalized {
	case StatusUpcoming, StatusCompleted, StatusCancelled:
		return normalized, nil
	default:
		return "", ErrInvalidStatus
	}
}
