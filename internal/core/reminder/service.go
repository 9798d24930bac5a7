// Package reminder は翌日・当日の予約に対するリマインダー送信を扱います。
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/appointment"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/timerange"
)

const (
	emailSubject = "Salon Capta: Your Appointment Tomorrow"
	timeLayout   = "03:04 PM"
)

// AppointmentLister は範囲内の予約を提供します。
type AppointmentLister interface {
	ListInRange(ctx context.Context, from, to time.Time) ([]*appointment.Appointment, error)
}

// Notifier は片方向の通知送信手段です。配送結果は呼び出し側に返しません。
type Notifier interface {
	SendSMS(ctx context.Context, text string) error
	SendMail(ctx context.Context, to, subject, body string) error
}

// Result は 1 回の送信処理の件数です。
type Result struct {
	Appointments int
	Sent         int
	Failed       int
	Skipped      int
}

// Service はリマインダー送信を行います。
type Service struct {
	appointments AppointmentLister
	notifier     Notifier
	location     *time.Location
	contact      string
	logger       *slog.Logger
}

// NewService は Service を生成します。contact は SMS 文面に載せるサロンの連絡先です。
func NewService(appointments AppointmentLister, notifier Notifier, loc *time.Location, contact string, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{appointments: appointments, notifier: notifier, location: loc, contact: contact, logger: logger}
}

// SendEmailReminders は now の翌日の予約客にメールを送ります。送信失敗はログに残して処理を続けます。
func (s *Service) SendEmailReminders(ctx context.Context, now time.Time) (Result, error) {
	tomorrow := timerange.Day(now.In(s.location).AddDate(0, 0, 1))
	bookings, err := s.appointments.ListInRange(ctx, tomorrow.From, tomorrow.To)
	if err != nil {
		return Result{}, fmt.Errorf("reminder: load tomorrow's appointments: %w", err)
	}

	result := Result{Appointments: len(bookings)}
	for _, booking := range bookings {
		details := booking.Details
		if details == nil || details.CustomerEmail == "" {
			result.Skipped++
			continue
		}
		if err := s.notifier.SendMail(ctx, details.CustomerEmail, emailSubject, s.emailBody(booking)); err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "failed to send email reminder",
				"appointment_id", booking.ID,
				"error", err,
			)
			continue
		}
		result.Sent++
	}

	s.logger.InfoContext(ctx, "email reminders processed",
		"appointments", result.Appointments,
		"sent", result.Sent,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

// SendSMSReminders は now と同じ日の予約について SMS を送ります。送信失敗はログに残して処理を続けます。
func (s *Service) SendSMSReminders(ctx context.Context, now time.Time) (Result, error) {
	today := timerange.Day(now.In(s.location))
	bookings, err := s.appointments.ListInRange(ctx, today.From, today.To)
	if err != nil {
		return Result{}, fmt.Errorf("reminder: load today's appointments: %w", err)
	}

	result := Result{Appointments: len(bookings)}
	for _, booking := range bookings {
		if err := s.notifier.SendSMS(ctx, s.smsText(booking)); err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "failed to send sms reminder",
				"appointment_id", booking.ID,
				"error", err,
			)
			continue
		}
		result.Sent++
	}

	s.logger.InfoContext(ctx, "sms reminders processed",
		"appointments", result.Appointments,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Service) emailBody(booking *appointment.Appointment) string {
	d := detailsOf(booking)
	slot := booking.TimeSlot.In(s.location)
	return fmt.Sprintf("Dear %s,\n\n"+
		"This is a friendly reminder that you have an appointment scheduled tomorrow at Salon Capta.\n\n"+
		"Appointment Details:\n"+
		"- Service: %s\n"+
		"- Stylist: %s\n"+
		"- Date: %s\n"+
		"- Time: %s\n\n"+
		"If you need to reschedule, please contact us at least 24 hours in advance.\n\n"+
		"We look forward to seeing you!\n\n"+
		"Warm regards,\n"+
		"The Salon Capta Team",
		d.CustomerName,
		d.ServiceName,
		d.EmployeeName,
		slot.Format(timerange.DateLayout),
		slot.Format(timeLayout),
	)
}

func (s *Service) smsText(booking *appointment.Appointment) string {
	d := detailsOf(booking)
	return fmt.Sprintf(
		"Salon Capta Reminder: You have an appointment today at %s with %s for %s. We look forward to seeing you! Call %s if you need assistance.",
		booking.TimeSlot.In(s.location).Format(timeLayout),
		d.EmployeeName,
		d.ServiceName,
		s.contact,
	)
}

func detailsOf(booking *appointment.Appointment) appointment.Details {
	if booking.Details == nil {
		return appointment.Details{}
	}
	return *booking.Details
}
