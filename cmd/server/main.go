package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IshanMadusanka13/Salon-Capta/internal/adapters/grpc/handler"
	"github.com/IshanMadusanka13/Salon-Capta/internal/adapters/notifier"
	"github.com/IshanMadusanka13/Salon-Capta/internal/adapters/repository/postgres"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/appointment"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/attendance"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/employee"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/payroll"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/reminder"
	"github.com/IshanMadusanka13/Salon-Capta/internal/platform/config"
	pg "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
	"github.com/IshanMadusanka13/Salon-Capta/internal/platform/logging"
	"github.com/IshanMadusanka13/Salon-Capta/internal/platform/scheduler"
	"github.com/IshanMadusanka13/Salon-Capta/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("server stopped with error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)
	loc := cfg.Server.Location

	dbPool, err := pg.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool, pg.WithIsolationLevel(cfg.Database.IsolationLevel))

	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	appointmentRepo := postgres.NewAppointmentRepository(dbPool)
	attendanceRepo := postgres.NewAttendanceRepository(dbPool)
	salaryRepo := postgres.NewSalaryRepository(dbPool)

	notify := notifier.New(
		notifier.NewSMTPMailer(cfg.SMTP, logger),
		notifier.NewHTTPSMSSender(cfg.SMS, &http.Client{Timeout: cfg.SMS.Timeout}, logger),
	)

	hours, err := appointment.ParseBusinessHours(cfg.Booking.OpenAt, cfg.Booking.CloseAt, cfg.Booking.SlotLength)
	if err != nil {
		return fmt.Errorf("booking hours: %w", err)
	}
	appointmentSvc := appointment.NewService(appointmentRepo, nil, loc, hours, logger)
	attendanceSvc := attendance.NewService(attendanceRepo, employeeRepo, nil, txManager, logger)
	employeeSvc := employee.NewService(employeeRepo, nil, txManager)

	payrollSvc, err := payroll.NewService(
		payroll.Dependencies{
			Roster:       employeeRepo,
			Appointments: appointmentRepo,
			Attendance:   attendanceRepo,
			Salaries:     salaryRepo,
			Mailer:       notify,
		},
		payroll.Policy{
			ServiceBonusUnit:     cfg.Payroll.ServiceBonusUnit,
			AttendanceBonusUnit:  cfg.Payroll.AttendanceBonusUnit,
			AbsenceDeductionRate: cfg.Payroll.AbsenceDeductionRate,
			LeaveDeductionRate:   cfg.Payroll.LeaveDeductionRate,
			WeekendDays:          cfg.Payroll.WeekendDays,
			Mode:                 payroll.SettlementMode(cfg.Payroll.SettlementMode),
		},
		payroll.Options{
			Tx:          txManager,
			Logger:      logger,
			MaxParallel: cfg.Payroll.MaxParallel,
		},
	)
	if err != nil {
		return fmt.Errorf("payroll: %w", err)
	}
	defer payrollSvc.Wait()

	inventorySvc := inventory.NewService(inventory.Dependencies{
		Products:     postgres.NewProductRepository(dbPool),
		Services:     postgres.NewSalonServiceRepository(dbPool),
		Transactions: postgres.NewPosTransactionRepository(dbPool),
		Employees:    employeeRepo,
		Appointments: appointmentRepo,
	}, nil, txManager, logger)

	if cfg.Reminder.Enabled {
		reminders := reminder.NewService(appointmentSvc, notify, loc, cfg.Reminder.SalonContact, logger)
		jobs := scheduler.New(loc, logger)
		if err := jobs.AddJob("email-reminders", cfg.Reminder.EmailRule, func(ctx context.Context, firedAt time.Time) error {
			_, err := reminders.SendEmailReminders(ctx, firedAt)
			return err
		}); err != nil {
			return fmt.Errorf("schedule email reminders: %w", err)
		}
		if err := jobs.AddJob("sms-reminders", cfg.Reminder.SMSRule, func(ctx context.Context, firedAt time.Time) error {
			_, err := reminders.SendSMSReminders(ctx, firedAt)
			return err
		}); err != nil {
			return fmt.Errorf("schedule sms reminders: %w", err)
		}
		jobs.Start(ctx)
		defer jobs.Stop()
	}

	salon := handler.NewSalonGrpcHandler(handler.UseCases{
		Appointments: appointmentSvc,
		Attendance:   attendanceSvc,
		Payroll:      payrollSvc,
		Inventory:    inventorySvc,
		Employees:    employeeSvc,
	}, loc)
	grpcServer := server.New(cfg.Server.ListenAddr, salon, logger)

	logger.Info("gRPC server listening", "addr", cfg.Server.ListenAddr, "time_zone", loc.String())

	return grpcServer.Run(ctx)
}
