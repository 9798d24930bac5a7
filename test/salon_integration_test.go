//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	repo "github.com/IshanMadusanka13/Salon-Capta/internal/adapters/repository/postgres"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/appointment"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/employee"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/payroll"
	"github.com/IshanMadusanka13/Salon-Capta/internal/platform/config"
	pg "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
)

const migrationsDir = "../assets/migrations"

func TestSalonIntegration(t *testing.T) {
	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database, nil)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	txManager := pg.NewTransactionManager(pool, pg.WithIsolationLevel(cfg.Database.IsolationLevel))
	clock := stubClock{now: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}

	employeeRepo := repo.NewEmployeeRepository(pool)
	appointmentRepo := repo.NewAppointmentRepository(pool)
	attendanceRepo := repo.NewAttendanceRepository(pool)

	employees := employee.NewService(employeeRepo, clock, txManager)
	stylist, err := employees.CreateEmployee(ctx, employee.CreateEmployeeInput{
		Name:       "Nimali Perera",
		Email:      "nimali@example.com",
		Phone:      "0771234567",
		BaseSalary: 42000,
	})
	if err != nil {
		t.Fatalf("CreateEmployee error: %v", err)
	}

	userID, serviceID := uuid.NewString(), uuid.NewString()
	mustExec(t, pool, `INSERT INTO users (id, name, email) VALUES ($1, 'Kasun', 'kasun@example.com')`, userID)
	mustExec(t, pool, `INSERT INTO salon_services (id, name, price) VALUES ($1, 'Hair Colouring', 3500.00)`, serviceID)
	for _, a := range []struct {
		slot   time.Time
		status string
	}{
		{time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), "COMPLETED"},
		{time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC), "UPCOMING"},
		{time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC), "CANCELLED"},
	} {
		mustExec(t, pool, `INSERT INTO appointments (id, employee_id, service_id, user_id, time_slot, status) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), stylist.ID, serviceID, userID, a.slot, a.status)
	}
	arrival := time.Date(2025, 6, 10, 8, 45, 0, 0, time.UTC)
	mustExec(t, pool, `INSERT INTO attendance (id, employee_id, arrival, status) VALUES ($1, $2, $3, 'PRESENT')`, uuid.NewString(), stylist.ID, arrival)
	mustExec(t, pool, `INSERT INTO attendance (id, employee_id, arrival, status) VALUES ($1, $2, $3, 'ABSENT')`, uuid.NewString(), stylist.ID, arrival.AddDate(0, 0, 1))

	t.Run("free slots skip booked and cancelled bookings stay free", func(t *testing.T) {
		hours, err := appointment.ParseBusinessHours("09:00", "11:00", time.Hour)
		if err != nil {
			t.Fatalf("ParseBusinessHours error: %v", err)
		}
		svc := appointment.NewService(appointmentRepo, clock, time.UTC, hours, nil)

		free, err := svc.ListFreeSlots(ctx, appointment.ListFreeSlotsInput{EmployeeID: stylist.ID, Date: "2025-06-11"})
		if err != nil {
			t.Fatalf("ListFreeSlots error: %v", err)
		}
		if len(free) != 2 {
			t.Fatalf("expected both slots free on 2025-06-11, got %v", free)
		}

		free, err = svc.ListFreeSlots(ctx, appointment.ListFreeSlotsInput{EmployeeID: stylist.ID, Date: "2025-06-10"})
		if err != nil {
			t.Fatalf("ListFreeSlots error: %v", err)
		}
		if len(free) != 0 {
			t.Fatalf("expected no free slots on 2025-06-10, got %v", free)
		}
	})

	t.Run("payroll settlement", func(t *testing.T) {
		svc, err := payroll.NewService(payroll.Dependencies{
			Roster:       employeeRepo,
			Appointments: appointmentRepo,
			Attendance:   attendanceRepo,
			Salaries:     repo.NewSalaryRepository(pool),
		}, payroll.DefaultPolicy(), payroll.Options{Clock: clock, Tx: txManager})
		if err != nil {
			t.Fatalf("NewService error: %v", err)
		}

		result, err := svc.Settle(ctx, payroll.SettleInput{Month: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
		if err != nil {
			t.Fatalf("Settle error: %v", err)
		}
		if result.WorkingDays != 21 || len(result.Salaries) != 1 {
			t.Fatalf("unexpected result: %+v", result)
		}
		salary := result.Salaries[0]
		if salary.ServicesProvided != 2 {
			t.Fatalf("expected cancelled booking to be excluded, got %d services", salary.ServicesProvided)
		}
		// 42000 + 2*200 + 1*200 - 1*(2000*0.5)
		if salary.TotalSalary != 41600 {
			t.Fatalf("expected total 41600, got %v", salary.TotalSalary)
		}

		stored, err := svc.ListSalaries(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("ListSalaries error: %v", err)
		}
		if len(stored) != 1 || stored[0].ID != salary.ID {
			t.Fatalf("expected stored snapshot, got %+v", stored)
		}
	})

	t.Run("pos transaction keeps stock consistent", func(t *testing.T) {
		productID := uuid.NewString()
		mustExec(t, pool, `INSERT INTO products (id, product_type, name, price, stock_quantity) VALUES ($1, 'RETAIL', 'Argan Shampoo', 1250.50, 5)`, productID)

		svc := inventory.NewService(inventory.Dependencies{
			Products:     repo.NewProductRepository(pool),
			Services:     repo.NewSalonServiceRepository(pool),
			Transactions: repo.NewPosTransactionRepository(pool),
			Employees:    employeeRepo,
			Appointments: appointmentRepo,
		}, clock, txManager, nil)

		created, err := svc.CreateTransaction(ctx, inventory.CreateTransactionInput{
			EmployeeID:    stylist.ID,
			PaymentMethod: "CASH",
			Lines: inventory.Lines{
				Products: []inventory.ProductLine{{ProductID: productID, Quantity: 2}},
				Services: []inventory.ServiceLine{{ServiceID: serviceID, Quantity: 1}},
			},
		})
		if err != nil {
			t.Fatalf("CreateTransaction error: %v", err)
		}
		if !created.TotalAmount.Equal(decimal.RequireFromString("6001.00")) {
			t.Fatalf("expected total 6001.00, got %s", created.TotalAmount)
		}
		if stock := stockOf(t, pool, productID); stock != 3 {
			t.Fatalf("expected stock 3 after sale, got %d", stock)
		}

		_, err = svc.CreateTransaction(ctx, inventory.CreateTransactionInput{
			EmployeeID:    stylist.ID,
			PaymentMethod: "CASH",
			Lines:         inventory.Lines{Products: []inventory.ProductLine{{ProductID: productID, Quantity: 4}}},
		})
		if !errors.Is(err, inventory.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if stock := stockOf(t, pool, productID); stock != 3 {
			t.Fatalf("expected failed sale to leave stock at 3, got %d", stock)
		}

		if err := svc.DeleteTransaction(ctx, created.ID); err != nil {
			t.Fatalf("DeleteTransaction error: %v", err)
		}
		if stock := stockOf(t, pool, productID); stock != 5 {
			t.Fatalf("expected stock restored to 5, got %d", stock)
		}
	})

	t.Run("concurrent buyers of the last unit", func(t *testing.T) {
		productID := uuid.NewString()
		mustExec(t, pool, `INSERT INTO products (id, product_type, name, price, stock_quantity) VALUES ($1, 'RETAIL', 'Hair Serum', 900.00, 1)`, productID)

		// 別々の Service を使い、プロセス内ロックではなく行ロックで排他されることを確認します。
		newInventory := func() *inventory.Service {
			return inventory.NewService(inventory.Dependencies{
				Products:     repo.NewProductRepository(pool),
				Services:     repo.NewSalonServiceRepository(pool),
				Transactions: repo.NewPosTransactionRepository(pool),
				Employees:    employeeRepo,
				Appointments: appointmentRepo,
			}, clock, txManager, nil)
		}

		const buyers = 6
		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
			rejected  atomic.Int32
		)
		for i := 0; i < buyers; i++ {
			svc := newInventory()
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.CreateTransaction(ctx, inventory.CreateTransactionInput{
					EmployeeID:    stylist.ID,
					PaymentMethod: "CARD",
					Lines:         inventory.Lines{Products: []inventory.ProductLine{{ProductID: productID, Quantity: 1}}},
				})
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, inventory.ErrInsufficientStock):
					rejected.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if got := succeeded.Load(); got != 1 {
			t.Fatalf("expected exactly one successful sale, got %d", got)
		}
		if got := rejected.Load(); got != buyers-1 {
			t.Fatalf("expected %d rejected sales, got %d", buyers-1, got)
		}
		if stock := stockOf(t, pool, productID); stock != 0 {
			t.Fatalf("expected stock 0, got %d", stock)
		}
	})
}

func mustExec(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func stockOf(t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()
	var stock int
	if err := pool.QueryRow(context.Background(), `SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return stock
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
