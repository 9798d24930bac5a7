package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
	pgdb "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
)

const (
	shampooID = "0b6f5c36-4a3e-4f8e-9d25-5f1c0a7f2a01"
	serumID   = "0b6f5c36-4a3e-4f8e-9d25-5f1c0a7f2a02"
	haircutID = "7d1e2b44-91aa-4b7c-8c11-0e6a3c2f9b10"
)

var (
	productMockColumns     = []string{"id", "product_type", "name", "price", "stock_quantity", "active", "updated_at"}
	transactionMockColumns = []string{"id", "appointment_id", "employee_id", "customer_name", "payment_method", "total_amount", "transaction_time", "created_at", "updated_at"}
	itemMockColumns        = []string{"transaction_id", "id", "kind", "product_id", "service_id", "quantity", "price"}
)

func TestProductRepository_LockForUpdate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewProductRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`)).
		WithArgs([]string{shampooID, serumID}).
		WillReturnRows(pgxmock.NewRows(productMockColumns).
			AddRow(shampooID, "HAIR_CARE", "Shampoo", decimal.RequireFromString("1250.50"), 3, true, now))
	mock.ExpectCommit()

	var products map[string]*inventory.Product
	err = pgdb.NewTransactionManager(mock).WithinReadWrite(context.Background(), func(ctx context.Context) error {
		var lockErr error
		products, lockErr = repo.LockForUpdate(ctx, []string{shampooID, "not-a-uuid", serumID})
		return lockErr
	})
	if err != nil {
		t.Fatalf("LockForUpdate returned error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	p := products[shampooID]
	if p == nil || p.StockQuantity != 3 || !p.Price.Equal(decimal.RequireFromString("1250.5")) {
		t.Fatalf("unexpected product: %+v", p)
	}
	if _, ok := products[serumID]; ok {
		t.Fatalf("missing product must not be present in result")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProductRepository_LockForUpdate_NoValidIDs(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectCommit()

	var products map[string]*inventory.Product
	err = pgdb.NewTransactionManager(mock).WithinReadWrite(context.Background(), func(ctx context.Context) error {
		var lockErr error
		products, lockErr = NewProductRepository(mock).LockForUpdate(ctx, []string{"p-1"})
		return lockErr
	})
	if err != nil {
		t.Fatalf("LockForUpdate returned error: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected no products, got %d", len(products))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProductRepository_LockForUpdate_RequiresTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	_, err = NewProductRepository(mock).LockForUpdate(context.Background(), []string{shampooID})
	if !errors.Is(err, ErrLockOutsideTransaction) {
		t.Fatalf("expected ErrLockOutsideTransaction, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProductRepository_UpdateStock_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewProductRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET stock_quantity = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs(2, now, shampooID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateStock(context.Background(), shampooID, 2, now); !errors.Is(err, inventory.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSalonServiceRepository_FindByIDs(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewSalonServiceRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM salon_services WHERE id = ANY($1)`)).
		WithArgs([]string{haircutID}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "price"}).
			AddRow(haircutID, "Haircut", decimal.RequireFromString("2500.00")))

	services, err := repo.FindByIDs(context.Background(), []string{haircutID})
	if err != nil {
		t.Fatalf("FindByIDs returned error: %v", err)
	}
	if svc := services[haircutID]; svc == nil || svc.Name != "Haircut" {
		t.Fatalf("unexpected services: %+v", services)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPosTransactionRepository_CreateInsertsItemsInOrder(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewPosTransactionRepository(mock)
	now := time.Date(2025, 6, 10, 10, 30, 0, 0, time.UTC)
	input := &inventory.PosTransaction{
		ID:            "tx-1",
		EmployeeID:    "emp-1",
		CustomerName:  "Amaya",
		PaymentMethod: "CASH",
		Items: []inventory.PosTransactionItem{
			{ID: "item-1", Kind: inventory.ItemKindProduct, ProductID: shampooID, Quantity: 2, Price: decimal.RequireFromString("1250.50")},
			{ID: "item-2", Kind: inventory.ItemKindService, ServiceID: haircutID, Quantity: 1, Price: decimal.RequireFromString("2500")},
		},
		TotalAmount:     decimal.RequireFromString("5001"),
		TransactionTime: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO pos_transactions`)).
		WithArgs("tx-1", nil, "emp-1", "Amaya", "CASH", "5001", now, now, now).
		WillReturnRows(pgxmock.NewRows(transactionMockColumns).
			AddRow("tx-1", nil, "emp-1", "Amaya", "CASH", decimal.RequireFromString("5001.00"), now, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pos_transaction_items`)).
		WithArgs("item-1", "tx-1", 0, "PRODUCT", shampooID, nil, 2, "1250.5").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pos_transaction_items`)).
		WithArgs("item-2", "tx-1", 1, "SERVICE", nil, haircutID, 1, "2500").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.AppointmentID != "" || len(created.Items) != 2 {
		t.Fatalf("unexpected transaction: %+v", created)
	}
	if !created.TotalAmount.Equal(decimal.RequireFromString("5001")) {
		t.Fatalf("unexpected total %s", created.TotalAmount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPosTransactionRepository_FindByIDLoadsItems(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewPosTransactionRepository(mock)
	now := time.Date(2025, 6, 10, 10, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM pos_transactions WHERE id = $1`)).
		WithArgs("tx-1").
		WillReturnRows(pgxmock.NewRows(transactionMockColumns).
			AddRow("tx-1", "appt-1", "emp-1", "", "CARD", decimal.RequireFromString("2500.00"), now, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM pos_transaction_items WHERE transaction_id = ANY($1) ORDER BY transaction_id, position`)).
		WithArgs([]string{"tx-1"}).
		WillReturnRows(pgxmock.NewRows(itemMockColumns).
			AddRow("tx-1", "item-1", "SERVICE", nil, haircutID, 1, decimal.RequireFromString("2500.00")))

	found, err := repo.FindByID(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if found.AppointmentID != "appt-1" {
		t.Fatalf("unexpected appointment id %q", found.AppointmentID)
	}
	if len(found.Items) != 1 || found.Items[0].ServiceID != haircutID || found.Items[0].ProductID != "" {
		t.Fatalf("unexpected items: %+v", found.Items)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPosTransactionRepository_Delete(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewPosTransactionRepository(mock)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM pos_transactions WHERE id = $1`)).
		WithArgs("tx-404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "tx-404"); !errors.Is(err, inventory.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTranslatePosTransactionPgError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		constraint string
		kind       inventory.ReferenceKind
	}{
		{constraint: "pos_transactions_employee_id_fkey", kind: inventory.ReferenceEmployee},
		{constraint: "pos_transactions_appointment_id_fkey", kind: inventory.ReferenceAppointment},
		{constraint: "pos_transaction_items_product_id_fkey", kind: inventory.ReferenceProduct},
		{constraint: "pos_transaction_items_service_id_fkey", kind: inventory.ReferenceService},
	}

	for _, tc := range cases {
		err := translatePosTransactionPgError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: tc.constraint})
		var ref *inventory.ReferenceNotFoundError
		if !errors.As(err, &ref) || ref.Kind != tc.kind {
			t.Fatalf("%s: expected reference kind %s, got %v", tc.constraint, tc.kind, err)
		}
		if !errors.Is(err, inventory.ErrReferenceNotFound) {
			t.Fatalf("%s: expected ErrReferenceNotFound", tc.constraint)
		}
	}
}
