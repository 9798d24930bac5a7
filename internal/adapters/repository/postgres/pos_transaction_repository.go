package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
	pgdb "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
)

const posTransactionColumns = `id, appointment_id, employee_id, customer_name, payment_method, total_amount, transaction_time, created_at, updated_at`

// PosTransactionRepository は PostgreSQL を利用した POS 取引の実装です。
// 明細は pos_transaction_items に position 順で保存します。
type PosTransactionRepository struct {
	pool pgdb.Queryer
}

// NewPosTransactionRepository は PosTransactionRepository を生成します。
func NewPosTransactionRepository(pool pgdb.Queryer) *PosTransactionRepository {
	return &PosTransactionRepository{pool: pool}
}

// Create は取引ヘッダと明細を保存します。
func (r *PosTransactionRepository) Create(ctx context.Context, t *inventory.PosTransaction) (*inventory.PosTransaction, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO pos_transactions (id, appointment_id, employee_id, customer_name, payment_method, total_amount, transaction_time, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+posTransactionColumns,
		t.ID,
		nullableString(t.AppointmentID),
		t.EmployeeID,
		t.CustomerName,
		t.PaymentMethod,
		t.TotalAmount.String(),
		t.TransactionTime,
		t.CreatedAt,
		t.UpdatedAt,
	)

	created, err := scanPosTransaction(row)
	if err != nil {
		return nil, translatePosTransactionPgError(err)
	}

	items, err := insertPosItems(ctx, exec, created.ID, t.Items)
	if err != nil {
		return nil, err
	}
	created.Items = items
	return created, nil
}

// Update は取引ヘッダを更新し、明細を丸ごと置き換えます。
func (r *PosTransactionRepository) Update(ctx context.Context, t *inventory.PosTransaction) (*inventory.PosTransaction, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE pos_transactions
           SET customer_name = $1,
               payment_method = $2,
               total_amount = $3,
               transaction_time = $4,
               updated_at = $5
         WHERE id = $6
        RETURNING `+posTransactionColumns,
		t.CustomerName,
		t.PaymentMethod,
		t.TotalAmount.String(),
		t.TransactionTime,
		t.UpdatedAt,
		t.ID,
	)

	updated, err := scanPosTransaction(row)
	if err != nil {
		return nil, translatePosTransactionPgError(err)
	}

	if _, err := exec.Exec(ctx, `DELETE FROM pos_transaction_items WHERE transaction_id = $1`, updated.ID); err != nil {
		return nil, err
	}
	items, err := insertPosItems(ctx, exec, updated.ID, t.Items)
	if err != nil {
		return nil, err
	}
	updated.Items = items
	return updated, nil
}

// Delete は取引を削除します。明細は外部キーの ON DELETE CASCADE で削除されます。
func (r *PosTransactionRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM pos_transactions WHERE id = $1`, id)
	if err != nil {
		return translatePosTransactionPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrTransactionNotFound
	}
	return nil
}

// FindByID は明細を含む取引を取得します。
func (r *PosTransactionRepository) FindByID(ctx context.Context, id string) (*inventory.PosTransaction, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+posTransactionColumns+`
          FROM pos_transactions
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanPosTransaction(row)
	if err != nil {
		return nil, translatePosTransactionPgError(err)
	}

	items, err := loadPosItems(ctx, exec, []string{found.ID})
	if err != nil {
		return nil, err
	}
	found.Items = items[found.ID]
	return found, nil
}

// FindBetween は transaction_time が期間内(両端含む)の取引を時刻順に返します。
func (r *PosTransactionRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*inventory.PosTransaction, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+posTransactionColumns+`
          FROM pos_transactions
         WHERE transaction_time BETWEEN $1 AND $2
         ORDER BY transaction_time, id
    `, from, to)
	if err != nil {
		return nil, err
	}

	transactions := make([]*inventory.PosTransaction, 0)
	ids := make([]string, 0)
	for rows.Next() {
		t, err := scanPosTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		transactions = append(transactions, t)
		ids = append(ids, t.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return transactions, nil
	}

	items, err := loadPosItems(ctx, exec, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range transactions {
		t.Items = items[t.ID]
	}
	return transactions, nil
}

func insertPosItems(ctx context.Context, exec pgdb.Queryer, transactionID string, items []inventory.PosTransactionItem) ([]inventory.PosTransactionItem, error) {
	saved := make([]inventory.PosTransactionItem, 0, len(items))
	for i, item := range items {
		if _, err := exec.Exec(ctx, `
            INSERT INTO pos_transaction_items (id, transaction_id, position, kind, product_id, service_id, quantity, price)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        `,
			item.ID,
			transactionID,
			i,
			string(item.Kind),
			nullableString(item.ProductID),
			nullableString(item.ServiceID),
			item.Quantity,
			item.Price.String(),
		); err != nil {
			return nil, translatePosTransactionPgError(err)
		}
		saved = append(saved, item)
	}
	return saved, nil
}

func loadPosItems(ctx context.Context, exec pgdb.Queryer, transactionIDs []string) (map[string][]inventory.PosTransactionItem, error) {
	rows, err := exec.Query(ctx, `
        SELECT transaction_id, id, kind, product_id, service_id, quantity, price
          FROM pos_transaction_items
         WHERE transaction_id = ANY($1)
         ORDER BY transaction_id, position
    `, transactionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string][]inventory.PosTransactionItem, len(transactionIDs))
	for rows.Next() {
		var (
			transactionID string
			item          inventory.PosTransactionItem
			kind          string
			productID     sql.NullString
			serviceID     sql.NullString
		)
		if err := rows.Scan(&transactionID, &item.ID, &kind, &productID, &serviceID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		item.Kind = inventory.ItemKind(kind)
		item.ProductID = productID.String
		item.ServiceID = serviceID.String
		items[transactionID] = append(items[transactionID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanPosTransaction(row pgx.Row) (*inventory.PosTransaction, error) {
	var (
		t             inventory.PosTransaction
		appointmentID sql.NullString
	)
	if err := row.Scan(
		&t.ID,
		&appointmentID,
		&t.EmployeeID,
		&t.CustomerName,
		&t.PaymentMethod,
		&t.TotalAmount,
		&t.TransactionTime,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrTransactionNotFound
		}
		return nil, err
	}
	t.AppointmentID = appointmentID.String
	return &t, nil
}

func translatePosTransactionPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.ErrTransactionNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case invalidTextCode:
			return inventory.ErrTransactionNotFound
		case foreignKeyViolationCode:
			switch pgErr.ConstraintName {
			case "pos_transactions_employee_id_fkey":
				return &inventory.ReferenceNotFoundError{Kind: inventory.ReferenceEmployee}
			case "pos_transactions_appointment_id_fkey":
				return &inventory.ReferenceNotFoundError{Kind: inventory.ReferenceAppointment}
			case "pos_transaction_items_product_id_fkey":
				return &inventory.ReferenceNotFoundError{Kind: inventory.ReferenceProduct}
			case "pos_transaction_items_service_id_fkey":
				return &inventory.ReferenceNotFoundError{Kind: inventory.ReferenceService}
			}
		case checkViolationCode:
			return inventory.ErrInvalidTransaction
		}
	}
	return err
}
