package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
	pgdb "github.com/IshanMadusanka13/Salon-Capta/internal/platform/db/postgres"
)

const productColumns = `id, product_type, name, price, stock_quantity, active, updated_at`

// ErrLockOutsideTransaction はトランザクション外で行ロックを要求した場合に返却されます。
var ErrLockOutsideTransaction = errors.New("postgres: row lock requires a transaction")

// ProductRepository は PostgreSQL を利用した商品在庫の実装です。
type ProductRepository struct {
	pool pgdb.Queryer
}

// NewProductRepository は ProductRepository を生成します。
func NewProductRepository(pool pgdb.Queryer) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// LockForUpdate は ids の商品行を id 昇順に SELECT ... FOR UPDATE でロックして返します。
// ロックはコミットまで保持されるため、トランザクション外では ErrLockOutsideTransaction を返します。
func (r *ProductRepository) LockForUpdate(ctx context.Context, ids []string) (map[string]*inventory.Product, error) {
	if !pgdb.InTransaction(ctx) {
		return nil, ErrLockOutsideTransaction
	}

	products := make(map[string]*inventory.Product, len(ids))
	valid := validUUIDs(ids)
	if len(valid) == 0 {
		return products, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+productColumns+`
          FROM products
         WHERE id = ANY($1)
         ORDER BY id
           FOR UPDATE
    `, valid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateStock は在庫数を書き換えます。
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, stock int, updatedAt time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE products
           SET stock_quantity = $1,
               updated_at = $2
         WHERE id = $3
    `, stock, updatedAt, id)
	if err != nil {
		if isInvalidText(err) {
			return inventory.ErrProductNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

// FindByID は ID で商品を取得します。
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*inventory.Product, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+productColumns+`
          FROM products
         WHERE id = $1
         LIMIT 1
    `, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, inventory.ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func scanProduct(row pgx.Row) (*inventory.Product, error) {
	var p inventory.Product
	if err := row.Scan(
		&p.ID,
		&p.Type,
		&p.Name,
		&p.Price,
		&p.StockQuantity,
		&p.Active,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// validUUIDs は UUID として解釈できる id だけを返します。解釈できない id は存在しない参照として扱います。
func validUUIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	return valid
}
