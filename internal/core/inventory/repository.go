package inventory

import (
	"context"
	"time"
)

// ProductRepository は商品在庫の永続化の抽象です。
type ProductRepository interface {
	// LockForUpdate は ids の商品を id 昇順に行ロックして返します。存在しない id は結果に含まれません。
	LockForUpdate(ctx context.Context, ids []string) (map[string]*Product, error)
	UpdateStock(ctx context.Context, id string, stock int, updatedAt time.Time) error
	FindByID(ctx context.Context, id string) (*Product, error)
}

// ServiceRepository は施術メニューの参照の抽象です。
type ServiceRepository interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*SalonService, error)
}

// TransactionRepository は POS 取引の永続化の抽象です。Update は明細を丸ごと置き換えます。
type TransactionRepository interface {
	Create(ctx context.Context, tx *PosTransaction) (*PosTransaction, error)
	Update(ctx context.Context, tx *PosTransaction) (*PosTransaction, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*PosTransaction, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]*PosTransaction, error)
}

// ExistenceChecker は参照先の存在確認に使います。
type ExistenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}
