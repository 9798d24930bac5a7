package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product は在庫管理対象の商品です。StockQuantity は負になりません。
type Product struct {
	ID            string
	Type          string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	Active        bool
	UpdatedAt     time.Time
}

// SalonService は施術メニューです。在庫を持ちません。
type SalonService struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// ItemKind は明細が商品か施術かを表します。
type ItemKind string

const (
	ItemKindProduct ItemKind = "PRODUCT"
	ItemKindService ItemKind = "SERVICE"
)

// PosTransactionItem は POS 取引の明細です。ProductID と ServiceID は Kind に応じてどちらか一方が設定されます。
type PosTransactionItem struct {
	ID        string
	Kind      ItemKind
	ProductID string
	ServiceID string
	Quantity  int
	Price     decimal.Decimal
}

// Subtotal は単価 × 数量を返します。
func (i PosTransactionItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PosTransaction は POS 取引です。AppointmentID は任意です。
type PosTransaction struct {
	ID              string
	AppointmentID   string
	EmployeeID      string
	CustomerName    string
	PaymentMethod   string
	Items           []PosTransactionItem
	TotalAmount     decimal.Decimal
	TransactionTime time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ItemsTotal は明細の合計金額を小数点以下 2 桁に丸めて返します。
func ItemsTotal(items []PosTransactionItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// productQuantities は商品ごとの数量合計を返します。
func productQuantities(items []PosTransactionItem) map[string]int {
	quantities := make(map[string]int)
	for _, item := range items {
		if item.Kind == ItemKindProduct {
			quantities[item.ProductID] += item.Quantity
		}
	}
	return quantities
}
