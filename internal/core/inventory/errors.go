package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID           = errors.New("inventory: invalid id")
	ErrInvalidTransaction  = errors.New("inventory: invalid transaction")
	ErrInvalidPrice        = errors.New("inventory: price must not be negative")
	ErrInvalidRange        = errors.New("inventory: invalid time range")
	ErrEmptyTransaction    = errors.New("inventory: transaction has no line items")
	ErrTransactionNotFound = errors.New("inventory: transaction not found")
	ErrProductNotFound     = errors.New("inventory: product not found")
	ErrProductInactive     = errors.New("inventory: product is not active")
	ErrInsufficientStock   = errors.New("inventory: insufficient stock")
	ErrReferenceNotFound   = errors.New("inventory: referenced record not found")
)

// InsufficientStockError は在庫不足で取引全体を拒否したことを表します。
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is は errors.Is(err, ErrInsufficientStock) を満たします。
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ReferenceKind は参照先の種別です。
type ReferenceKind string

const (
	ReferenceEmployee    ReferenceKind = "employee"
	ReferenceService     ReferenceKind = "service"
	ReferenceProduct     ReferenceKind = "product"
	ReferenceAppointment ReferenceKind = "appointment"
)

// ReferenceNotFoundError は明細や取引が参照するレコードが存在しないことを表します。
type ReferenceNotFoundError struct {
	Kind ReferenceKind
	ID   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("inventory: %s %s not found", e.Kind, e.ID)
}

// Is は errors.Is(err, ErrReferenceNotFound) を満たします。
func (e *ReferenceNotFoundError) Is(target error) bool {
	return target == ErrReferenceNotFound
}
