package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

var validate = validator.New()

// Dependencies は Service が利用するリポジトリ群です。
type Dependencies struct {
	Products     ProductRepository
	Services     ServiceRepository
	Transactions TransactionRepository
	Employees    ExistenceChecker
	Appointments ExistenceChecker
}

// Service は POS 取引と在庫の整合を保ちます。
// 在庫の確認・減算・取引の保存は 1 トランザクションで行い、途中で失敗した場合は何も反映しません。
type Service struct {
	deps   Dependencies
	clock  Clock
	tx     TransactionManager
	logger *slog.Logger
	locks  *keyedLocker
}

// UseCase は POS ユースケースの公開インターフェースです。
type UseCase interface {
	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*PosTransaction, error)
	UpdateTransaction(ctx context.Context, in UpdateTransactionInput) (*PosTransaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	GetTransaction(ctx context.Context, id string) (*PosTransaction, error)
	ListTransactions(ctx context.Context, from, to time.Time) ([]*PosTransaction, error)
	AdjustStock(ctx context.Context, productID string, delta int) (*Product, error)
}

// NewService は Service を生成します。
func NewService(deps Dependencies, clock Clock, tx TransactionManager, logger *slog.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, clock: clock, tx: tx, logger: logger, locks: newKeyedLocker()}
}

// ProductLine は商品明細の入力です。Price が nil の場合は商品の登録価格を使います。
type ProductLine struct {
	ProductID string `validate:"required"`
	Quantity  int    `validate:"gt=0"`
	Price     *decimal.Decimal
}

// ServiceLine は施術明細の入力です。Price が nil の場合はメニューの登録価格を使います。
type ServiceLine struct {
	ServiceID string `validate:"required"`
	Quantity  int    `validate:"gt=0"`
	Price     *decimal.Decimal
}

// Lines は取引明細の入力です。
type Lines struct {
	Products []ProductLine `validate:"dive"`
	Services []ServiceLine `validate:"dive"`
}

func (l Lines) empty() bool {
	return len(l.Products) == 0 && len(l.Services) == 0
}

// CreateTransactionInput は POS 取引作成の入力です。
// TotalAmount が nil の場合は明細から計算し、TransactionTime がゼロ値の場合は現在時刻を使います。
type CreateTransactionInput struct {
	AppointmentID   string
	EmployeeID      string `validate:"required"`
	CustomerName    string `validate:"max=255"`
	PaymentMethod   string `validate:"required,max=32"`
	Lines           Lines
	TotalAmount     *decimal.Decimal
	TransactionTime time.Time
}

// UpdateTransactionInput は POS 取引更新の入力です。nil のフィールドは変更しません。
// Lines を指定した場合は明細を置き換え、在庫を差分で調整します。
// TotalAmount を省略した場合は更新後の明細から再計算します。
type UpdateTransactionInput struct {
	ID              string `validate:"required"`
	CustomerName    *string
	PaymentMethod   *string
	Lines           *Lines
	TotalAmount     *decimal.Decimal
	TransactionTime *time.Time
}

// CreateTransaction は在庫を確認・減算して POS 取引を保存します。
func (s *Service) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*PosTransaction, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Lines.empty() {
		return nil, ErrEmptyTransaction
	}
	if err := checkPrices(in.Lines, in.TotalAmount); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	txn := &PosTransaction{
		ID:              uuid.NewString(),
		AppointmentID:   strings.TrimSpace(in.AppointmentID),
		EmployeeID:      strings.TrimSpace(in.EmployeeID),
		CustomerName:    strings.TrimSpace(in.CustomerName),
		PaymentMethod:   normalizePaymentMethod(in.PaymentMethod),
		TransactionTime: in.TransactionTime,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if txn.TransactionTime.IsZero() {
		txn.TransactionTime = now
	}

	var created *PosTransaction
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.checkHeaderReferences(txCtx, txn.EmployeeID, txn.AppointmentID); err != nil {
			return err
		}

		items, err := s.resolveLines(txCtx, in.Lines)
		if err != nil {
			return err
		}

		deltas := make(map[string]int)
		for productID, quantity := range productQuantities(items) {
			deltas[productID] = -quantity
		}

		unlock := s.locks.lock(keys(deltas))
		defer unlock()

		if _, err := s.applyStock(txCtx, deltas, now); err != nil {
			return err
		}

		txn.Items = items
		txn.TotalAmount = totalOrComputed(in.TotalAmount, items)

		result, err := s.deps.Transactions.Create(txCtx, txn)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		s.logRejected(ctx, "create", txn.ID, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "pos transaction created",
		"transaction_id", created.ID,
		"employee_id", created.EmployeeID,
		"items", len(created.Items),
		"total_amount", created.TotalAmount.StringFixed(2),
	)
	return created, nil
}

// UpdateTransaction は既存の POS 取引を更新します。
func (s *Service) UpdateTransaction(ctx context.Context, in UpdateTransactionInput) (*PosTransaction, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Lines != nil {
		if in.Lines.empty() {
			return nil, ErrEmptyTransaction
		}
		if err := checkPrices(*in.Lines, in.TotalAmount); err != nil {
			return nil, err
		}
	} else if err := checkPrices(Lines{}, in.TotalAmount); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	var updated *PosTransaction
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.deps.Transactions.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if in.CustomerName != nil {
			existing.CustomerName = strings.TrimSpace(*in.CustomerName)
		}
		if in.PaymentMethod != nil {
			method := normalizePaymentMethod(*in.PaymentMethod)
			if method == "" {
				return fmt.Errorf("%w: payment method is required", ErrInvalidTransaction)
			}
			existing.PaymentMethod = method
		}
		if in.TransactionTime != nil && !in.TransactionTime.IsZero() {
			existing.TransactionTime = *in.TransactionTime
		}

		if in.Lines != nil {
			items, err := s.resolveLines(txCtx, *in.Lines)
			if err != nil {
				return err
			}

			deltas := make(map[string]int)
			for productID, quantity := range productQuantities(existing.Items) {
				deltas[productID] += quantity
			}
			for productID, quantity := range productQuantities(items) {
				deltas[productID] -= quantity
			}

			unlock := s.locks.lock(keys(deltas))
			defer unlock()

			if _, err := s.applyStock(txCtx, deltas, now); err != nil {
				return err
			}
			existing.Items = items
		}

		existing.TotalAmount = totalOrComputed(in.TotalAmount, existing.Items)
		existing.UpdatedAt = now

		result, err := s.deps.Transactions.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		s.logRejected(ctx, "update", in.ID, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "pos transaction updated",
		"transaction_id", updated.ID,
		"total_amount", updated.TotalAmount.StringFixed(2),
	)
	return updated, nil
}

// DeleteTransaction は POS 取引を削除し、商品明細の数量を在庫に戻します。
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	now := s.clock.Now()
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.deps.Transactions.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		deltas := productQuantities(existing.Items)
		unlock := s.locks.lock(keys(deltas))
		defer unlock()

		if _, err := s.applyStock(txCtx, deltas, now); err != nil {
			return err
		}
		return s.deps.Transactions.Delete(txCtx, id)
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "pos transaction deleted", "transaction_id", id)
	return nil
}

// GetTransaction は POS 取引を取得します。
func (s *Service) GetTransaction(ctx context.Context, id string) (*PosTransaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *PosTransaction
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.deps.Transactions.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// ListTransactions は取引日時が [from, to] に含まれる POS 取引を返します。
func (s *Service) ListTransactions(ctx context.Context, from, to time.Time) ([]*PosTransaction, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	var result []*PosTransaction
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.deps.Transactions.FindBetween(txCtx, from, to)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	if result == nil {
		result = []*PosTransaction{}
	}
	return result, nil
}

// AdjustStock は商品在庫を delta だけ増減します。結果が負になる場合は InsufficientStockError を返します。
func (s *Service) AdjustStock(ctx context.Context, productID string, delta int) (*Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	now := s.clock.Now()
	var adjusted *Product
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		unlock := s.locks.lock([]string{productID})
		defer unlock()

		products, err := s.applyStock(txCtx, map[string]int{productID: delta}, now)
		if err != nil {
			var ref *ReferenceNotFoundError
			if errors.As(err, &ref) {
				return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
			}
			return err
		}
		adjusted = products[productID]
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product stock adjusted",
		"product_id", productID,
		"delta", delta,
		"stock", adjusted.StockQuantity,
	)
	return adjusted, nil
}

func (s *Service) checkHeaderReferences(ctx context.Context, employeeID, appointmentID string) error {
	if err := s.requireExists(ctx, s.deps.Employees, ReferenceEmployee, employeeID); err != nil {
		return err
	}
	if appointmentID == "" {
		return nil
	}
	return s.requireExists(ctx, s.deps.Appointments, ReferenceAppointment, appointmentID)
}

func (s *Service) requireExists(ctx context.Context, checker ExistenceChecker, kind ReferenceKind, id string) error {
	if checker == nil {
		return nil
	}
	exists, err := checker.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return &ReferenceNotFoundError{Kind: kind, ID: id}
	}
	return nil
}

// resolveLines は明細の参照先を解決し、価格未指定の明細に登録価格を補います。
// 商品の存在確認は applyStock の行ロック取得時に行います。
func (s *Service) resolveLines(ctx context.Context, lines Lines) ([]PosTransactionItem, error) {
	serviceIDs := make([]string, 0, len(lines.Services))
	for _, line := range lines.Services {
		serviceIDs = append(serviceIDs, strings.TrimSpace(line.ServiceID))
	}

	var services map[string]*SalonService
	if len(serviceIDs) > 0 {
		found, err := s.deps.Services.FindByIDs(ctx, uniqueSorted(serviceIDs))
		if err != nil {
			return nil, err
		}
		services = found
	}

	items := make([]PosTransactionItem, 0, len(lines.Services)+len(lines.Products))
	for i, line := range lines.Services {
		svc, ok := services[serviceIDs[i]]
		if !ok {
			return nil, &ReferenceNotFoundError{Kind: ReferenceService, ID: serviceIDs[i]}
		}
		price := svc.Price
		if line.Price != nil {
			price = *line.Price
		}
		items = append(items, PosTransactionItem{
			ID:        uuid.NewString(),
			Kind:      ItemKindService,
			ServiceID: svc.ID,
			Quantity:  line.Quantity,
			Price:     price,
		})
	}

	var catalogue map[string]*Product
	productIDs := make([]string, 0, len(lines.Products))
	needsCatalogue := false
	for _, line := range lines.Products {
		productIDs = append(productIDs, strings.TrimSpace(line.ProductID))
		if line.Price == nil {
			needsCatalogue = true
		}
	}
	if needsCatalogue {
		catalogue = make(map[string]*Product)
		for _, id := range uniqueSorted(productIDs) {
			product, err := s.deps.Products.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, ErrProductNotFound) {
					return nil, &ReferenceNotFoundError{Kind: ReferenceProduct, ID: id}
				}
				return nil, err
			}
			catalogue[id] = product
		}
	}

	for i, line := range lines.Products {
		var price decimal.Decimal
		if line.Price != nil {
			price = *line.Price
		} else {
			price = catalogue[productIDs[i]].Price
		}
		items = append(items, PosTransactionItem{
			ID:        uuid.NewString(),
			Kind:      ItemKindProduct,
			ProductID: productIDs[i],
			Quantity:  line.Quantity,
			Price:     price,
		})
	}

	return items, nil
}

// applyStock は商品ごとの在庫増減を全件検証してから反映します。
// 呼び出し側は deltas のキーに対する keyedLocker のロックを保持している必要があります。
func (s *Service) applyStock(ctx context.Context, deltas map[string]int, now time.Time) (map[string]*Product, error) {
	ids := keys(deltas)
	if len(ids) == 0 {
		return map[string]*Product{}, nil
	}

	products, err := s.deps.Products.LockForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, &ReferenceNotFoundError{Kind: ReferenceProduct, ID: id}
		}
	}
	for _, id := range ids {
		product := products[id]
		delta := deltas[id]
		if delta < 0 && !product.Active {
			return nil, fmt.Errorf("%w: %s", ErrProductInactive, id)
		}
		if product.StockQuantity+delta < 0 {
			return nil, &InsufficientStockError{ProductID: id, Requested: -delta, Available: product.StockQuantity}
		}
	}

	for _, id := range ids {
		delta := deltas[id]
		if delta == 0 {
			continue
		}
		product := products[id]
		product.StockQuantity += delta
		product.UpdatedAt = now
		if err := s.deps.Products.UpdateStock(ctx, id, product.StockQuantity, now); err != nil {
			return nil, err
		}
	}

	return products, nil
}

func (s *Service) logRejected(ctx context.Context, op, id string, err error) {
	var stock *InsufficientStockError
	var ref *ReferenceNotFoundError
	switch {
	case errors.As(err, &stock):
		s.logger.WarnContext(ctx, "pos transaction rejected: insufficient stock",
			"op", op,
			"transaction_id", id,
			"product_id", stock.ProductID,
			"requested", stock.Requested,
			"available", stock.Available,
		)
	case errors.As(err, &ref):
		s.logger.WarnContext(ctx, "pos transaction rejected: unknown reference",
			"op", op,
			"transaction_id", id,
			"kind", ref.Kind,
			"id", ref.ID,
		)
	}
}

func validateInput(in any) error {
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidTransaction, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}

func checkPrices(lines Lines, total *decimal.Decimal) error {
	for _, line := range lines.Products {
		if line.Price != nil && line.Price.IsNegative() {
			return fmt.Errorf("%w: product %s", ErrInvalidPrice, line.ProductID)
		}
	}
	for _, line := range lines.Services {
		if line.Price != nil && line.Price.IsNegative() {
			return fmt.Errorf("%w: service %s", ErrInvalidPrice, line.ServiceID)
		}
	}
	if total != nil && total.IsNegative() {
		return fmt.Errorf("%w: total amount", ErrInvalidPrice)
	}
	return nil
}

func totalOrComputed(supplied *decimal.Decimal, items []PosTransactionItem) decimal.Decimal {
	if supplied != nil {
		return supplied.Round(2)
	}
	return ItemsTotal(items)
}

func normalizePaymentMethod(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return uniqueSorted(out)
}
