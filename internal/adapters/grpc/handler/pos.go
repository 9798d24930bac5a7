package handler

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
)

// CreateTransaction は POS 取引を作成し、商品在庫を減算します。
func (h *SalonGrpcHandler) CreateTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}

	var in inventory.CreateTransactionInput
	if in.AppointmentID, err = f.str("appointment_id"); err != nil {
		return nil, err
	}
	if in.EmployeeID, err = f.str("employee_id"); err != nil {
		return nil, err
	}
	if in.CustomerName, err = f.str("customer_name"); err != nil {
		return nil, err
	}
	if in.PaymentMethod, err = f.str("payment_method"); err != nil {
		return nil, err
	}
	if in.TotalAmount, err = f.optDecimal("total_amount"); err != nil {
		return nil, err
	}
	transactionTime, err := f.optTime("transaction_time")
	if err != nil {
		return nil, err
	}
	if transactionTime != nil {
		in.TransactionTime = *transactionTime
	}
	lines, err := linesOf(f)
	if err != nil {
		return nil, err
	}
	in.Lines = lines

	created, err := h.inventory.CreateTransaction(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"transaction": transactionPayload(created)})
}

// UpdateTransaction は POS 取引を更新します。products/services のいずれかを指定すると明細を置き換えます。
func (h *SalonGrpcHandler) UpdateTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}

	var in inventory.UpdateTransactionInput
	if in.ID, err = f.str("id"); err != nil {
		return nil, err
	}
	if in.CustomerName, err = f.optStr("customer_name"); err != nil {
		return nil, err
	}
	if in.PaymentMethod, err = f.optStr("payment_method"); err != nil {
		return nil, err
	}
	if in.TotalAmount, err = f.optDecimal("total_amount"); err != nil {
		return nil, err
	}
	if in.TransactionTime, err = f.optTime("transaction_time"); err != nil {
		return nil, err
	}
	if f.present("products") || f.present("services") {
		lines, err := linesOf(f)
		if err != nil {
			return nil, err
		}
		in.Lines = &lines
	}

	updated, err := h.inventory.UpdateTransaction(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"transaction": transactionPayload(updated)})
}

// DeleteTransaction は POS 取引を削除し、商品在庫を戻します。
func (h *SalonGrpcHandler) DeleteTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	id, err := f.str("id")
	if err != nil {
		return nil, err
	}

	if err := h.inventory.DeleteTransaction(ctx, id); err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{})
}

// GetTransaction は POS 取引を取得します。
func (h *SalonGrpcHandler) GetTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	id, err := f.str("id")
	if err != nil {
		return nil, err
	}

	found, err := h.inventory.GetTransaction(ctx, id)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"transaction": transactionPayload(found)})
}

// ListTransactions は from/to (RFC 3339) の範囲の取引を返します。
func (h *SalonGrpcHandler) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	from, err := f.optTime("from")
	if err != nil {
		return nil, err
	}
	to, err := f.optTime("to")
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, toStatusError(inventory.ErrInvalidRange)
	}

	found, err := h.inventory.ListTransactions(ctx, *from, *to)
	if err != nil {
		return nil, toStatusError(err)
	}
	payload := make([]any, 0, len(found))
	for _, t := range found {
		payload = append(payload, transactionPayload(t))
	}
	return newResponse(map[string]any{"transactions": payload})
}

// AdjustStock は商品在庫を delta だけ増減します。
func (h *SalonGrpcHandler) AdjustStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	productID, err := f.str("product_id")
	if err != nil {
		return nil, err
	}
	delta, ok, err := f.integer("delta")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidField("delta", fmt.Errorf("is required"))
	}

	product, err := h.inventory.AdjustStock(ctx, productID, delta)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newResponse(map[string]any{"product": map[string]any{
		"id":             product.ID,
		"name":           product.Name,
		"price":          product.Price.StringFixed(2),
		"stock_quantity": product.StockQuantity,
		"active":         product.Active,
	}})
}

func linesOf(f fields) (inventory.Lines, error) {
	var lines inventory.Lines

	products, err := f.list("products")
	if err != nil {
		return lines, err
	}
	for i, v := range products {
		item, err := objectAt("products", i, v)
		if err != nil {
			return lines, err
		}
		line := inventory.ProductLine{}
		if line.ProductID, err = item.str("product_id"); err != nil {
			return lines, err
		}
		if line.Quantity, _, err = item.integer("quantity"); err != nil {
			return lines, err
		}
		if line.Price, err = item.optDecimal("price"); err != nil {
			return lines, err
		}
		lines.Products = append(lines.Products, line)
	}

	services, err := f.list("services")
	if err != nil {
		return lines, err
	}
	for i, v := range services {
		item, err := objectAt("services", i, v)
		if err != nil {
			return lines, err
		}
		line := inventory.ServiceLine{}
		if line.ServiceID, err = item.str("service_id"); err != nil {
			return lines, err
		}
		if line.Quantity, _, err = item.integer("quantity"); err != nil {
			return lines, err
		}
		if line.Price, err = item.optDecimal("price"); err != nil {
			return lines, err
		}
		lines.Services = append(lines.Services, line)
	}

	return lines, nil
}

func transactionPayload(t *inventory.PosTransaction) map[string]any {
	items := make([]any, 0, len(t.Items))
	for _, item := range t.Items {
		entry := map[string]any{
			"id":       item.ID,
			"kind":     string(item.Kind),
			"quantity": item.Quantity,
			"price":    item.Price.StringFixed(2),
			"subtotal": item.Subtotal().StringFixed(2),
		}
		if item.ProductID != "" {
			entry["product_id"] = item.ProductID
		}
		if item.ServiceID != "" {
			entry["service_id"] = item.ServiceID
		}
		items = append(items, entry)
	}

	return map[string]any{
		"id":               t.ID,
		"appointment_id":   t.AppointmentID,
		"employee_id":      t.EmployeeID,
		"customer_name":    t.CustomerName,
		"payment_method":   t.PaymentMethod,
		"total_amount":     t.TotalAmount.StringFixed(2),
		"transaction_time": t.TransactionTime.UTC().Format(time.RFC3339),
		"items":            items,
	}
}
