// Package order turns a user's cart into a durable, priced,
// stock-adjusting order.
package order

import (
	"context"

	"github.com/Skotchmaster/wood_market/internal/apperr"
	"github.com/Skotchmaster/wood_market/internal/models"
	"github.com/Skotchmaster/wood_market/internal/store"
)

type Converter struct {
	Store store.Store
}

// Line is an order item merged with its product detail.
type Line struct {
	models.OrderItem
	Product models.Product `json:"product"`
}

type Receipt struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

type Detail struct {
	models.Order
	Items []Line `json:"items"`
}

// Convert runs the whole conversion inside one store transaction: validate
// every line against a freshly loaded product, snapshot unit prices into
// order items, decrement stock with the store's conditional decrement, then
// clear the cart. Any failure aborts the transaction, so no partial order is
// ever visible and stock is never decremented twice for the same cart.
func (s *Converter) Convert(ctx context.Context, userID uint) (*Receipt, error) {
	var receipt Receipt

	err := s.Store.WithinTx(ctx, func(tx store.Store) error {
		items, err := tx.ListCartItems(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperr.ErrEmptyCart
		}

		var total int64
		products := make(map[uint]*models.Product, len(items))
		for _, it := range items {
			p, err := tx.GetProduct(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p.StockQuantity < it.Quantity {
				return &apperr.InsufficientStockError{ProductID: p.ID, Available: p.StockQuantity}
			}
			total += p.Price * int64(it.Quantity)
			products[it.ProductID] = p
		}

		order := models.Order{
			UserID:      userID,
			Status:      models.OrderStatusPending,
			TotalAmount: total,
		}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return err
		}

		lines := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			p := products[it.ProductID]
			oi := models.OrderItem{
				OrderID:   order.ID,
				ProductID: p.ID,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
			}
			if err := tx.CreateOrderItem(ctx, &oi); err != nil {
				return err
			}
			// The conditional decrement is the authoritative stock check:
			// when a concurrent conversion won the race since validation,
			// this fails and rolls the whole order back.
			if err := tx.DecrementStock(ctx, p.ID, it.Quantity); err != nil {
				return err
			}
			lines = append(lines, oi)
		}

		if err := tx.ClearCart(ctx, userID); err != nil {
			return err
		}

		receipt = Receipt{Order: order, Items: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListOrders returns the user's orders newest first, each with its items and
// current product detail.
func (s *Converter) ListOrders(ctx context.Context, userID uint) ([]Detail, error) {
	orders, err := s.Store.ListOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Detail, 0, len(orders))
	for _, o := range orders {
		d, err := s.detail(ctx, o)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// GetOrder returns one order with items. Ownership: a different user's
// order is Forbidden, not NotFound, matching the actionable-ownership error
// contract.
func (s *Converter) GetOrder(ctx context.Context, userID, orderID uint) (*Detail, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperr.ErrForbidden
	}
	return s.detail(ctx, *o)
}

func (s *Converter) detail(ctx context.Context, o models.Order) (*Detail, error) {
	items, err := s.Store.ListOrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		line := Line{OrderItem: it}
		// Product may have been deleted since purchase; the snapshot in the
		// order item still stands on its own.
		if p, err := s.Store.GetProduct(ctx, it.ProductID); err == nil {
			line.Product = *p
		}
		lines = append(lines, line)
	}
	return &Detail{Order: o, Items: lines}, nil
}

// UpdateStatus validates enum membership only; no transition table is
// modeled for the fulfillment workflow.
func (s *Converter) UpdateStatus(ctx context.Context, orderID uint, status string) error {
	if !models.ValidOrderStatus(status) {
		return apperr.ErrInvalidInput
	}
	return s.Store.UpdateOrderStatus(ctx, orderID, status)
}
