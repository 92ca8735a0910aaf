// Package cart maintains the per-user mapping of pending purchase
// intentions and computes checkout totals.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/wood_market/internal/apperr"
	"github.com/Skotchmaster/wood_market/internal/models"
	"github.com/Skotchmaster/wood_market/internal/store"
)

const (
	// All amounts are minor currency units.
	taxRatePercent        = 8
	flatShipping          = 1500
	freeShippingThreshold = 30000
)

type Ledger struct {
	Store store.Store
}

// Line is a cart item merged with its product detail.
type Line struct {
	models.CartItem
	Product models.Product `json:"product"`
}

type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// AddItem checks quantity against current stock (not cart-adjusted stock)
// and merges into an existing line for the same product instead of
// replacing it.
func (l *Ledger) AddItem(ctx context.Context, userID, productID uint, quantity int) (*Line, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", apperr.ErrInvalidInput)
	}

	p, err := l.Store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.StockQuantity < quantity {
		return nil, &apperr.InsufficientStockError{ProductID: productID, Available: p.StockQuantity}
	}

	existing, err := l.Store.GetCartItemByProduct(ctx, userID, productID)
	switch {
	case err == nil:
		existing.Quantity += quantity
		if err := l.Store.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity); err != nil {
			return nil, err
		}
		return &Line{CartItem: *existing, Product: *p}, nil
	case errors.Is(err, apperr.ErrNotFound):
		item := models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
		if err := l.Store.CreateCartItem(ctx, &item); err != nil {
			return nil, err
		}
		return &Line{CartItem: item, Product: *p}, nil
	default:
		return nil, err
	}
}

// SetQuantity replaces a line's quantity; anything <= 0 deletes the line.
// Deleting an already absent line is not an error. Ownership of itemID must
// be verified by the caller, the ledger is not identity-aware.
func (l *Ledger) SetQuantity(ctx context.Context, itemID uint, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, l.Store.DeleteCartItem(ctx, itemID)
	}

	item, err := l.Store.GetCartItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	p, err := l.Store.GetProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if p.StockQuantity < quantity {
		return nil, &apperr.InsufficientStockError{ProductID: p.ID, Available: p.StockQuantity}
	}

	if err := l.Store.UpdateCartItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return &Line{CartItem: *item, Product: *p}, nil
}

func (l *Ledger) RemoveItem(ctx context.Context, itemID uint) error {
	return l.Store.DeleteCartItem(ctx, itemID)
}

// Clear is idempotent on an already empty cart.
func (l *Ledger) Clear(ctx context.Context, userID uint) error {
	return l.Store.ClearCart(ctx, userID)
}

// List returns the cart lines with product detail.
func (l *Ledger) List(ctx context.Context, userID uint) ([]Line, error) {
	items, err := l.Store.ListCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		p, err := l.Store.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, Line{CartItem: it, Product: *p})
	}
	return lines, nil
}

// ComputeTotals is pure and reproducible bit-for-bit from its inputs.
// Tax is 8% of the subtotal with the fractional cent rounded half-up;
// shipping is free from 30000 up, otherwise a flat 1500.
func ComputeTotals(lines []Line) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.Product.Price * int64(l.Quantity)
	}
	tax := (subtotal*taxRatePercent + 50) / 100
	var shipping int64
	if subtotal < freeShippingThreshold {
		shipping = flatShipping
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}
