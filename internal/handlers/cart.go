package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/wood_market/internal/mykafka"
	"github.com/Skotchmaster/wood_market/internal/service/cart"
	"github.com/Skotchmaster/wood_market/internal/store"
)

type CartHandler struct {
	Ledger   *cart.Ledger
	Store    store.Store
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	lines, err := h.Ledger.List(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

// GetTotals previews checkout totals for the current cart.
func (h *CartHandler) GetTotals(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	lines, err := h.Ledger.List(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cart.ComputeTotals(lines))
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	line, err := h.Ledger.AddItem(c.Request().Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  line.Quantity,
	})

	return c.JSON(http.StatusCreated, line)
}

// ownItem verifies the cart item belongs to the requesting user before any
// mutation; the ledger itself is not identity-aware.
func (h *CartHandler) ownItem(c echo.Context, userID uint) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.Store.GetCartItem(c.Request().Context(), uint(id))
	if err != nil {
		return 0, respondError(c, err)
	}
	if item.UserID != userID {
		return 0, echo.NewHTTPError(http.StatusNotFound, "cart item not found or does not belong to you")
	}
	return item.ID, nil
}

func (h *CartHandler) UpdateCartItem(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	itemID, err := h.ownItem(c, userID)
	if err != nil {
		return err
	}

	line, err := h.Ledger.SetQuantity(c.Request().Context(), itemID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_updated",
		"userID":   userID,
		"itemID":   itemID,
		"quantity": req.Quantity,
	})

	if line == nil {
		return c.JSON(http.StatusOK, echo.Map{"message": "item removed from cart"})
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHandler) DeleteCartItem(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	itemID, err := h.ownItem(c, userID)
	if err != nil {
		return err
	}

	if err := h.Ledger.RemoveItem(c.Request().Context(), itemID); err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_deleted",
		"userID": userID,
		"itemID": itemID,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	if err := h.Ledger.Clear(c.Request().Context(), userID); err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})

	return c.NoContent(http.StatusNoContent)
}
