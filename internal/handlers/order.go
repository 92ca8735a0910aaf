package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/wood_market/internal/mykafka"
	"github.com/Skotchmaster/wood_market/internal/service/order"
)

type OrderHandler struct {
	Converter *order.Converter
	Producer  *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// CreateOrder converts the user's cart into an order.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	receipt, err := h.Converter.Convert(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": receipt.ID,
		"total":   receipt.TotalAmount,
	})

	return c.JSON(http.StatusCreated, receipt)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	orders, err := h.Converter.ListOrders(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	detail, err := h.Converter.GetOrder(c.Request().Context(), userID, uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateOrderStatus accepts any member of the status enum; ownership is
// still required.
func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.Converter.GetOrder(c.Request().Context(), userID, uint(id)); err != nil {
		return respondError(c, err)
	}
	if err := h.Converter.UpdateStatus(c.Request().Context(), uint(id), req.Status); err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "order_status_updated",
		"userID":  userID,
		"orderID": id,
		"status":  req.Status,
	})

	detail, err := h.Converter.GetOrder(c.Request().Context(), userID, uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}
