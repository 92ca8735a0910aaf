package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/wood_market/internal/apperr"
	"github.com/Skotchmaster/wood_market/internal/models"
	"github.com/Skotchmaster/wood_market/internal/mykafka"
	"github.com/Skotchmaster/wood_market/internal/store"
	"github.com/Skotchmaster/wood_market/internal/util"
)

type ProductHandler struct {
	Store    store.Store
	Producer *mykafka.Producer
}

type productRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         *int64 `json:"price"`
	ImageURL      string `json:"image_url"`
	StockQuantity *int   `json:"stock_quantity"`
	CategoryID    *uint  `json:"category_id"`
	IsFeatured    *bool  `json:"is_featured"`
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) GetCategories(c echo.Context) error {
	cats, err := h.Store.ListCategories(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := h.Store.GetProduct(c.Request().Context(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetProducts lists with optional category/supplier/featured filters and
// pagination meta.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	filter := store.ProductFilter{
		CategoryID: uint(parseIntDefault(c.QueryParam("category_id"), 0)),
		SupplierID: uint(parseIntDefault(c.QueryParam("supplier_id"), 0)),
		Featured:   c.QueryParam("featured") == "true",
		Offset:     offset,
		Limit:      limit,
	}

	items, total, err := h.Store.ListProducts(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// SupplierProducts lists the authenticated supplier's own products.
func (h *ProductHandler) SupplierProducts(c echo.Context) error {
	supplierID, err := GetID(c)
	if err != nil {
		return err
	}

	items, _, err := h.Store.ListProducts(c.Request().Context(), store.ProductFilter{SupplierID: supplierID})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	supplierID, err := GetID(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" || req.Price == nil || *req.Price < 0 ||
		req.StockQuantity == nil || *req.StockQuantity < 0 || req.CategoryID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "name, price, stock_quantity and category_id are required")
	}

	prod := models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		ImageURL:      req.ImageURL,
		StockQuantity: *req.StockQuantity,
		SupplierID:    supplierID,
		CategoryID:    *req.CategoryID,
	}
	if req.IsFeatured != nil {
		prod.IsFeatured = *req.IsFeatured
	}

	if err := h.Store.CreateProduct(c.Request().Context(), &prod); err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

// ownProduct loads the product and verifies it belongs to the requesting
// supplier.
func (h *ProductHandler) ownProduct(c echo.Context) (*models.Product, error) {
	supplierID, err := GetID(c)
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.Store.GetProduct(c.Request().Context(), uint(id))
	if err != nil {
		return nil, respondError(c, err)
	}
	if p.SupplierID != supplierID {
		return nil, respondError(c, fmt.Errorf("%w: you can only manage your own products", apperr.ErrForbidden))
	}
	return p, nil
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	p, err := h.ownProduct(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.ImageURL != "" {
		p.ImageURL = req.ImageURL
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "price cannot be negative")
		}
		p.Price = *req.Price
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "stock quantity cannot be negative")
		}
		p.StockQuantity = *req.StockQuantity
	}
	if req.CategoryID != nil {
		p.CategoryID = *req.CategoryID
	}
	if req.IsFeatured != nil {
		p.IsFeatured = *req.IsFeatured
	}

	if err := h.Store.UpdateProduct(c.Request().Context(), p); err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": p.ID,
		"name":      p.Name,
	})

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	p, err := h.ownProduct(c)
	if err != nil {
		return err
	}

	if err := h.Store.DeleteProduct(c.Request().Context(), p.ID); err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": p.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
