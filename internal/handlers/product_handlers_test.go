package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/wood_market/internal/models"
)

func TestGetCategoriesHandler(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SeedCategories(context.Background()))

	c, rec := env.request(t, http.MethodGet, "/api/v1/categories", nil, 0)
	require.NoError(t, env.products.GetCategories(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Marine Plywood")
}

func TestGetProductsHandler(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		env.createProduct(t, 99, 1000, 1)
	}

	c, rec := env.request(t, http.MethodGet, "/api/v1/products?page=2&size=10", nil, 0)
	require.NoError(t, env.products.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Len(t, body["data"], 2)
	meta := body["meta"].(map[string]any)
	require.EqualValues(t, 12, meta["total"])
	require.EqualValues(t, 2, meta["total_pages"])
	require.Equal(t, true, meta["has_prev"])
	require.Equal(t, false, meta["has_next"])
}

func TestGetProductHandler(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProduct(t, 99, 1000, 1)

	c, rec := env.request(t, http.MethodGet, "/api/v1/products/:id", nil, 0)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(p.ID)))
	require.NoError(t, env.products.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, _ = env.request(t, http.MethodGet, "/api/v1/products/:id", nil, 0)
	c.SetParamNames("id")
	c.SetParamValues("404404")
	requireHTTPError(t, env.products.GetProduct(c), http.StatusNotFound)
}

func TestCreateProductHandler(t *testing.T) {
	env := newTestEnv(t)
	supplier := env.createUser(t, "mill", "mill@example.com", models.RoleSupplier)

	c, rec := env.request(t, http.MethodPost, "/api/v1/supplier/products", map[string]any{
		"name":           "Sanded Pine 9mm",
		"description":    "interior grade",
		"price":          1500,
		"stock_quantity": 40,
		"category_id":    1,
	}, supplier.ID)
	require.NoError(t, env.products.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.EqualValues(t, supplier.ID, body["supplier_id"])
	require.EqualValues(t, 1500, body["price"])

	// Missing required fields.
	c, _ = env.request(t, http.MethodPost, "/api/v1/supplier/products", map[string]any{
		"name": "No Price Board",
	}, supplier.ID)
	requireHTTPError(t, env.products.CreateProduct(c), http.StatusBadRequest)
}

func TestPatchProductHandler(t *testing.T) {
	env := newTestEnv(t)
	supplier := env.createUser(t, "mill", "mill@example.com", models.RoleSupplier)
	rival := env.createUser(t, "rival", "rival@example.com", models.RoleSupplier)
	p := env.createProduct(t, supplier.ID, 1000, 5)

	c, rec := env.request(t, http.MethodPatch, "/api/v1/supplier/products/:id", map[string]any{
		"price":          1250,
		"stock_quantity": 8,
	}, supplier.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(p.ID)))
	require.NoError(t, env.products.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.EqualValues(t, 1250, body["price"])
	require.EqualValues(t, 8, body["stock_quantity"])
	// Untouched fields survive a partial update.
	require.Equal(t, p.Name, body["name"])

	// Another supplier cannot manage it.
	c, _ = env.request(t, http.MethodPatch, "/api/v1/supplier/products/:id", map[string]any{
		"price": 1,
	}, rival.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(p.ID)))
	requireHTTPError(t, env.products.PatchProduct(c), http.StatusForbidden)
}

func TestDeleteProductHandler(t *testing.T) {
	env := newTestEnv(t)
	supplier := env.createUser(t, "mill", "mill@example.com", models.RoleSupplier)
	rival := env.createUser(t, "rival", "rival@example.com", models.RoleSupplier)
	p := env.createProduct(t, supplier.ID, 1000, 5)

	c, _ := env.request(t, http.MethodDelete, "/api/v1/supplier/products/:id", nil, rival.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(p.ID)))
	requireHTTPError(t, env.products.DeleteProduct(c), http.StatusForbidden)

	c, rec := env.request(t, http.MethodDelete, "/api/v1/supplier/products/:id", nil, supplier.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(p.ID)))
	require.NoError(t, env.products.DeleteProduct(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := env.store.GetProduct(context.Background(), p.ID)
	require.Error(t, err)
}

func TestSupplierProductsHandler(t *testing.T) {
	env := newTestEnv(t)
	supplier := env.createUser(t, "mill", "mill@example.com", models.RoleSupplier)
	env.createProduct(t, supplier.ID, 1000, 5)
	env.createProduct(t, supplier.ID, 2000, 5)
	env.createProduct(t, supplier.ID+1, 3000, 5)

	c, rec := env.request(t, http.MethodGet, "/api/v1/products/supplier", nil, supplier.ID)
	require.NoError(t, env.products.SupplierProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
}
