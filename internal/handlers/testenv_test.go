package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/wood_market/internal/models"
	"github.com/Skotchmaster/wood_market/internal/mykafka"
	"github.com/Skotchmaster/wood_market/internal/service/auth"
	"github.com/Skotchmaster/wood_market/internal/service/cart"
	"github.com/Skotchmaster/wood_market/internal/service/order"
	"github.com/Skotchmaster/wood_market/internal/service/token"
	"github.com/Skotchmaster/wood_market/internal/store"
)

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Product{},
		&models.CartItem{}, &models.Order{}, &models.OrderItem{},
		&models.RefreshToken{},
	))
	return db
}

type testEnv struct {
	e     *echo.Echo
	store *store.Gorm

	auth     AuthHandler
	products ProductHandler
	carts    CartHandler
	orders   OrderHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewGorm(InitTestDB(t))
	tokens := &token.Service{
		Store:         st,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	ledger := &cart.Ledger{Store: st}
	producer := &mykafka.Producer{}

	return &testEnv{
		e:     echo.New(),
		store: st,
		auth: AuthHandler{
			Auth:     &auth.Service{Store: st},
			Tokens:   tokens,
			Store:    st,
			Producer: producer,
		},
		products: ProductHandler{Store: st, Producer: producer},
		carts:    CartHandler{Ledger: ledger, Store: st, Producer: producer},
		orders:   OrderHandler{Converter: &order.Converter{Store: st}, Producer: producer},
	}
}

// request builds an echo context with an optional JSON body. userID 0 means
// unauthenticated.
func (env *testEnv) request(t *testing.T, method, target string, body any, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if userID != 0 {
		c.Set("userID", userID)
	}
	return c, rec
}

func (env *testEnv) createUser(t *testing.T, username, email, role string) *models.User {
	t.Helper()
	user, err := env.auth.Auth.Register(context.Background(), auth.Candidate{
		Username: username,
		Email:    email,
		Password: "password1",
		FullName: "Test User",
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func (env *testEnv) createProduct(t *testing.T, supplierID uint, price int64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:          "Baltic Birch 15mm",
		Description:   "BB/BB grade",
		Price:         price,
		StockQuantity: stock,
		SupplierID:    supplierID,
		CategoryID:    1,
	}
	require.NoError(t, env.store.CreateProduct(context.Background(), p))
	return p
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, code, he.Code)
}
