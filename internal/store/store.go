// Package store defines the persistence contract for the marketplace core.
// Two implementations exist: a gorm-backed one used in production and the
// handler tests, and an in-process table-of-records one for unit tests.
// The services never depend on which.
package store

import (
	"context"
	"time"

	"github.com/Skotchmaster/wood_market/internal/models"
)

// ProductFilter narrows ListProducts. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID uint
	SupplierID uint
	Featured   bool
	Offset     int
	Limit      int
}

type Store interface {
	// WithinTx runs fn against a transactional view of the store. If fn
	// returns an error every write made inside it is rolled back.
	WithinTx(ctx context.Context, fn func(Store) error) error

	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	SetResetToken(ctx context.Context, userID uint, token string, expiry time.Time) error
	// ResetPasswordByToken swaps the password hash and clears the token in a
	// single conditional update, so a token can never be used twice. Returns
	// apperr.ErrInvalidOrExpiredToken when no user holds a live token.
	ResetPasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, cat *models.Category) error

	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	// DecrementStock performs an atomic conditional decrement
	// (stock_quantity >= qty, checked and applied in one statement) and
	// returns apperr.InsufficientStockError when the condition fails, so
	// two concurrent order conversions can never oversell a product.
	DecrementStock(ctx context.Context, productID uint, qty int) error

	ListCartItems(ctx context.Context, userID uint) ([]models.CartItem, error)
	GetCartItem(ctx context.Context, id uint) (*models.CartItem, error)
	GetCartItemByProduct(ctx context.Context, userID, productID uint) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartItemQuantity(ctx context.Context, id uint, quantity int) error
	DeleteCartItem(ctx context.Context, id uint) error
	ClearCart(ctx context.Context, userID uint) error

	ListOrders(ctx context.Context, userID uint) ([]models.Order, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	UpdateOrderStatus(ctx context.Context, id uint, status string) error
	ListOrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error

	SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}
