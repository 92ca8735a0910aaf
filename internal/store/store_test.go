package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/wood_market/internal/apperr"
	"github.com/Skotchmaster/wood_market/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One in-memory sqlite database per test, shared by every query.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Product{},
		&models.CartItem{}, &models.Order{}, &models.OrderItem{},
		&models.RefreshToken{},
	))
	return db
}

// Both implementations must agree on the Store contract, so every test runs
// against each of them.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("gorm", func(t *testing.T) {
		fn(t, NewGorm(initTestDB(t)))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
}

func TestDecrementStock(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := models.Product{Name: "OSB Board", Price: 1200, StockQuantity: 5, SupplierID: 1, CategoryID: 1}
		require.NoError(t, s.CreateProduct(ctx, &p))

		require.NoError(t, s.DecrementStock(ctx, p.ID, 3))
		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, 2, got.StockQuantity)

		// Asking for more than remains fails and changes nothing.
		err = s.DecrementStock(ctx, p.ID, 3)
		var stock *apperr.InsufficientStockError
		require.ErrorAs(t, err, &stock)
		require.Equal(t, p.ID, stock.ProductID)
		require.Equal(t, 2, stock.Available)

		got, err = s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, 2, got.StockQuantity)

		// Down to exactly zero is allowed.
		require.NoError(t, s.DecrementStock(ctx, p.ID, 2))
		got, err = s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, 0, got.StockQuantity)
	})
}

func TestResetPasswordByToken(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		u := models.User{Username: "plank", Email: "plank@example.com", PasswordHash: "old", FullName: "Plank", Role: models.RoleCustomer}
		require.NoError(t, s.CreateUser(ctx, &u))
		require.NoError(t, s.SetResetToken(ctx, u.ID, "tok-1", time.Now().Add(time.Hour)))

		require.NoError(t, s.ResetPasswordByToken(ctx, "tok-1", "new", time.Now()))
		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "new", got.PasswordHash)
		require.Nil(t, got.ResetToken)
		require.Nil(t, got.ResetTokenExpiry)

		// Consumed tokens and unknown tokens fail the same way.
		err = s.ResetPasswordByToken(ctx, "tok-1", "newer", time.Now())
		require.ErrorIs(t, err, apperr.ErrInvalidOrExpiredToken)
		err = s.ResetPasswordByToken(ctx, "never-issued", "newer", time.Now())
		require.ErrorIs(t, err, apperr.ErrInvalidOrExpiredToken)
	})
}

func TestResetPasswordByTokenExpired(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		u := models.User{Username: "plank", Email: "plank@example.com", PasswordHash: "old", FullName: "Plank", Role: models.RoleCustomer}
		require.NoError(t, s.CreateUser(ctx, &u))
		require.NoError(t, s.SetResetToken(ctx, u.ID, "tok-1", time.Now().Add(-time.Second)))

		err := s.ResetPasswordByToken(ctx, "tok-1", "new", time.Now())
		require.ErrorIs(t, err, apperr.ErrInvalidOrExpiredToken)
		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "old", got.PasswordHash)
	})
}

func TestWithinTxRollback(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := models.Product{Name: "OSB Board", Price: 1200, StockQuantity: 5, SupplierID: 1, CategoryID: 1}
		require.NoError(t, s.CreateProduct(ctx, &p))

		boom := errors.New("boom")
		err := s.WithinTx(ctx, func(tx Store) error {
			if err := tx.DecrementStock(ctx, p.ID, 2); err != nil {
				return err
			}
			if err := tx.CreateOrder(ctx, &models.Order{UserID: 1, Status: models.OrderStatusPending, TotalAmount: 2400}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, 5, got.StockQuantity)
		orders, err := s.ListOrders(ctx, 1)
		require.NoError(t, err)
		require.Empty(t, orders)
	})
}

func TestListProductsFilterAndPaginate(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			p := models.Product{Name: "Sheet", Price: 1000, StockQuantity: 1, SupplierID: 1, CategoryID: 1}
			if i == 4 {
				p.CategoryID = 2
				p.IsFeatured = true
			}
			require.NoError(t, s.CreateProduct(ctx, &p))
		}

		items, total, err := s.ListProducts(ctx, ProductFilter{CategoryID: 1})
		require.NoError(t, err)
		require.EqualValues(t, 4, total)
		require.Len(t, items, 4)

		items, total, err = s.ListProducts(ctx, ProductFilter{Featured: true})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		require.Len(t, items, 1)

		// Total counts all matches even when a page is requested.
		items, total, err = s.ListProducts(ctx, ProductFilter{Offset: 3, Limit: 3})
		require.NoError(t, err)
		require.EqualValues(t, 5, total)
		require.Len(t, items, 2)
	})
}

func TestCartOps(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		item := models.CartItem{UserID: 1, ProductID: 7, Quantity: 2}
		require.NoError(t, s.CreateCartItem(ctx, &item))

		got, err := s.GetCartItemByProduct(ctx, 1, 7)
		require.NoError(t, err)
		require.Equal(t, item.ID, got.ID)
		_, err = s.GetCartItemByProduct(ctx, 1, 8)
		require.ErrorIs(t, err, apperr.ErrNotFound)

		require.NoError(t, s.UpdateCartItemQuantity(ctx, item.ID, 5))
		require.ErrorIs(t, s.UpdateCartItemQuantity(ctx, item.ID+99, 5), apperr.ErrNotFound)

		// Delete and clear are idempotent.
		require.NoError(t, s.DeleteCartItem(ctx, item.ID))
		require.NoError(t, s.DeleteCartItem(ctx, item.ID))
		require.NoError(t, s.ClearCart(ctx, 1))
	})
}

func TestRefreshTokens(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tok := models.RefreshToken{Token: "abc", UserID: 1, Role: models.RoleCustomer, ExpiresAt: time.Now().Add(time.Hour).Unix()}
		require.NoError(t, s.SaveRefreshToken(ctx, &tok))

		got, err := s.GetRefreshToken(ctx, "abc")
		require.NoError(t, err)
		require.False(t, got.Revoked)

		require.NoError(t, s.RevokeRefreshToken(ctx, "abc"))
		got, err = s.GetRefreshToken(ctx, "abc")
		require.NoError(t, err)
		require.True(t, got.Revoked)

		_, err = s.GetRefreshToken(ctx, "missing")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestSeedCategories(t *testing.T) {
	s := NewGorm(initTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.SeedCategories(ctx))
	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 4)
	require.Equal(t, "Marine Plywood", cats[0].Name)

	// Seeding again does not duplicate.
	require.NoError(t, s.SeedCategories(ctx))
	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 4)
}
