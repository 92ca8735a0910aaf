package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/wood_market/internal/apperr"
	"github.com/Skotchmaster/wood_market/internal/models"
)

// Memory is an in-process table-of-records implementation of Store, used by
// the unit tests. All methods take one big lock; WithinTx snapshots the
// tables and restores them when fn fails, which gives the same abort
// semantics as a database rollback.
type Memory struct {
	mu sync.Mutex
	t  *memTables
}

type memTables struct {
	users         map[uint]models.User
	categories    map[uint]models.Category
	products      map[uint]models.Product
	cartItems     map[uint]models.CartItem
	orders        map[uint]models.Order
	orderItems    map[uint]models.OrderItem
	refreshTokens map[uint]models.RefreshToken

	nextUser, nextCategory, nextProduct, nextCartItem, nextOrder, nextOrderItem, nextRefresh uint
}

func NewMemory() *Memory {
	return &Memory{t: &memTables{
		users:         map[uint]models.User{},
		categories:    map[uint]models.Category{},
		products:      map[uint]models.Product{},
		cartItems:     map[uint]models.CartItem{},
		orders:        map[uint]models.Order{},
		orderItems:    map[uint]models.OrderItem{},
		refreshTokens: map[uint]models.RefreshToken{},
		nextUser:      1, nextCategory: 1, nextProduct: 1,
		nextCartItem: 1, nextOrder: 1, nextOrderItem: 1, nextRefresh: 1,
	}}
}

func (t *memTables) snapshot() *memTables {
	cp := &memTables{
		users:         make(map[uint]models.User, len(t.users)),
		categories:    make(map[uint]models.Category, len(t.categories)),
		products:      make(map[uint]models.Product, len(t.products)),
		cartItems:     make(map[uint]models.CartItem, len(t.cartItems)),
		orders:        make(map[uint]models.Order, len(t.orders)),
		orderItems:    make(map[uint]models.OrderItem, len(t.orderItems)),
		refreshTokens: make(map[uint]models.RefreshToken, len(t.refreshTokens)),
		nextUser:      t.nextUser, nextCategory: t.nextCategory, nextProduct: t.nextProduct,
		nextCartItem: t.nextCartItem, nextOrder: t.nextOrder, nextOrderItem: t.nextOrderItem,
		nextRefresh: t.nextRefresh,
	}
	for id, u := range t.users {
		cp.users[id] = copyUser(u)
	}
	for id, v := range t.categories {
		cp.categories[id] = v
	}
	for id, v := range t.products {
		cp.products[id] = v
	}
	for id, v := range t.cartItems {
		cp.cartItems[id] = v
	}
	for id, v := range t.orders {
		cp.orders[id] = v
	}
	for id, v := range t.orderItems {
		cp.orderItems[id] = v
	}
	for id, v := range t.refreshTokens {
		cp.refreshTokens[id] = v
	}
	return cp
}

func copyUser(u models.User) models.User {
	if u.ResetToken != nil {
		tok := *u.ResetToken
		u.ResetToken = &tok
	}
	if u.ResetTokenExpiry != nil {
		exp := *u.ResetTokenExpiry
		u.ResetTokenExpiry = &exp
	}
	return u
}

func (m *Memory) WithinTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.t.snapshot()
	if err := fn(&memView{t: m.t}); err != nil {
		m.t = snap
		return err
	}
	return nil
}

// Every locked Memory method delegates to the unlocked view, so the same
// code also serves inside WithinTx.

func (m *Memory) view() *memView { return &memView{t: m.t} }

func (m *Memory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetUser(ctx, id)
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetUserByUsername(ctx, username)
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetUserByEmail(ctx, email)
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateUser(ctx, u)
}

func (m *Memory) SetResetToken(ctx context.Context, userID uint, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().SetResetToken(ctx, userID, token, expiry)
}

func (m *Memory) ResetPasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ResetPasswordByToken(ctx, token, passwordHash, now)
}

func (m *Memory) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListCategories(ctx)
}

func (m *Memory) CreateCategory(ctx context.Context, cat *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateCategory(ctx, cat)
}

func (m *Memory) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListProducts(ctx, f)
}

func (m *Memory) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetProduct(ctx, id)
}

func (m *Memory) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateProduct(ctx, p)
}

func (m *Memory) UpdateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateProduct(ctx, p)
}

func (m *Memory) DeleteProduct(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeleteProduct(ctx, id)
}

func (m *Memory) DecrementStock(ctx context.Context, productID uint, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DecrementStock(ctx, productID, qty)
}

func (m *Memory) ListCartItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListCartItems(ctx, userID)
}

func (m *Memory) GetCartItem(ctx context.Context, id uint) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetCartItem(ctx, id)
}

func (m *Memory) GetCartItemByProduct(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetCartItemByProduct(ctx, userID, productID)
}

func (m *Memory) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateCartItem(ctx, item)
}

func (m *Memory) UpdateCartItemQuantity(ctx context.Context, id uint, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateCartItemQuantity(ctx, id, quantity)
}

func (m *Memory) DeleteCartItem(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeleteCartItem(ctx, id)
}

func (m *Memory) ClearCart(ctx context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ClearCart(ctx, userID)
}

func (m *Memory) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListOrders(ctx, userID)
}

func (m *Memory) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetOrder(ctx, id)
}

func (m *Memory) CreateOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateOrder(ctx, o)
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateOrderStatus(ctx, id, status)
}

func (m *Memory) ListOrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListOrderItems(ctx, orderID)
}

func (m *Memory) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateOrderItem(ctx, item)
}

func (m *Memory) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().SaveRefreshToken(ctx, t)
}

func (m *Memory) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetRefreshToken(ctx, token)
}

func (m *Memory) RevokeRefreshToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().RevokeRefreshToken(ctx, token)
}

// memView is the unlocked implementation behind Memory and WithinTx.
type memView struct {
	t *memTables
}

func (v *memView) WithinTx(ctx context.Context, fn func(Store) error) error {
	// Already inside the outer lock; nested transactions just run.
	return fn(v)
}

func (v *memView) GetUser(ctx context.Context, id uint) (*models.User, error) {
	if u, ok := v.t.users[id]; ok {
		u = copyUser(u)
		return &u, nil
	}
	return nil, apperr.ErrNotFound
}

func (v *memView) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range v.t.users {
		if strings.EqualFold(u.Username, username) {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (v *memView) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range v.t.users {
		if strings.EqualFold(u.Email, email) {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (v *memView) CreateUser(ctx context.Context, u *models.User) error {
	u.ID = v.t.nextUser
	v.t.nextUser++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	v.t.users[u.ID] = copyUser(*u)
	return nil
}

func (v *memView) SetResetToken(ctx context.Context, userID uint, token string, expiry time.Time) error {
	u, ok := v.t.users[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	v.t.users[userID] = u
	return nil
}

func (v *memView) ResetPasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) error {
	for id, u := range v.t.users {
		if u.ResetToken == nil || *u.ResetToken != token {
			continue
		}
		if u.ResetTokenExpiry == nil || !u.ResetTokenExpiry.After(now) {
			return apperr.ErrInvalidOrExpiredToken
		}
		u.PasswordHash = passwordHash
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
		v.t.users[id] = u
		return nil
	}
	return apperr.ErrInvalidOrExpiredToken
}

func (v *memView) ListCategories(ctx context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(v.t.categories))
	for _, c := range v.t.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *memView) CreateCategory(ctx context.Context, cat *models.Category) error {
	cat.ID = v.t.nextCategory
	v.t.nextCategory++
	v.t.categories[cat.ID] = *cat
	return nil
}

func (v *memView) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	var all []models.Product
	for _, p := range v.t.products {
		if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
			continue
		}
		if f.SupplierID != 0 && p.SupplierID != f.SupplierID {
			continue
		}
		if f.Featured && !p.IsFeatured {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if f.Limit > 0 {
		if f.Offset >= len(all) {
			return []models.Product{}, total, nil
		}
		end := f.Offset + f.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[f.Offset:end]
	}
	return all, total, nil
}

func (v *memView) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	if p, ok := v.t.products[id]; ok {
		return &p, nil
	}
	return nil, apperr.ErrNotFound
}

func (v *memView) CreateProduct(ctx context.Context, p *models.Product) error {
	p.ID = v.t.nextProduct
	v.t.nextProduct++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	v.t.products[p.ID] = *p
	return nil
}

func (v *memView) UpdateProduct(ctx context.Context, p *models.Product) error {
	if _, ok := v.t.products[p.ID]; !ok {
		return apperr.ErrNotFound
	}
	v.t.products[p.ID] = *p
	return nil
}

func (v *memView) DeleteProduct(ctx context.Context, id uint) error {
	delete(v.t.products, id)
	return nil
}

func (v *memView) DecrementStock(ctx context.Context, productID uint, qty int) error {
	p, ok := v.t.products[productID]
	if !ok {
		return apperr.ErrNotFound
	}
	if p.StockQuantity < qty {
		return &apperr.InsufficientStockError{ProductID: productID, Available: p.StockQuantity}
	}
	p.StockQuantity -= qty
	v.t.products[productID] = p
	return nil
}

func (v *memView) ListCartItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, it := range v.t.cartItems {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *memView) GetCartItem(ctx context.Context, id uint) (*models.CartItem, error) {
	if it, ok := v.t.cartItems[id]; ok {
		return &it, nil
	}
	return nil, apperr.ErrNotFound
}

func (v *memView) GetCartItemByProduct(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	for _, it := range v.t.cartItems {
		if it.UserID == userID && it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (v *memView) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	item.ID = v.t.nextCartItem
	v.t.nextCartItem++
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	v.t.cartItems[item.ID] = *item
	return nil
}

func (v *memView) UpdateCartItemQuantity(ctx context.Context, id uint, quantity int) error {
	it, ok := v.t.cartItems[id]
	if !ok {
		return apperr.ErrNotFound
	}
	it.Quantity = quantity
	v.t.cartItems[id] = it
	return nil
}

func (v *memView) DeleteCartItem(ctx context.Context, id uint) error {
	delete(v.t.cartItems, id)
	return nil
}

func (v *memView) ClearCart(ctx context.Context, userID uint) error {
	for id, it := range v.t.cartItems {
		if it.UserID == userID {
			delete(v.t.cartItems, id)
		}
	}
	return nil
}

func (v *memView) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var out []models.Order
	for _, o := range v.t.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (v *memView) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	if o, ok := v.t.orders[id]; ok {
		return &o, nil
	}
	return nil, apperr.ErrNotFound
}

func (v *memView) CreateOrder(ctx context.Context, o *models.Order) error {
	o.ID = v.t.nextOrder
	v.t.nextOrder++
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	v.t.orders[o.ID] = *o
	return nil
}

func (v *memView) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	o, ok := v.t.orders[id]
	if !ok {
		return apperr.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	v.t.orders[id] = o
	return nil
}

func (v *memView) ListOrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, it := range v.t.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *memView) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	item.ID = v.t.nextOrderItem
	v.t.nextOrderItem++
	v.t.orderItems[item.ID] = *item
	return nil
}

func (v *memView) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	t.ID = v.t.nextRefresh
	v.t.nextRefresh++
	v.t.refreshTokens[t.ID] = *t
	return nil
}

func (v *memView) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	for _, t := range v.t.refreshTokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (v *memView) RevokeRefreshToken(ctx context.Context, token string) error {
	for id, t := range v.t.refreshTokens {
		if t.Token == token {
			t.Revoked = true
			v.t.refreshTokens[id] = t
		}
	}
	return nil
}
