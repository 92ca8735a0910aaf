package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleSupplier = "supplier"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func ValidRole(s string) bool {
	return s == RoleCustomer || s == RoleSupplier
}

type User struct {
	ID               uint       `gorm:"primaryKey;autoIncrement"  json:"id"`
	Username         string     `gorm:"uniqueIndex;not null"      json:"username"`
	Email            string     `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash     string     `gorm:"not null"                  json:"-"`
	FullName         string     `gorm:"not null"                  json:"full_name"`
	Role             string     `gorm:"not null;default:customer" json:"role"`
	ResetToken       *string    `gorm:"uniqueIndex"               json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null"     json:"name"`
	Icon string `gorm:"not null"                 json:"icon"`
}

// Price is stored in minor currency units (cents), never floating point.
type Product struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"not null"                 json:"name"`
	Description   string    `gorm:"not null"                 json:"description"`
	Price         int64     `gorm:"not null"                 json:"price"`
	ImageURL      string    `json:"image_url"`
	StockQuantity int       `gorm:"not null"                 json:"stock_quantity"`
	SupplierID    uint      `gorm:"index;not null"           json:"supplier_id"`
	CategoryID    uint      `gorm:"index;not null"           json:"category_id"`
	IsFeatured    bool      `gorm:"default:false"            json:"is_featured"`
	CreatedAt     time.Time `json:"created_at"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                      json:"id"`
	UserID    uint      `gorm:"index:idx_cart_user_product,unique;not null"   json:"user_id"`
	ProductID uint      `gorm:"index:idx_cart_user_product,unique;not null"   json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity>0"                     json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type Order struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID      uint      `gorm:"index;not null"            json:"user_id"`
	Status      string    `gorm:"not null;default:pending"  json:"status"`
	TotalAmount int64     `gorm:"not null"                  json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnitPrice is copied from the product at purchase time, so later catalog
// price changes never alter historical orders.
type OrderItem struct {
	ID        uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint  `gorm:"index;not null"           json:"order_id"`
	ProductID uint  `gorm:"not null"                 json:"product_id"`
	Quantity  int   `gorm:"not null;check:quantity>0" json:"quantity"`
	UnitPrice int64 `gorm:"not null"                 json:"unit_price"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `gorm:"not null"            json:"role"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}
