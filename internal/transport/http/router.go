package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/wood_market/internal/handlers"
	"github.com/Skotchmaster/wood_market/internal/service/token"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	SearchHandler  *handlers.SearchHandler
	Tokens         *token.Service
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	v1.POST("/reset-password", d.AuthHandler.ResetPassword)

	v1.GET("/categories", d.ProductHandler.GetCategories)
	v1.GET("/search", d.SearchHandler.Search)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	// The supplier route must come before /:id.
	products.GET("/supplier", d.ProductHandler.SupplierProducts, d.Tokens.AutoRefreshMiddlewareSupplier)
	products.GET("/:id", d.ProductHandler.GetProduct)

	supplier := v1.Group("/products", d.Tokens.AutoRefreshMiddlewareSupplier)
	supplier.POST("", d.ProductHandler.CreateProduct)
	supplier.PATCH("/:id", d.ProductHandler.PatchProduct)
	supplier.DELETE("/:id", d.ProductHandler.DeleteProduct)

	authed := v1.Group("", d.Tokens.AutoRefreshMiddleware)
	authed.GET("/user", d.AuthHandler.CurrentUser)

	authed.GET("/cart", d.CartHandler.GetCart)
	authed.GET("/cart/totals", d.CartHandler.GetTotals)
	authed.POST("/cart", d.CartHandler.AddToCart)
	authed.PUT("/cart/:id", d.CartHandler.UpdateCartItem)
	authed.DELETE("/cart/:id", d.CartHandler.DeleteCartItem)
	authed.DELETE("/cart", d.CartHandler.ClearCart)

	authed.POST("/orders", d.OrderHandler.CreateOrder)
	authed.GET("/orders", d.OrderHandler.GetOrders)
	authed.GET("/orders/:id", d.OrderHandler.GetOrder)
	authed.PATCH("/orders/:id/status", d.OrderHandler.UpdateOrderStatus)
}
