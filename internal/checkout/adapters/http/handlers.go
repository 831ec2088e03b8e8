package http

import (
	"context"

	"github.com/dejobratic/storefront/internal/checkout/app"
	"github.com/dejobratic/storefront/internal/session"
	"github.com/gin-gonic/gin"
)

// Options configures the optional parts of the HTTP surface.
type Options struct {
	// WebhookSecret enables HMAC verification of payment webhooks when set.
	WebhookSecret string
	// AdminToken guards /v1/admin. Admin routes reject every request when empty.
	AdminToken string
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Handler exposes HTTP endpoints for the storefront checkout.
type Handler struct {
	service  *app.Service
	sessions *session.Store
	opts     Options
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service, sessions *session.Store, opts Options) *Handler {
	useJSONFieldNames()
	return &Handler{
		service:  service,
		sessions: sessions,
		opts:     opts,
	}
}

// Register binds the storefront, webhook, admin and operational routes.
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/healthz", h.health)
	router.GET("/readyz", h.ready)

	v1 := router.Group("/v1")

	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)
	v1.POST("/payments/webhook/demo", h.paymentWebhook)

	shop := v1.Group("", h.withSession)
	{
		shop.GET("/cart", h.getCart)
		shop.POST("/cart/items", h.addCartItem)
		shop.DELETE("/cart/items/:productId", h.removeCartItem)
		shop.GET("/checkout", h.checkoutPage)
		shop.POST("/checkout", h.placeOrder)
		shop.GET("/orders/:id", h.getOrder)
	}

	admin := v1.Group("/admin", h.requireAdmin)
	{
		admin.GET("/orders", h.adminListOrders)
		admin.POST("/orders/:id/:action", h.adminTransitionOrder)
		admin.PUT("/products/:id", h.adminSaveProduct)
		admin.DELETE("/products/:id", h.adminDeleteProduct)
	}
}
