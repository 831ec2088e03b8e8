package http

import (
	"net/http"
	"strconv"

	"github.com/dejobratic/storefront/internal/checkout/app/commands"
	"github.com/dejobratic/storefront/internal/checkout/app/queries"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	if h.opts.Ready != nil {
		if err := h.opts.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) listProducts(c *gin.Context) {
	available, _ := strconv.ParseBool(c.Query("available"))
	products, err := h.service.ListProducts(c.Request.Context(), queries.ListProductsQuery{
		Category:      c.Query("category"),
		AvailableOnly: available,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// getOrder only serves orders placed from the caller's session; any other id is
// reported as missing.
func (h *Handler) getOrder(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	orderID := c.Param("id")
	if !sess.Owns(orderID) {
		writeError(c, domain.ErrOrderNotFound)
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func cartView(cart []domain.CartEntry) gin.H {
	if cart == nil {
		cart = []domain.CartEntry{}
	}
	count := 0
	for _, entry := range cart {
		count += entry.Quantity
	}
	return gin.H{
		"items": cart,
		"count": count,
		"total": domain.CartDisplayTotal(cart),
	}
}

func (h *Handler) getCart(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartView(sess.Cart))
}

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1,max=1000"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	entry, err := h.service.CartEntryFor(c.Request.Context(), req.ProductID, max(req.Quantity, 1))
	if err != nil {
		writeError(c, err)
		return
	}

	sess, err := h.sessions.Update(c.Request.Context(), c.GetString(sessionContextKey), func(sess *session.Session) error {
		cart, err := domain.AddToCart(sess.Cart, entry)
		if err != nil {
			return err
		}
		sess.Cart = cart
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(sess.Cart))
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID := c.Param("productId")
	sess, err := h.sessions.Update(c.Request.Context(), c.GetString(sessionContextKey), func(sess *session.Session) error {
		sess.Cart = domain.RemoveFromCart(sess.Cart, productID)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(sess.Cart))
}

// checkoutPage issues a fresh checkout token and prices the cart against live products.
func (h *Handler) checkoutPage(c *gin.Context) {
	ctx := c.Request.Context()

	token := uuid.NewString()
	sess, err := h.sessions.Update(ctx, c.GetString(sessionContextKey), func(sess *session.Session) error {
		if len(sess.Cart) == 0 {
			return domain.ErrEmptyCart
		}
		sess.CheckoutToken = token
		return nil
	})
	if err != nil {
		writeCheckoutError(c, err)
		return
	}

	draft, err := h.service.CheckoutPreview(ctx, sess.Cart)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}

	lines := make([]gin.H, len(draft.Lines))
	for i, line := range draft.Lines {
		lines[i] = gin.H{
			"product_id": line.ProductID,
			"name":       line.Name,
			"unit_price": line.UnitPrice,
			"quantity":   line.Quantity,
			"subtotal":   line.Subtotal(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"items": lines,
		"total": draft.Total,
	})
}

type placeOrderRequest struct {
	Token   string `json:"token" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	Zip     string `json:"zip" binding:"required"`
	Country string `json:"country" binding:"required"`
}

func (r placeOrderRequest) shipping() domain.ShippingDetails {
	return domain.ShippingDetails{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
		City:    r.City,
		State:   r.State,
		Zip:     r.Zip,
		Country: r.Country,
	}
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	result, err := h.service.PlaceOrder(c.Request.Context(), commands.PlaceOrderCommand{
		Cart:         sess.Cart,
		Token:        req.Token,
		SessionToken: sess.CheckoutToken,
		Shipping:     req.shipping(),
		UserID:       sess.UserID,
		Session:      h.sessions.Checkout(sess.ID),
	})
	if err != nil {
		writeCheckoutError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"order":      result.Order,
		"duplicate":  result.Duplicate,
		"next_token": result.NextToken,
	})
}
