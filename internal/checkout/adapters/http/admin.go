package http

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/storefront/internal/checkout/app/queries"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) requireAdmin(c *gin.Context) {
	token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if h.opts.AdminToken == "" || !found ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.opts.AdminToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (h *Handler) adminListOrders(c *gin.Context) {
	query := queries.ListOrdersQuery{Status: c.Query("status")}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil {
		query.PageSize = pageSize
	}

	orders, err := h.service.ListOrders(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) adminTransitionOrder(c *gin.Context) {
	order, err := h.service.TransitionOrder(c.Request.Context(), c.Param("id"), c.Param("action"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) adminDeleteProduct(c *gin.Context) {
	if err := h.service.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type saveProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" binding:"required"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Stock       int             `json:"stock" binding:"gte=0"`
	Disabled    bool            `json:"disabled"`
}

func (h *Handler) adminSaveProduct(c *gin.Context) {
	var req saveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	product, err := h.service.SaveProduct(c.Request.Context(), domain.Product{
		ID:          c.Param("id"),
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Image:       req.Image,
		Description: req.Description,
		Stock:       req.Stock,
		Disabled:    req.Disabled,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}
