package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/dejobratic/storefront/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const cartRedirect = "/cart"

// writeCheckoutError reports a failed checkout. Business-rule rejections carry a
// user-facing message and send the shopper back to the cart; everything else is opaque.
func writeCheckoutError(c *gin.Context, err error) {
	var oos *domain.OutOfStockError
	switch {
	case errors.As(err, &oos):
		name := oos.Name
		if name == "" {
			name = "An item in your cart"
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":      fmt.Sprintf("%s is out of stock or not enough quantity available", name),
			"product_id": oos.ProductID,
			"redirect":   cartRedirect,
		})
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty", "redirect": cartRedirect})
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "Invalid or expired checkout session. Please review your cart and try again.",
			"redirect": cartRedirect,
		})
	case errors.Is(err, domain.ErrValidationFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "redirect": cartRedirect})
	default:
		writeError(c, err)
	}
}

// writeError maps domain errors onto status codes. Unclassified errors never leak
// their message.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, domain.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrValidationFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	case errors.Is(err, ports.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": "order was modified concurrently, reload and retry"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
	}
}

// bindingError turns gin binding failures into per-field messages.
func bindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[field] = field + " is required"
		case "email":
			fields[field] = field + " must be a valid email address"
		case "min", "gte":
			fields[field] = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "max", "lte":
			fields[field] = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		default:
			fields[field] = field + " is invalid"
		}
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
}

var registerFieldNames sync.Once

// useJSONFieldNames makes validation errors report json tag names.
func useJSONFieldNames() {
	registerFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}
