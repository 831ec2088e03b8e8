package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dejobratic/storefront/internal/checkout/app/commands"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Demo-Signature"

// Rejection reasons returned to the payment provider.
const (
	reasonOrderNotFound    = "ORDER_NOT_FOUND"
	reasonUnknownEvent     = "UNKNOWN_EVENT"
	reasonInvalidPayload   = "INVALID_PAYLOAD"
	reasonInvalidSignature = "INVALID_SIGNATURE"
	reasonInternal         = "INTERNAL_ERROR"
)

type paymentWebhookRequest struct {
	Event         string `json:"event"`
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
}

func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		reject(c, http.StatusBadRequest, reasonInvalidPayload)
		return
	}

	if h.opts.WebhookSecret != "" && !validSignature(h.opts.WebhookSecret, body, c.GetHeader(signatureHeader)) {
		reject(c, http.StatusUnauthorized, reasonInvalidSignature)
		return
	}

	var req paymentWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil || req.OrderID == "" || req.Event == "" {
		reject(c, http.StatusBadRequest, reasonInvalidPayload)
		return
	}

	result, err := h.service.ApplyPaymentEvent(c.Request.Context(), commands.ApplyPaymentEventCommand{
		OrderID:       req.OrderID,
		Event:         req.Event,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			reject(c, http.StatusNotFound, reasonOrderNotFound)
		case errors.Is(err, domain.ErrUnknownEvent):
			reject(c, http.StatusBadRequest, reasonUnknownEvent)
		default:
			// 5xx so the provider retries.
			_ = c.Error(err)
			reject(c, http.StatusInternalServerError, reasonInternal)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"orderId":       result.Order.ID,
		"status":        result.Order.Status,
		"paymentStatus": result.Order.Payment.Status,
		"duplicate":     result.Duplicate,
	})
}

func reject(c *gin.Context, status int, reason string) {
	c.JSON(status, gin.H{"ok": false, "reason": reason})
}

// validSignature checks a hex HMAC-SHA256 of body, optionally prefixed "sha256=".
func validSignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return false
	}
	return hmac.Equal(got, Sign(secret, body))
}

// Sign computes the webhook signature for body.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
