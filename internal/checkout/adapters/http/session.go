package http

import (
	"errors"
	"net/http"

	"github.com/dejobratic/storefront/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	sessionCookie     = "sid"
	sessionContextKey = "session_id"
)

// withSession resolves the caller's session from the sid cookie, starting a new one
// when the cookie is missing or the session has expired.
func (h *Handler) withSession(c *gin.Context) {
	ctx := c.Request.Context()

	if id, err := c.Cookie(sessionCookie); err == nil && id != "" {
		if _, err := h.sessions.Get(ctx, id); err == nil {
			c.Set(sessionContextKey, id)
			c.Next()
			return
		}
	}

	sess := h.sessions.Create(ctx)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID, 0, "/", "", h.opts.SecureCookies, true)
	c.Set(sessionContextKey, sess.ID)
	c.Next()
}

func (h *Handler) currentSession(c *gin.Context) (session.Session, bool) {
	sess, err := h.sessions.Get(c.Request.Context(), c.GetString(sessionContextKey))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		}
		return session.Session{}, false
	}
	return sess, true
}
