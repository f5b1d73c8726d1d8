package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/identity-core/internal/infrastructure/session"
	"github.com/oksasatya/identity-core/pkg/helpers"
	"github.com/oksasatya/identity-core/pkg/response"
)

// Context keys set by Auth.
const (
	CtxSessionID = "sessionID"
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
)

// SessionResolver looks up the session behind an opaque id.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Auth resolves the session cookie to a principal.
// It sets sessionID, userID and userEmail in the Gin context on success.
func Auth(sessions SessionResolver, cookies *helpers.Manager, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := cookies.SessionID(c)
		if sid == "" {
			response.Fail(c, http.StatusUnauthorized, "missing session", nil)
			return
		}

		sess, err := sessions.Get(c.Request.Context(), sid)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) && logger != nil {
				logger.WithError(err).Error("session lookup failed")
			}
			response.Fail(c, http.StatusUnauthorized, "session not found", nil)
			return
		}

		c.Set(CtxSessionID, sess.ID)
		c.Set(CtxUserID, sess.UserID)
		c.Set(CtxUserEmail, sess.Email)
		c.Next()
	}
}
