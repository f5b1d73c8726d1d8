package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
	"github.com/oksasatya/identity-core/pkg/response"
)

// StatusFor maps an error kind to the HTTP status the API answers with.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindImageRejected:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(kind apperr.Kind) string {
	switch kind {
	case apperr.KindValidation:
		return "invalid payload"
	case apperr.KindConflict:
		return "already taken"
	case apperr.KindNotFound:
		return "user not found"
	case apperr.KindImageRejected:
		return "image rejected"
	case apperr.KindInvalidCredentials:
		return "invalid credentials"
	default:
		return "internal error"
	}
}

// details exposes only what a client can act on. Internal failures carry none.
func details(err error) any {
	var (
		verr *apperr.ValidationError
		cerr *apperr.ConflictError
		ierr *apperr.ImageRejectedError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Fields
	case errors.As(err, &cerr):
		return map[string]string{cerr.Field: cerr.Error()}
	case errors.As(err, &ierr):
		return map[string]string{"reason": ierr.Reason}
	}
	return nil
}

func (h *UserHandler) fail(c *gin.Context, op string, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"op":         op,
			"kind":       kind,
			"request_id": c.GetString("request_id"),
		}).Error("request failed")
	}
	response.Fail(c, status, messageFor(kind), details(err))
}
