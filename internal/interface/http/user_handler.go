package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/identity-core/internal/application"
	"github.com/oksasatya/identity-core/internal/domain/apperr"
	"github.com/oksasatya/identity-core/internal/domain/entity"
	"github.com/oksasatya/identity-core/internal/infrastructure/session"
	"github.com/oksasatya/identity-core/internal/interface/middleware"
	"github.com/oksasatya/identity-core/pkg/helpers"
	"github.com/oksasatya/identity-core/pkg/imagecheck"
	"github.com/oksasatya/identity-core/pkg/response"
	"github.com/oksasatya/identity-core/pkg/validation"
)

// formOverhead leaves room for multipart framing and the text fields.
const formOverhead = 64 << 10

// SessionStore issues and revokes the sessions behind the cookie.
type SessionStore interface {
	Create(ctx context.Context, email, userID string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
}

type UserHandler struct {
	Svc            *application.Service
	Sessions       SessionStore
	Logger         *logrus.Logger
	Cookies        *helpers.Manager
	MaxAvatarBytes int
}

func NewUserHandler(svc *application.Service, sessions SessionStore, logger *logrus.Logger, cookies *helpers.Manager, maxAvatarBytes int) *UserHandler {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = imagecheck.DefaultPolicy().MaxBytes
	}
	return &UserHandler{Svc: svc, Sessions: sessions, Logger: logger, Cookies: cookies, MaxAvatarBytes: maxAvatarBytes}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// updateProfileRequest is bound from JSON or from multipart form fields.
// A multipart request may carry the image as the "avatar" file instead of
// base64Image.
type updateProfileRequest struct {
	Username    string  `json:"username" form:"username" binding:"required"`
	Base64Image string  `json:"base64Image" form:"base64Image"`
	AvatarRef   *string `json:"avatar_ref" form:"avatar_ref"`
}

type userResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	Avatar     *string   `json:"avatar"`
	AuthMethod string    `json:"auth_method"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		Avatar:     u.Avatar,
		AuthMethod: string(u.AuthMethod),
		Status:     string(u.Status),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func principal(c *gin.Context) application.Principal {
	return application.Principal{
		Email:  c.GetString(middleware.CtxUserEmail),
		UserID: c.GetString(middleware.CtxUserID),
	}
}

func (h *UserHandler) badPayload(c *gin.Context, err error) {
	response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}

// startSession binds a fresh session to the workflow's SessionEmail.
func (h *UserHandler) startSession(c *gin.Context, res *application.AuthResult) (*session.Session, bool) {
	sess, err := h.Sessions.Create(c.Request.Context(), res.SessionEmail, res.User.ID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("user_id", res.User.ID).Error("create session failed")
		}
		response.Fail(c, http.StatusInternalServerError, "internal error", nil)
		return nil, false
	}
	h.Cookies.SetSession(c, sess.ID, sess.ExpiresAt)
	return sess, true
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badPayload(c, err)
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	sess, ok := h.startSession(c, res)
	if !ok {
		return
	}
	response.OK(c, http.StatusCreated, toUserResponse(res.User), "registered", map[string]any{"session_expires_at": sess.ExpiresAt})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badPayload(c, err)
		return
	}
	res, err := h.Svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	sess, ok := h.startSession(c, res)
	if !ok {
		return
	}
	response.OK(c, http.StatusOK, toUserResponse(res.User), "login successful", map[string]any{"session_expires_at": sess.ExpiresAt})
}

func (h *UserHandler) Logout(c *gin.Context) {
	h.endSession(c)
	response.OK[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

func (h *UserHandler) endSession(c *gin.Context) {
	if sid := c.GetString(middleware.CtxSessionID); sid != "" {
		if err := h.Sessions.Delete(c.Request.Context(), sid); err != nil && h.Logger != nil {
			h.Logger.WithError(err).Warn("delete session failed")
		}
	}
	h.Cookies.Clear(c)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, "get profile", err)
		return
	}
	response.OK(c, http.StatusOK, toUserResponse(u), "profile", nil)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	// base64 inflates the payload by a third.
	limit := int64(h.MaxAvatarBytes)*4/3 + formOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	in, err := h.bindProfile(c)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			h.fail(c, "update profile", &apperr.ImageRejectedError{Reason: string(imagecheck.ReasonTooLarge)})
		case apperr.KindOf(err) != apperr.KindUnknown:
			h.fail(c, "update profile", err)
		default:
			h.badPayload(c, err)
		}
		return
	}

	res, err := h.Svc.UpdateProfile(c.Request.Context(), principal(c), in)
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	response.OK(c, http.StatusOK, toUserResponse(res.User), "profile updated", nil)
}

func (h *UserHandler) bindProfile(c *gin.Context) (application.UpdateProfileInput, error) {
	var req updateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		return application.UpdateProfileInput{}, err
	}
	in := application.UpdateProfileInput{Username: req.Username, AvatarRef: req.AvatarRef}

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("avatar")
		switch {
		case err == nil:
			raw, err := h.readUpload(fh)
			if err != nil {
				return in, err
			}
			in.Avatar = raw
			return in, nil
		case !errors.Is(err, http.ErrMissingFile):
			return in, err
		}
	}

	if req.Base64Image != "" {
		raw, err := imagecheck.DecodeDataURI(req.Base64Image, h.MaxAvatarBytes)
		switch {
		case errors.Is(err, imagecheck.ErrDataURITooLarge):
			return in, &apperr.ImageRejectedError{Reason: string(imagecheck.ReasonTooLarge)}
		case err != nil:
			return in, apperr.NewValidationError(apperr.FieldAvatar, "Invalid base64 image")
		}
		in.Avatar = raw
	}
	return in, nil
}

// readUpload reads at most one byte past the limit so the pipeline can
// reject oversized files without buffering them whole.
func (h *UserHandler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, int64(h.MaxAvatarBytes)+1))
}

func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.Svc.DeleteAccount(c.Request.Context(), principal(c)); err != nil {
		h.fail(c, "delete account", err)
		return
	}
	h.endSession(c)
	response.OK[any](c, http.StatusOK, map[string]any{"deleted": true}, "account deleted", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	users, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("user search failed")
		}
		response.Fail(c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	response.OK(c, http.StatusOK, users, "ok", map[string]any{"count": len(users)})
}
