package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/identity-core/internal/interface/http"
	"github.com/oksasatya/identity-core/internal/interface/middleware"
	"github.com/oksasatya/identity-core/pkg/helpers"
)

// Module wires user HTTP handlers and the session middleware into routes
// Public: POST /api/register, POST /api/login
// Protected: POST /api/logout, GET|PUT|DELETE /api/profile, GET /api/users/search
// All routes are registered under the given RouterGroup (usually /api)

type Module struct {
	Handler  *handlers.UserHandler
	Sessions middleware.SessionResolver
	Cookies  *helpers.Manager
	Logger   *logrus.Logger
}

func New(h *handlers.UserHandler, sessions middleware.SessionResolver, cookies *helpers.Manager, logger *logrus.Logger) *Module {
	return &Module{Handler: h, Sessions: sessions, Cookies: cookies, Logger: logger}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	rg.POST("/register", m.Handler.Register)
	rg.POST("/login", m.Handler.Login)

	// Protected
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Sessions, m.Cookies, m.Logger))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/profile", m.Handler.GetProfile)
		auth.PUT("/profile", m.Handler.UpdateProfile)
		auth.DELETE("/profile", m.Handler.DeleteAccount)
		auth.GET("/users/search", m.Handler.Search)
	}
}
