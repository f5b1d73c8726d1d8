package router

import (
	"context"

	"github.com/oksasatya/identity-core/internal/application"
	"github.com/oksasatya/identity-core/internal/container"
	"github.com/oksasatya/identity-core/internal/infrastructure/messaging"
	"github.com/oksasatya/identity-core/internal/infrastructure/objectstore"
	"github.com/oksasatya/identity-core/internal/infrastructure/search"
	"github.com/oksasatya/identity-core/internal/infrastructure/session"
	handlers "github.com/oksasatya/identity-core/internal/interface/http"
	"github.com/oksasatya/identity-core/internal/router/modules"
	"github.com/oksasatya/identity-core/pkg/helpers"
	"github.com/oksasatya/identity-core/pkg/imagecheck"
)

type UserModuleDeps struct {
	Service  *application.Service
	Sessions *session.Store
	Cookies  *helpers.Manager
	Handler  *handlers.UserHandler
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	images := imagecheck.New(imagecheck.Policy{
		MaxWidth:  cfg.AvatarMaxDimension,
		MaxHeight: cfg.AvatarMaxDimension,
		MaxBytes:  cfg.AvatarMaxBytes,
	})

	// Optional collaborators stay nil interfaces when their backend is absent.
	var avatars application.AvatarStore
	if cfg.GCSBucket != "" {
		store, err := objectstore.NewAvatarStore(container.GetGCS(), cfg.GCSBucket)
		if err != nil {
			logger.WithError(err).Warn("gcs avatar store disabled; avatars are stored inline")
		} else {
			avatars = store
		}
	}
	var events application.EventPublisher
	if pub := container.GetRabbitPub(); pub != nil {
		events = messaging.NewUserEventPublisher(pub)
	}
	var index application.UserIndexer
	if es := container.GetES(); es != nil {
		index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}

	service := application.NewService(
		container.GetUserRepo(),
		container.GetVault(),
		images,
		avatars,
		events,
		index,
		logger,
	)

	sessions := session.NewStore(container.GetRedis(), cfg.SessionTTL)
	cookies := helpers.NewCookie(cfg.SessionCookieName, cfg.CookieDomain, cfg.CookieSecure)
	handler := handlers.NewUserHandler(service, sessions, logger, cookies, cfg.AvatarMaxBytes)

	return UserModuleDeps{
		Service:  service,
		Sessions: sessions,
		Cookies:  cookies,
		Handler:  handler,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildUserDeps()
	r.Add(modules.New(deps.Handler, deps.Sessions, deps.Cookies, container.GetLogger()))
	r.Add(modules.NewHealthModule(healthChecks()))
}

func healthChecks() map[string]modules.HealthCheck {
	checks := map[string]modules.HealthCheck{}
	if p, ok := container.GetUserRepo().(interface{ Ping(context.Context) error }); ok {
		checks["store"] = p.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}
