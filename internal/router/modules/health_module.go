package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/identity-core/pkg/response"
)

// HealthCheck reports whether one backend is reachable.
type HealthCheck func(ctx context.Context) error

type HealthModule struct {
	Checks map[string]HealthCheck
}

func NewHealthModule(checks map[string]HealthCheck) *HealthModule {
	return &HealthModule{Checks: checks}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.Health)
}

// Health answers 503 when any check fails, naming the failing backends.
func (m *HealthModule) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range m.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		response.Fail(c, http.StatusServiceUnavailable, "unhealthy", failed)
		return
	}
	response.OK[any](c, http.StatusOK, map[string]any{"status": "ok"}, "healthy", nil)
}
