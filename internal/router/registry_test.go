package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRegistryMountsModulesOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reg := NewRegistry(engine)

	var seen []string
	reg.Use(func(c *gin.Context) {
		seen = append(seen, c.FullPath())
		c.Next()
	})
	mounts := 0
	reg.Add(ModuleFunc(func(rg *gin.RouterGroup) {
		mounts++
		rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	}))
	reg.RegisterAll()
	reg.RegisterAll()

	if mounts != 1 {
		t.Fatalf("module mounted %d times", mounts)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("ping: %d %q", w.Code, w.Body.String())
	}
	if len(seen) != 1 || seen[0] != "/api/ping" {
		t.Fatalf("middleware saw %v", seen)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", w.Code)
	}
}
