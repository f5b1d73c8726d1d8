package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestOKAndFail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("request_id", "req-1") })
	r.GET("/ok", func(c *gin.Context) { OK(c, 0, map[string]int{"n": 1}, "fine", nil) })
	r.GET("/fail", func(c *gin.Context) {
		Fail(c, http.StatusConflict, "taken", map[string]string{"email": "email already taken"})
	}, func(c *gin.Context) { c.String(http.StatusOK, "unreachable") })

	tests := []struct {
		path        string
		wantCode    int
		wantSuccess bool
	}{
		{path: "/ok", wantCode: http.StatusOK, wantSuccess: true},
		{path: "/fail", wantCode: http.StatusConflict},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.wantCode {
			t.Fatalf("%s: status = %d, want %d", tt.path, w.Code, tt.wantCode)
		}
		var body APIResponse[json.RawMessage]
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode %q: %v", tt.path, w.Body.String(), err)
		}
		if body.Success != tt.wantSuccess || body.RequestID != "req-1" || body.Status != tt.wantCode {
			t.Fatalf("%s: unexpected envelope %+v", tt.path, body)
		}
	}
}
