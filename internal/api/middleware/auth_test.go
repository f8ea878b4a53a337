package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newEngine(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestTracing(), APIKeyAuth(cfg, zap.NewNop()))
	r.POST("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	r := newEngine(AuthConfig{Enabled: true, APIKeys: []string{"sk_test_12345678"}})

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"缺少Key", nil, http.StatusUnauthorized},
		{"无效Key", map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"X-API-Key", map[string]string{"X-API-Key": "sk_test_12345678"}, http.StatusOK},
		{"Bearer", map[string]string{"Authorization": "Bearer sk_test_12345678"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	r := newEngine(AuthConfig{})
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk_t****5678", maskAPIKey("sk_test_12345678"))
}
