package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, allowed []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(allowed))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/ping", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestLoopbackOriginAllowed(t *testing.T) {
	w := serve(t, nil, http.MethodGet, "http://localhost:5173")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestForeignOriginRejectedUnlessListed(t *testing.T) {
	w := serve(t, nil, http.MethodGet, "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(t, []string{"app://untapped/"}, http.MethodGet, "app://untapped")
	assert.Equal(t, "app://untapped", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	w := serve(t, nil, http.MethodOptions, "http://127.0.0.1:8765")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
