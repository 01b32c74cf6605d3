package utils

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRandBase62(t *testing.T) {
	a, b := RandBase62(16), RandBase62(16)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[0-9a-zA-Z]{1,22}$`, a)
}

func TestCacheRouterHeader(t *testing.T) {
	tests := []struct {
		router CacheRouter
		want   string
	}{
		{CacheRouter{}, "no-cache"},
		{CacheRouter{CacheTime: 60}, "private, max-age=60"},
		{CacheRouter{CacheTime: 3600, Immutable: true}, "private, max-age=3600, immutable"},
		{CacheRouter{CacheTime: CacheCustom}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := gin.New()
			r.GET("/", tt.router.Handler(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, rec.Header().Get("cache-control"))
		})
	}
}

func TestMiddlewares(t *testing.T) {
	var out bytes.Buffer
	InitLoggerTo(&out, "debug", false)
	defer InitLoggerTo(&out, "info", false)

	r := gin.New()
	r.Use(Recovery(), RequestLogger(), Metrics(), ErrorLogMiddleware)
	cached := r.Group("/", (&CacheRouter{CacheTime: 60}).Handler())
	cached.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })
	r.GET("/bad", func(c *gin.Context) { c.JSON(http.StatusBadRequest, gin.H{"error": "nope"}) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/metrics", MetricsHandler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=60", rec.Header().Get("cache-control"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out.String(), `"message":"Error response"`)
	assert.Contains(t, out.String(), `"path":"/bad"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, out.String(), "Panic recovered")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `memoria_http_requests_total{method="GET",path="/ok",status="200"} 1`), body)
}
