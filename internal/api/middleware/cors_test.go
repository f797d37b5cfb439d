package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCORSRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/asset", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestCORSReflectsAllowedOrigin(t *testing.T) {
	router := newCORSRouter()

	req := httptest.NewRequest(http.MethodGet, "/asset", nil)
	req.Header.Set("Origin", "https://wavedash.gg")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://wavedash.gg", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowsSubdomains(t *testing.T) {
	router := newCORSRouter()

	req := httptest.NewRequest(http.MethodGet, "/asset", nil)
	req.Header.Set("Origin", "https://pgrc.sandbox.wavedash.gg")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://pgrc.sandbox.wavedash.gg", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresDisallowedOrigin(t *testing.T) {
	router := newCORSRouter()

	for _, origin := range []string{
		"https://evil.example.com",
		"https://notwavedash.gg.example.com",
		"https://fakewavedash.gg",
	} {
		req := httptest.NewRequest(http.MethodGet, "/asset", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// The request itself succeeds; the browser rejects it for lack of
		// CORS headers.
		assert.Equal(t, http.StatusOK, w.Code, "origin %s", origin)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "origin %s", origin)
	}
}

func TestCORSNoOriginHeader(t *testing.T) {
	router := newCORSRouter()

	req := httptest.NewRequest(http.MethodGet, "/asset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	router := newCORSRouter()

	req := httptest.NewRequest(http.MethodOptions, "/asset", nil)
	req.Header.Set("Origin", "https://wavedash.gg")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://wavedash.gg", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHostMatchesDomain(t *testing.T) {
	assert.True(t, hostMatchesDomain("wavedash.gg", "wavedash.gg"))
	assert.True(t, hostMatchesDomain("play.wavedash.gg", "wavedash.gg"))
	assert.False(t, hostMatchesDomain("fakewavedash.gg", "wavedash.gg"))
	assert.False(t, hostMatchesDomain("wavedash.gg.evil.com", "wavedash.gg"))
}
