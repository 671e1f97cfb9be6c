package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func tokenEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("LiveStageSessions", cookie.NewStore([]byte("secret"))))
	r.Use(ClientTokenMiddleware())
	r.GET("/token", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(clientTokenKey))
	})
	return r
}

func TestClientTokenMiddleware_StableAcrossRequests(t *testing.T) {
	req := require.New(t)
	r := tokenEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/token", nil))
	req.Equal(http.StatusOK, w.Code)
	first := w.Body.String()
	req.NotEmpty(first)
	cookies := w.Result().Cookies()
	req.NotEmpty(cookies)

	again := httptest.NewRequest(http.MethodGet, "/token", nil)
	for _, c := range cookies {
		again.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, again)
	req.Equal(first, w.Body.String())
}

func TestClientTokenMiddleware_NewBrowserGetsNewToken(t *testing.T) {
	req := require.New(t)
	r := tokenEngine()

	a := httptest.NewRecorder()
	r.ServeHTTP(a, httptest.NewRequest(http.MethodGet, "/token", nil))
	b := httptest.NewRecorder()
	r.ServeHTTP(b, httptest.NewRequest(http.MethodGet, "/token", nil))
	req.NotEqual(a.Body.String(), b.Body.String())
}
