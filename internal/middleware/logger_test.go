package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerRecordsIdentityAndSeverity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) {
		c.Set(ContextKeyBadgeID, "badge-1")
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Set(ContextKeyUserID, "user-1")
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "badge-1", entries[0].ContextMap()["badge_id"])
	_, hasUser := entries[0].ContextMap()["user_id"]
	assert.False(t, hasUser)

	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "user-1", entries[1].ContextMap()["user_id"])
}
