package system

import (
	"net/http"
	"runtime"
	"time"

	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"github.com/aquabrain57/procollekt/internal/pkg/cron"
	pkgredis "github.com/aquabrain57/procollekt/internal/pkg/redis"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var processStart = time.Now()

// RegisterRoutes mounts liveness, clock sync and operational endpoints.
func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, rc *pkgredis.Client, sched *cron.Scheduler, hub *gateway.Hub, authMW gin.HandlerFunc) {
	rg.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		dbOK := err == nil && sqlDB.Ping() == nil
		redisOK := rc != nil && rc.Raw().Ping(c.Request.Context()).Err() == nil

		status := "ok"
		code := http.StatusOK
		if !dbOK || !redisOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":   status,
			"database": dbOK,
			"redis":    redisOK,
		})
	})

	// Clock sync for field devices stamping samples offline.
	rg.GET("/server-time", func(c *gin.Context) {
		t2 := time.Now().UnixMilli()
		c.JSON(http.StatusOK, gin.H{
			"t2": t2,
			"t3": time.Now().UnixMilli(),
		})
	})

	admin := rg.Group("/system", authMW)

	admin.GET("/info", func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		response.OK(c, gin.H{
			"uptime":            time.Since(processStart).Truncate(time.Second).String(),
			"go_version":        runtime.Version(),
			"goroutines":        runtime.NumGoroutine(),
			"heap_alloc_bytes":  m.HeapAlloc,
			"connected_clients": hub.ClientCount(),
		})
	})

	cronGroup := admin.Group("/cron")
	cronGroup.GET("", func(c *gin.Context) {
		response.OK(c, sched.List())
	})
	cronGroup.POST("/run/:name", func(c *gin.Context) {
		if err := sched.Run(c.Request.Context(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"message": "job triggered"})
	})
}
