package server

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

var serverStartTime = time.Now()

// SetupRouter creates and configures the Gin router, generalizing the
// teacher's session-control routes into the download-job surface.
func SetupRouter(api *API, hub *wsHub) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	downloads := r.Group("/downloads")
	{
		downloads.POST("", api.StartDownload)
		downloads.GET("/:id", api.Status)
		downloads.POST("/:id/cancel", api.Cancel)
	}

	r.GET("/search", api.Search)
	r.GET("/ws", hub.HandleWS)

	r.GET("/health", func(c *gin.Context) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		c.JSON(200, gin.H{
			"status":         "ok",
			"uptime_seconds": int64(time.Since(serverStartTime).Seconds()),
			"ram_mb":         float64(memStats.Alloc) / 1024 / 1024,
			"goroutines":     runtime.NumGoroutine(),
			"jobs_active":    api.jobs.ActiveJobCount(),
			"ws_clients":     hub.clientCount(),
			"go_version":     runtime.Version(),
		})
	})

	return r
}

// corsMiddleware handles CORS for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
