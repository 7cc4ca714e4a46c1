package api

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logger is a Gin middleware that logs every request with a per-request
// ID, the replica's own identity, method, path, status code, and latency.
// Unlike the donor middleware (which called the package-level log.Printf),
// this one is built from an explicitly-threaded logger so a replica never
// reaches into global state.
func Logger(selfID string, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("request_id", reqID)

		c.Next()

		logger.Printf("request_id=%s replica=%s [%s] %s | %d | %s",
			reqID,
			selfID,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

// Recovery takes the place of Gin's default recovery middleware: it
// recovers a panic, logs it through the same explicitly-threaded logger as
// Logger, and answers 500.
func Recovery(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Printf("PANIC recovered: %v", err)
				c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
