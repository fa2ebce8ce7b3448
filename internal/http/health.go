package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ServiceName = "docseek"

func (srv *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": ServiceName})
}

// readyCheck reports ready once the store answers a ping.
func (srv *Server) readyCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := srv.store.Ping(ctx); err != nil {
		srv.logger.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": ServiceName})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "service": ServiceName})
}

func (srv *Server) liveCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "service": ServiceName})
}
