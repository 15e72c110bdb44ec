package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/pkg/response"
)

// Health returns a readiness payload that includes a database ping.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		if db != nil {
			if sqlDB, err := db.DB(); err != nil {
				dbStatus = "error"
			} else if err := sqlDB.PingContext(requestContext(c)); err != nil {
				dbStatus = "error"
			}
		}

		if dbStatus != "ok" {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Success: false,
				Data:    gin.H{"status": "degraded", "database": dbStatus},
			})
			return
		}

		response.Success(c, http.StatusOK, gin.H{
			"status":   "ok",
			"database": dbStatus,
		})
	}
}
