package handler

import (
	"context"
	"net/http"
	"time"

	"ventafacil/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports database and Redis reachability plus the number of corte
// jobs waiting in the DLQ. Without Redis the queue fields are omitted and
// redis is "disabled", which is still healthy.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{"db": "connected", "redis": "disabled"}
		healthy := true

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			body["db"] = "error"
			healthy = false
		}

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				body["redis"] = "error"
				healthy = false
			} else {
				body["redis"] = "connected"
				if n, err := worker.DLQLength(ctx, rdb, worker.QueueCorte); err == nil {
					body["corte_dlq"] = n
				}
			}
		}

		body["ok"] = healthy
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	}
}
