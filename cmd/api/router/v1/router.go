package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	qport "go-duet/internal/infrastructure/queue/port"
	"go-duet/internal/infrastructure/realtime"
	httpHandler "go-duet/internal/pkg/dm/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, pool *pgxpool.Pool, rdb *redis.Client, queue qport.Client, registry *realtime.Registry) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, pool, rdb, queue, registry)
}
