package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	qport "go-duet/internal/infrastructure/queue/port"
	"go-duet/internal/infrastructure/realtime"
	"go-duet/internal/pkg/dm/presentation/controller"
)

// RegisterRoutes registers direct-messaging endpoints under the given router
// group. It constructs per-endpoint controllers and binds them directly.
func RegisterRoutes(g *gin.RouterGroup, pool *pgxpool.Pool, rdb *redis.Client, queue qport.Client, registry *realtime.Registry) {
	resolveCtl := controller.NewResolveConversationController(pool, rdb, queue)
	timelineCtl := controller.NewGetTimelineController(pool, rdb)
	sendCtl := controller.NewSendMessageController(pool, rdb)
	socketCtl := controller.NewDmSocketController(pool, rdb, queue, registry)

	// POST /api/v1/dm/resolve -> find or create the shared conversation
	g.POST("/dm/resolve", resolveCtl.Handle())

	// GET /api/v1/dm/:conversationId/messages -> full confirmed history
	g.GET("/dm/:conversationId/messages", timelineCtl.Handle())

	// POST /api/v1/dm/:conversationId/messages -> plain REST send
	g.POST("/dm/:conversationId/messages", sendCtl.Handle())

	// GET /api/v1/dm/ws -> websocket endpoint carrying the live view
	g.GET("/dm/ws", socketCtl.Handle())
}
