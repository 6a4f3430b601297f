package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	backendAdapter "go-duet/internal/pkg/dm/backend/adapter"
	bport "go-duet/internal/pkg/dm/backend/port"
	dm "go-duet/internal/pkg/dm/domain"
)

// SendMessageController handles the plain REST send path: a direct insert
// through the backend port. The optimistic send path lives on the socket,
// where a timeline is held per activation.
type SendMessageController struct {
	Backend bport.Backend
}

func NewSendMessageController(pool *pgxpool.Pool, rdb *redis.Client) *SendMessageController {
	return &SendMessageController{Backend: backendAdapter.NewPgBackend(pool, rdb)}
}

type sendMessageRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
	Body     string `json:"body" binding:"required"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		body := strings.TrimSpace(req.Body)
		if body == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": dm.ErrEmptyBody.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msg, err := h.Backend.InsertMessage(ctx, conversationID, req.SenderID, body)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, dm.ErrBackendRejected):
				status = http.StatusConflict
			case errors.Is(err, dm.ErrBackendUnavailable):
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, toMessageView(msg))
	}
}
