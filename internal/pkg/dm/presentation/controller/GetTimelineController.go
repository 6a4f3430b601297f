package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	backendAdapter "go-duet/internal/pkg/dm/backend/adapter"
	bport "go-duet/internal/pkg/dm/backend/port"
	dm "go-duet/internal/pkg/dm/domain"
)

// GetTimelineController serves the initial-load shape of a conversation:
// the full confirmed history, created-at ascending.
type GetTimelineController struct {
	Backend bport.Backend
}

func NewGetTimelineController(pool *pgxpool.Pool, rdb *redis.Client) *GetTimelineController {
	return &GetTimelineController{Backend: backendAdapter.NewPgBackend(pool, rdb)}
}

// messageView is the JSON shape of one confirmed message.
type messageView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
	Pending        bool      `json:"pending,omitempty"`
}

func toMessageView(m dm.Message) messageView {
	_, pending := m.PendingToken()
	return messageView{
		ID:             m.Identity.String(),
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
		Pending:        pending,
	}
}

func toMessageViews(msgs []dm.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageView(m))
	}
	return out
}

func (h *GetTimelineController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msgs, err := h.Backend.Messages(ctx, conversationID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, dm.ErrBackendUnavailable) {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"conversation_id": conversationID,
			"messages":        toMessageViews(msgs),
		})
	}
}
