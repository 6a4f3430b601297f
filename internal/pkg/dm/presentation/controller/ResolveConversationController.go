package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	cacheAdapter "go-duet/internal/infrastructure/cache/adapter"
	cacheport "go-duet/internal/infrastructure/cache/port"
	qport "go-duet/internal/infrastructure/queue/port"
	"go-duet/internal/pkg/dm/application/usecase"
	backendAdapter "go-duet/internal/pkg/dm/backend/adapter"
	dm "go-duet/internal/pkg/dm/domain"
	dirAdapter "go-duet/internal/repository/adapter"
	repository "go-duet/internal/repository/port"
)

// ResolveConversationController handles the resolve endpoint only (one
// controller per endpoint). A failed resolution blocks entry into the
// conversation view; no partial state is returned.
type ResolveConversationController struct {
	UC        *usecase.ResolveConversationUseCase
	Directory repository.UserDirectory
}

func NewResolveConversationController(pool *pgxpool.Pool, rdb *redis.Client, queue qport.Client) *ResolveConversationController {
	backend := backendAdapter.NewPgBackend(pool, rdb)
	var cache cacheport.Cache
	if rdb != nil {
		if c, err := cacheAdapter.NewRedisCache(rdb); err == nil {
			cache = c
		}
	}
	return &ResolveConversationController{
		UC:        usecase.NewResolveConversationUseCase(backend, cache, queue),
		Directory: dirAdapter.NewPgUserDirectory(pool),
	}
}

type resolveConversationRequest struct {
	SelfID  string `json:"self_id" binding:"required"`
	OtherID string `json:"other_id" binding:"required"`
}

// Handle returns a gin handler resolving (or creating) the conversation
// shared by the two users.
func (h *ResolveConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resolveConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		for _, id := range []string{req.SelfID, req.OtherID} {
			if _, err := h.Directory.FindByID(ctx, id); err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"error": "unknown user: " + id})
					return
				}
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
		}

		conversationID, err := h.UC.Execute(ctx, usecase.ResolveConversationInput{
			SelfID:  req.SelfID,
			OtherID: req.OtherID,
		})
		if err != nil {
			c.JSON(resolveStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID})
	}
}

func resolveStatus(err error) int {
	switch {
	case errors.Is(err, dm.ErrInvalidParticipants):
		return http.StatusBadRequest
	case errors.Is(err, dm.ErrBackendRejected):
		return http.StatusConflict
	case errors.Is(err, dm.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
