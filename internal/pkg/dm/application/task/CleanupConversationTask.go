package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	qport "go-duet/internal/infrastructure/queue/port"
	bport "go-duet/internal/pkg/dm/backend/port"
)

// CleanupConversationTaskType is the queue task name for deleting a
// conversation whose membership rows were never written.
const CleanupConversationTaskType = "dm:cleanup_conversation"

// CleanupConversationTaskPayload is the JSON payload transported via the queue.
type CleanupConversationTaskPayload struct {
	ConversationID string `json:"conversationId"`
}

// NewCleanupConversationTask builds the queue task for an orphaned conversation.
func NewCleanupConversationTask(conversationID string) (qport.Task, error) {
	if conversationID == "" {
		return qport.Task{}, errors.New("task: conversation id is required")
	}
	payload, err := json.Marshal(CleanupConversationTaskPayload{ConversationID: conversationID})
	if err != nil {
		return qport.Task{}, err
	}
	return qport.Task{Type: CleanupConversationTaskType, Payload: payload}, nil
}

// RegisterCleanupConversationTask binds the cleanup handler to the server.
// The handler deletes the orphan through the backend port; deletion of an
// already-absent conversation succeeds, so retries are safe.
func RegisterCleanupConversationTask(srv qport.Server, backend bport.Backend) {
	srv.Register(CleanupConversationTaskType, func(ctx context.Context, t qport.Task) error {
		var p CleanupConversationTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: retrying will not fix it
			return err
		}
		if p.ConversationID == "" {
			return errors.New("task: empty conversation id")
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		return backend.DeleteConversation(ctx, p.ConversationID)
	})
}
