package dm

import "time"

// Conversation is the shared channel between exactly two users. The id is
// store-assigned and immutable once created.
type Conversation struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

// Membership links one user to a conversation.
// Primary key: (ConversationID, UserID). The two rows of a conversation are
// written together or not at all.
type Membership struct {
	ConversationID string `db:"conversation_id"`
	UserID         string `db:"user_id"`
}
