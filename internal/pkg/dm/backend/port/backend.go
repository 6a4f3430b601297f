package port

import (
	"context"

	dm "go-duet/internal/pkg/dm/domain"
)

// Subscription is an open push channel for one conversation. Closing it stops
// delivery; callbacks never fire after Close returns the pump has drained.
type Subscription interface {
	Close() error
}

// Backend is the access port to the remote data store. It is the only
// boundary the resolver, timeline and session controller depend on.
//
// Failure contract: implementations classify every failure as either
// dm.ErrBackendUnavailable (transient) or dm.ErrBackendRejected (constraint
// violation), wrapped so callers can test with errors.Is.
type Backend interface {
	// MembershipConversationIDs returns ids of every conversation the user is
	// a member of.
	MembershipConversationIDs(ctx context.Context, userID string) ([]string, error)

	// MembershipConversationIDsIn returns ids of conversations the user is a
	// member of, restricted to the given candidate set, up to limit results.
	MembershipConversationIDsIn(ctx context.Context, userID string, within []string, limit int) ([]string, error)

	// InsertConversation creates an empty conversation and returns its id.
	InsertConversation(ctx context.Context) (string, error)

	// InsertMemberships writes one membership row per user for the
	// conversation. The rows are written atomically: all or none.
	InsertMemberships(ctx context.Context, conversationID string, userIDs []string) error

	// DeleteConversation removes a conversation and any membership rows it
	// has. Deleting an absent conversation is not an error.
	DeleteConversation(ctx context.Context, conversationID string) error

	// Messages returns the full confirmed history of the conversation,
	// ordered by created-at ascending (ties by id).
	Messages(ctx context.Context, conversationID string) ([]dm.Message, error)

	// InsertMessage persists a new message and returns the confirmed row with
	// its store-assigned identity and timestamp.
	InsertMessage(ctx context.Context, conversationID, senderID, body string) (dm.Message, error)

	// SubscribeInserts opens the push channel for the conversation. onInsert
	// is invoked once per confirmed message inserted by any participant;
	// delivery order is not guaranteed to match send order.
	SubscribeInserts(ctx context.Context, conversationID string, onInsert func(dm.Message)) (Subscription, error)
}
