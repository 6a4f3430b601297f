package dm

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is the tagged identity of a message. A message carries either a
// LocalToken (client-generated, pending confirmation) or a ServerID
// (store-assigned, confirmed). The two spaces are distinct types so they can
// never be compared across spaces.
type Identity interface {
	isIdentity()
	String() string
}

// LocalToken is the client-side correlation token of a pending message. It is
// only ever matched against the send result it was issued for.
type LocalToken string

func (LocalToken) isIdentity()      {}
func (t LocalToken) String() string { return string(t) }

// ServerID is the store-assigned identity of a confirmed message.
type ServerID string

func (ServerID) isIdentity()       {}
func (id ServerID) String() string { return string(id) }

// Message is one entry in a conversation timeline.
//
// A pending message carries a LocalToken identity and a provisional
// client-assigned CreatedAt; a confirmed message carries a ServerID and the
// store-assigned CreatedAt. Confirmed messages are immutable.
type Message struct {
	Identity       Identity
	ConversationID string
	SenderID       string
	Body           string
	CreatedAt      time.Time
}

// Confirmed reports whether the message carries a server identity.
func (m Message) Confirmed() bool {
	_, ok := m.Identity.(ServerID)
	return ok
}

// ConfirmedID returns the server identity, if the message has one.
func (m Message) ConfirmedID() (ServerID, bool) {
	id, ok := m.Identity.(ServerID)
	return id, ok
}

// PendingToken returns the correlation token, if the message is pending.
func (m Message) PendingToken() (LocalToken, bool) {
	t, ok := m.Identity.(LocalToken)
	return t, ok
}

// NewPending builds a pending message for an outgoing send. The body is
// trimmed; an empty result is rejected before anything reaches the timeline
// or the backend.
func NewPending(conversationID, senderID, body string) (Message, error) {
	if conversationID == "" || senderID == "" {
		return Message{}, ErrInvalidParticipants
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Message{}, ErrEmptyBody
	}
	return Message{
		Identity:       LocalToken(uuid.NewString()),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           trimmed,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// NewConfirmed builds a confirmed message from store-acknowledged fields.
func NewConfirmed(id ServerID, conversationID, senderID, body string, createdAt time.Time) Message {
	return Message{
		Identity:       id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      createdAt,
	}
}
