package timeline

import (
	"errors"
	"sort"

	dm "go-duet/internal/pkg/dm/domain"
)

// Timeline is the in-memory, conversation-scoped message sequence. It merges
// three input streams (initial load, optimistic local sends, push-delivered
// remote inserts) into one deduplicated view.
//
// Layout: a confirmed region kept sorted by (created-at, id), followed by the
// pending region in client send order. Pending entries carry provisional
// timestamps, so their position at the tail reflects observed send order
// rather than a trusted timestamp ordering.
//
// Both reconciliation paths (send result and remote insert) check for the
// other's prior arrival by server id before inserting: whichever path loses
// the race degrades to dropping its side instead of duplicating.
//
// Timeline does no locking. It expects a single logical owner; the session
// controller serializes all mutation.
type Timeline struct {
	conversationID string
	confirmed      []dm.Message
	pending        []dm.Message
}

// ErrNotPending is returned when AppendOptimistic is given a confirmed message.
var ErrNotPending = errors.New("timeline: message is not pending")

// ErrWrongConversation is returned when a message targets another conversation.
var ErrWrongConversation = errors.New("timeline: message belongs to another conversation")

// New creates an empty timeline scoped to one conversation.
func New(conversationID string) *Timeline {
	return &Timeline{conversationID: conversationID}
}

// ConversationID returns the conversation this timeline is scoped to.
func (t *Timeline) ConversationID() string { return t.conversationID }

// LoadInitial replaces the entire timeline with a store-fetched batch.
// Unconfirmed entries in the batch are ignored; duplicates are collapsed.
// Any pending entries held before the load are discarded; a later
// reconciliation for one of them becomes a no-op.
func (t *Timeline) LoadInitial(messages []dm.Message) {
	t.confirmed = t.confirmed[:0]
	t.pending = t.pending[:0]
	for _, m := range messages {
		id, ok := m.ConfirmedID()
		if !ok || m.ConversationID != t.conversationID {
			continue
		}
		if t.containsServerID(id) {
			continue
		}
		t.confirmed = insertConfirmed(t.confirmed, m)
	}
}

// AppendOptimistic places a pending message at the logical end of the
// timeline. The message must carry a local token identity.
func (t *Timeline) AppendOptimistic(m dm.Message) error {
	if m.ConversationID != t.conversationID {
		return ErrWrongConversation
	}
	if _, ok := m.PendingToken(); !ok {
		return ErrNotPending
	}
	t.pending = append(t.pending, m)
	return nil
}

// ReconcileSendSuccess resolves the pending entry for token against the
// confirmed message acknowledged by the store. If the confirmed id is already
// present (the push channel delivered the row first), the pending entry is
// dropped without inserting a duplicate. Returns true if the view changed.
func (t *Timeline) ReconcileSendSuccess(token dm.LocalToken, confirmed dm.Message) bool {
	removed := t.removePending(token)
	id, ok := confirmed.ConfirmedID()
	if !ok || confirmed.ConversationID != t.conversationID {
		return removed
	}
	if t.containsServerID(id) {
		return removed
	}
	t.confirmed = insertConfirmed(t.confirmed, confirmed)
	return true
}

// ReconcileSendFailure withdraws the pending entry for token and returns its
// body so the caller can restore it to the compose input. ok is false when no
// entry with that token remains (e.g. a refresh replaced the timeline).
func (t *Timeline) ReconcileSendFailure(token dm.LocalToken) (body string, ok bool) {
	for _, m := range t.pending {
		if tok, _ := m.PendingToken(); tok == token {
			body = m.Body
			ok = true
			break
		}
	}
	t.removePending(token)
	return body, ok
}

// ApplyRemoteInsert places a push-delivered confirmed message by
// (created-at, id) order. If the id is already present (the local send path
// confirmed it first), the insert is a no-op. Returns true if the view changed.
func (t *Timeline) ApplyRemoteInsert(m dm.Message) bool {
	id, ok := m.ConfirmedID()
	if !ok || m.ConversationID != t.conversationID {
		return false
	}
	if t.containsServerID(id) {
		return false
	}
	t.confirmed = insertConfirmed(t.confirmed, m)
	return true
}

// All returns a snapshot of the timeline: confirmed messages ascending by
// (created-at, id), then pending messages in send order.
func (t *Timeline) All() []dm.Message {
	out := make([]dm.Message, 0, len(t.confirmed)+len(t.pending))
	out = append(out, t.confirmed...)
	out = append(out, t.pending...)
	return out
}

// Len returns the number of entries, pending included.
func (t *Timeline) Len() int { return len(t.confirmed) + len(t.pending) }

func (t *Timeline) containsServerID(id dm.ServerID) bool {
	for _, m := range t.confirmed {
		if got, _ := m.ConfirmedID(); got == id {
			return true
		}
	}
	return false
}

func (t *Timeline) removePending(token dm.LocalToken) bool {
	for i, m := range t.pending {
		if tok, _ := m.PendingToken(); tok == token {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return true
		}
	}
	return false
}

// insertConfirmed merges m into the sorted confirmed region. Callers are
// responsible for the presence check; this function only places.
func insertConfirmed(confirmed []dm.Message, m dm.Message) []dm.Message {
	id, _ := m.ConfirmedID()
	i := sort.Search(len(confirmed), func(i int) bool {
		c := confirmed[i]
		if !c.CreatedAt.Equal(m.CreatedAt) {
			return c.CreatedAt.After(m.CreatedAt)
		}
		cid, _ := c.ConfirmedID()
		return cid > id
	})
	confirmed = append(confirmed, dm.Message{})
	copy(confirmed[i+1:], confirmed[i:])
	confirmed[i] = m
	return confirmed
}
