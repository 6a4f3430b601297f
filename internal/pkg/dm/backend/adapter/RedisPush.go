package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	"go-duet/internal/pkg/dm/backend/port"
	dm "go-duet/internal/pkg/dm/domain"
)

// pushChannel names the pub/sub channel carrying insert events for one
// conversation. Subscribing to the channel is the subscription scope; events
// are already filtered per conversation on the publishing side.
func pushChannel(conversationID string) string {
	return "dm:conversation:" + conversationID + ":inserts"
}

// pushEnvelope is the wire form of a confirmed message on the push channel.
type pushEnvelope struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func encodePushEnvelope(m dm.Message) ([]byte, error) {
	id, ok := m.ConfirmedID()
	if !ok {
		return nil, errors.New("push: refusing to publish a pending message")
	}
	return json.Marshal(pushEnvelope{
		ID:             string(id),
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	})
}

func decodePushEnvelope(payload []byte) (dm.Message, error) {
	var env pushEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return dm.Message{}, fmt.Errorf("push: decode envelope: %w", err)
	}
	if env.ID == "" || env.ConversationID == "" {
		return dm.Message{}, errors.New("push: envelope missing identity")
	}
	return dm.NewConfirmed(dm.ServerID(env.ID), env.ConversationID, env.SenderID, env.Body, env.CreatedAt), nil
}

// publishInsert pushes a confirmed row to subscribers. Best effort: a failed
// publish does not undo the insert; the row surfaces on the next load.
func (b *PgBackend) publishInsert(ctx context.Context, m dm.Message) {
	if b.rdb == nil {
		return
	}
	payload, err := encodePushEnvelope(m)
	if err != nil {
		return
	}
	if err := b.rdb.Publish(ctx, pushChannel(m.ConversationID), payload).Err(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "push publish error: conversation=%s err=%v\n", m.ConversationID, err)
	}
}

// SubscribeInserts opens the push channel for the conversation and pumps
// decoded events into onInsert until the subscription is closed.
func (b *PgBackend) SubscribeInserts(ctx context.Context, conversationID string, onInsert func(dm.Message)) (port.Subscription, error) {
	if b == nil || b.rdb == nil {
		return nil, errors.New("PgBackend: nil redis client")
	}
	sub := b.rdb.Subscribe(ctx, pushChannel(conversationID))

	// Force the subscribe round-trip so a dead broker fails here, not later.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: %v", dm.ErrBackendUnavailable, err)
	}

	s := &redisSubscription{sub: sub}
	go s.pump(onInsert)
	return s, nil
}

type redisSubscription struct {
	sub *redis.PubSub
}

// pump delivers decoded envelopes until the underlying channel closes.
func (s *redisSubscription) pump(onInsert func(dm.Message)) {
	for raw := range s.sub.Channel() {
		m, err := decodePushEnvelope([]byte(raw.Payload))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "push decode error: %v\n", err)
			continue
		}
		onInsert(m)
	}
}

func (s *redisSubscription) Close() error {
	return s.sub.Close()
}
