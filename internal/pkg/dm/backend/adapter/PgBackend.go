package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	dm "go-duet/internal/pkg/dm/domain"
)

// PgBackend implements the backend port on Postgres (pgx) for queries and
// inserts, with Redis pub/sub as the push channel. InsertMessage publishes
// the confirmed row after a successful insert so subscribers on other
// sessions see it without polling.
type PgBackend struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func NewPgBackend(pool *pgxpool.Pool, rdb *redis.Client) *PgBackend {
	return &PgBackend{pool: pool, rdb: rdb}
}

func (b *PgBackend) MembershipConversationIDs(ctx context.Context, userID string) ([]string, error) {
	if b == nil || b.pool == nil {
		return nil, errors.New("PgBackend: nil pool")
	}
	rows, err := b.pool.Query(ctx, `
		SELECT conversation_id::text
		FROM dm.membership
		WHERE user_id = $1::uuid
	`, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classify(err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err())
	}
	return ids, nil
}

func (b *PgBackend) MembershipConversationIDsIn(ctx context.Context, userID string, within []string, limit int) ([]string, error) {
	if b == nil || b.pool == nil {
		return nil, errors.New("PgBackend: nil pool")
	}
	if len(within) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}
	rows, err := b.pool.Query(ctx, `
		SELECT conversation_id::text
		FROM dm.membership
		WHERE user_id = $1::uuid AND conversation_id = ANY($2::uuid[])
		LIMIT $3
	`, userID, within, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classify(err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err())
	}
	return ids, nil
}

func (b *PgBackend) InsertConversation(ctx context.Context) (string, error) {
	if b == nil || b.pool == nil {
		return "", errors.New("PgBackend: nil pool")
	}
	var id string
	err := b.pool.QueryRow(ctx,
		"INSERT INTO dm.conversation (created_at) VALUES ($1) RETURNING id::text",
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// InsertMemberships writes the rows in one transaction: both or neither.
func (b *PgBackend) InsertMemberships(ctx context.Context, conversationID string, userIDs []string) error {
	if b == nil || b.pool == nil {
		return errors.New("PgBackend: nil pool")
	}
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, userID := range userIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO dm.membership (conversation_id, user_id)
			VALUES ($1::uuid, $2::uuid)
		`, conversationID, userID); err != nil {
			return classify(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (b *PgBackend) DeleteConversation(ctx context.Context, conversationID string) error {
	if b == nil || b.pool == nil {
		return errors.New("PgBackend: nil pool")
	}
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		"DELETE FROM dm.membership WHERE conversation_id = $1::uuid", conversationID); err != nil {
		return classify(err)
	}
	if _, err := tx.Exec(ctx,
		"DELETE FROM dm.conversation WHERE id = $1::uuid", conversationID); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (b *PgBackend) Messages(ctx context.Context, conversationID string) ([]dm.Message, error) {
	if b == nil || b.pool == nil {
		return nil, errors.New("PgBackend: nil pool")
	}
	rows, err := b.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, body, created_at
		FROM dm.message
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var msgs []dm.Message
	for rows.Next() {
		var (
			id, convID, senderID, body string
			createdAt                  time.Time
		)
		if err := rows.Scan(&id, &convID, &senderID, &body, &createdAt); err != nil {
			return nil, classify(err)
		}
		msgs = append(msgs, dm.NewConfirmed(dm.ServerID(id), convID, senderID, body, createdAt))
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err())
	}
	return msgs, nil
}

func (b *PgBackend) InsertMessage(ctx context.Context, conversationID, senderID, body string) (dm.Message, error) {
	if b == nil || b.pool == nil {
		return dm.Message{}, errors.New("PgBackend: nil pool")
	}
	var (
		id        string
		createdAt time.Time
	)
	err := b.pool.QueryRow(ctx, `
		INSERT INTO dm.message (conversation_id, sender_id, body, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		RETURNING id::text, created_at
	`, conversationID, senderID, body, time.Now().UTC()).Scan(&id, &createdAt)
	if err != nil {
		return dm.Message{}, classify(err)
	}

	confirmed := dm.NewConfirmed(dm.ServerID(id), conversationID, senderID, body, createdAt)
	b.publishInsert(ctx, confirmed)
	return confirmed, nil
}
