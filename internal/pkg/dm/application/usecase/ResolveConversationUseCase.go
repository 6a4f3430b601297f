package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	cacheport "go-duet/internal/infrastructure/cache/port"
	qport "go-duet/internal/infrastructure/queue/port"
	"go-duet/internal/pkg/dm/application/task"
	bport "go-duet/internal/pkg/dm/backend/port"
	dm "go-duet/internal/pkg/dm/domain"
)

// ResolveConversationInput carries the two participants of a direct
// conversation. SelfID is the authenticated caller, passed explicitly rather
// than read from ambient session state.
type ResolveConversationInput struct {
	SelfID  string
	OtherID string
}

// ResolveConversationUseCase finds the unique conversation shared by two
// users, creating it and its two memberships on first contact.
// Hexagonal: depends on the backend port only; cache and queue are optional
// collaborators (memoization and orphan compensation).
type ResolveConversationUseCase struct {
	Backend bport.Backend
	Cache   cacheport.Cache // nil disables memoization
	Queue   qport.Client    // nil disables orphan compensation
}

func NewResolveConversationUseCase(backend bport.Backend, cache cacheport.Cache, queue qport.Client) *ResolveConversationUseCase {
	return &ResolveConversationUseCase{Backend: backend, Cache: cache, Queue: queue}
}

// Execute resolves the shared conversation id. Resolution is idempotent and
// symmetric: repeated calls and swapped participants return the same id.
// No automatic retry; every failure is terminal for the attempt.
func (uc *ResolveConversationUseCase) Execute(ctx context.Context, in ResolveConversationInput) (string, error) {
	selfID := strings.TrimSpace(in.SelfID)
	otherID := strings.TrimSpace(in.OtherID)
	if selfID == "" || otherID == "" || selfID == otherID {
		return "", dm.ErrInvalidParticipants
	}

	key := pairKey(selfID, otherID)
	if uc.Cache != nil {
		if id, err := uc.Cache.Get(ctx, key); err == nil && id != "" {
			return id, nil
		}
	}

	mine, err := uc.Backend.MembershipConversationIDs(ctx, selfID)
	if err != nil {
		return "", fmt.Errorf("resolve: list own memberships: %w", err)
	}

	if len(mine) > 0 {
		shared, err := uc.Backend.MembershipConversationIDsIn(ctx, otherID, mine, 1)
		if err != nil {
			return "", fmt.Errorf("resolve: intersect memberships: %w", err)
		}
		if len(shared) > 0 {
			uc.remember(ctx, key, shared[0])
			return shared[0], nil
		}
	}

	conversationID, err := uc.Backend.InsertConversation(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve: create conversation: %w", err)
	}

	if err := uc.Backend.InsertMemberships(ctx, conversationID, []string{selfID, otherID}); err != nil {
		uc.scheduleCleanup(ctx, conversationID)
		return "", fmt.Errorf("resolve: create memberships: %w", err)
	}

	uc.remember(ctx, key, conversationID)
	return conversationID, nil
}

// remember memoizes a resolved pair. Best effort; a cache failure never fails
// the resolution.
func (uc *ResolveConversationUseCase) remember(ctx context.Context, key, conversationID string) {
	if uc.Cache == nil {
		return
	}
	_ = uc.Cache.Set(ctx, key, conversationID, cacheport.NoExpiration)
}

// scheduleCleanup enqueues deletion of a conversation left without its
// membership rows. Best effort: if the queue is down the orphan stays until
// the next resolve attempt creates a fresh conversation anyway.
func (uc *ResolveConversationUseCase) scheduleCleanup(ctx context.Context, conversationID string) {
	if uc.Queue == nil {
		return
	}
	t, err := task.NewCleanupConversationTask(conversationID)
	if err != nil {
		return
	}
	_, _ = uc.Queue.Enqueue(ctx, t, qport.EnqueueOption{Queue: "dm", MaxRetry: 5})
}

// pairKey builds the order-insensitive cache key for a participant pair.
func pairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return "dm:pair:" + ids[0] + "|" + ids[1]
}
