package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheport "go-duet/internal/infrastructure/cache/port"
	qport "go-duet/internal/infrastructure/queue/port"
	"go-duet/internal/pkg/dm/application/task"
	bport "go-duet/internal/pkg/dm/backend/port"
	dm "go-duet/internal/pkg/dm/domain"
)

// fakeBackend is an in-memory backend port for resolver tests.
type fakeBackend struct {
	nextConv       int
	memberships    map[string][]string // userID -> conversation ids
	conversations  map[string]bool
	deleted        []string
	listCalls      int
	insertConvErr  error
	membershipsErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		memberships:   make(map[string][]string),
		conversations: make(map[string]bool),
	}
}

func (f *fakeBackend) MembershipConversationIDs(ctx context.Context, userID string) ([]string, error) {
	f.listCalls++
	return f.memberships[userID], nil
}

func (f *fakeBackend) MembershipConversationIDsIn(ctx context.Context, userID string, within []string, limit int) ([]string, error) {
	f.listCalls++
	set := make(map[string]bool, len(within))
	for _, id := range within {
		set[id] = true
	}
	var out []string
	for _, id := range f.memberships[userID] {
		if set[id] {
			out = append(out, id)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeBackend) InsertConversation(ctx context.Context) (string, error) {
	if f.insertConvErr != nil {
		return "", f.insertConvErr
	}
	f.nextConv++
	id := fmt.Sprintf("conv-%d", f.nextConv)
	f.conversations[id] = true
	return id, nil
}

func (f *fakeBackend) InsertMemberships(ctx context.Context, conversationID string, userIDs []string) error {
	if f.membershipsErr != nil {
		return f.membershipsErr
	}
	for _, userID := range userIDs {
		f.memberships[userID] = append(f.memberships[userID], conversationID)
	}
	return nil
}

func (f *fakeBackend) DeleteConversation(ctx context.Context, conversationID string) error {
	delete(f.conversations, conversationID)
	f.deleted = append(f.deleted, conversationID)
	return nil
}

func (f *fakeBackend) Messages(ctx context.Context, conversationID string) ([]dm.Message, error) {
	return nil, nil
}

func (f *fakeBackend) InsertMessage(ctx context.Context, conversationID, senderID, body string) (dm.Message, error) {
	return dm.Message{}, nil
}

func (f *fakeBackend) SubscribeInserts(ctx context.Context, conversationID string, onInsert func(dm.Message)) (bport.Subscription, error) {
	return nil, nil
}

// fakeCache is a map-backed cache port.
type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{values: make(map[string]string)} }

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", cacheport.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeCache) Close() error { return nil }

// fakeQueue records enqueued tasks.
type fakeQueue struct {
	tasks []qport.Task
}

func (f *fakeQueue) Enqueue(ctx context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	f.tasks = append(f.tasks, t)
	return fmt.Sprintf("task-%d", len(f.tasks)), nil
}

func (f *fakeQueue) Close() error { return nil }

func TestResolve_CreatesConversationOnFirstContact(t *testing.T) {
	backend := newFakeBackend()
	uc := NewResolveConversationUseCase(backend, nil, nil)

	id, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u1", OtherID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", id)
	assert.Equal(t, []string{"conv-1"}, backend.memberships["u1"])
	assert.Equal(t, []string{"conv-1"}, backend.memberships["u2"])
}

func TestResolve_IsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	uc := NewResolveConversationUseCase(backend, nil, nil)

	first, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u1", OtherID: "u2"})
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u1", OtherID: "u2"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, backend.conversations, 1)
	assert.Len(t, backend.memberships["u1"], 1)
	assert.Len(t, backend.memberships["u2"], 1)
}

func TestResolve_IsSymmetric(t *testing.T) {
	backend := newFakeBackend()
	uc := NewResolveConversationUseCase(backend, nil, nil)

	ab, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u1", OtherID: "u2"})
	require.NoError(t, err)

	ba, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u2", OtherID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Len(t, backend.conversations, 1)
}

func TestResolve_DoesNotMatchUnrelatedConversations(t *testing.T) {
	backend := newFakeBackend()
	uc := NewResolveConversationUseCase(backend, nil, nil)

	// u1 already talks to u3; resolving u1-u2 must not reuse that thread.
	_, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u1", OtherID: "u3"})
	require.NoError(t, err)

	id, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u1", OtherID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "conv-2", id)
	assert.Len(t, backend.conversations, 2)
}

func TestResolve_RejectsInvalidParticipants(t *testing.T) {
	uc := NewResolveConversationUseCase(newFakeBackend(), nil, nil)

	cases := []ResolveConversationInput{
		{SelfID: "u1", OtherID: "u1"},
		{SelfID: "", OtherID: "u2"},
		{SelfID: "u1", OtherID: ""},
		{SelfID: "  ", OtherID: "u2"},
	}
	for _, in := range cases {
		_, err := uc.Execute(context.Background(), in)
		assert.ErrorIs(t, err, dm.ErrInvalidParticipants, "input %+v", in)
	}
}

func TestResolve_MembershipFailureSchedulesCleanup(t *testing.T) {
	backend := newFakeBackend()
	backend.membershipsErr = fmt.Errorf("%w: connection reset", dm.ErrBackendUnavailable)
	queue := &fakeQueue{}
	uc := NewResolveConversationUseCase(backend, nil, queue)

	_, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u1", OtherID: "u2"})
	require.ErrorIs(t, err, dm.ErrBackendUnavailable)

	// No membership row became visible, and exactly one cleanup was queued
	// for the orphaned conversation.
	assert.Empty(t, backend.memberships["u1"])
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, task.CleanupConversationTaskType, queue.tasks[0].Type)

	var payload task.CleanupConversationTaskPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload, &payload))
	assert.Equal(t, "conv-1", payload.ConversationID)
}

func TestResolve_CacheHitSkipsBackend(t *testing.T) {
	backend := newFakeBackend()
	cache := newFakeCache()
	uc := NewResolveConversationUseCase(backend, cache, nil)

	id, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u1", OtherID: "u2"})
	require.NoError(t, err)
	callsAfterFirst := backend.listCalls

	again, err := uc.Execute(context.Background(), ResolveConversationInput{SelfID: "u2", OtherID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, id, again)
	assert.Equal(t, callsAfterFirst, backend.listCalls, "cache hit must not touch the backend")
}
