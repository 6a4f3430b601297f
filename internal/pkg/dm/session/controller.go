package session

import (
	"context"
	"errors"
	"sync"

	bport "go-duet/internal/pkg/dm/backend/port"
	dm "go-duet/internal/pkg/dm/domain"
	"go-duet/internal/pkg/dm/timeline"
)

// State is the lifecycle phase of one conversation activation.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrNotLive is returned by Send when the controller is not accepting sends.
	ErrNotLive = errors.New("session: conversation view is not live")

	// ErrAlreadyActivated is returned by Activate after the first activation.
	ErrAlreadyActivated = errors.New("session: controller already activated")
)

// ViewListener receives the continuously-updated read-only view of the
// timeline. Callbacks run while the controller holds its internal lock;
// implementations must not call back into the controller and should hand the
// payload off quickly (e.g. enqueue on a buffered connection).
type ViewListener interface {
	// OnTimeline delivers a fresh snapshot after every accepted mutation.
	OnTimeline(conversationID string, messages []dm.Message)

	// OnSendFailed reports a withdrawn optimistic send; body is the original
	// text so it can be restored to the compose input.
	OnSendFailed(conversationID string, body string, cause error)

	// OnSyncError reports a failed load or subscription attempt. The
	// controller performs no automatic retry; Refresh re-attempts the load.
	OnSyncError(conversationID string, err error)
}

// Controller drives one conversation activation against the backend port:
// initial load, exactly one push subscription, optimistic sends and their
// reconciliation, refresh, and teardown.
//
// Every backend call runs on its own goroutine; its completion re-acquires
// the lock and re-checks state, so effects landing after Close are discarded
// without touching the timeline. The timeline itself is only ever mutated
// under this serialization.
type Controller struct {
	backend        bport.Backend
	conversationID string
	selfID         string
	listener       ViewListener

	mu          sync.Mutex
	state       State
	timeline    *timeline.Timeline
	sub         bport.Subscription
	subscribing bool
}

// New builds an idle controller for one (user, conversation) activation.
func New(backend bport.Backend, conversationID, selfID string, listener ViewListener) *Controller {
	return &Controller{
		backend:        backend,
		conversationID: conversationID,
		selfID:         selfID,
		listener:       listener,
		state:          StateIdle,
		timeline:       timeline.New(conversationID),
	}
}

// ConversationID returns the conversation this controller is bound to.
func (c *Controller) ConversationID() string { return c.conversationID }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current timeline view.
func (c *Controller) Snapshot() []dm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline.All()
}

// Activate transitions Idle -> Loading and starts the initial load. Once the
// load completes (success or empty) the controller goes Live and opens the
// push subscription for the conversation.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyActivated
	}
	c.state = StateLoading
	c.mu.Unlock()

	go c.load(ctx)
	return nil
}

// Refresh re-runs the initial load without touching the subscription. Valid
// while Live; a refresh during Loading is coalesced into the one in flight.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateLive {
		c.mu.Unlock()
		return
	}
	c.state = StateLoading
	c.mu.Unlock()

	go c.load(ctx)
}

// Send validates the body, appends an optimistic pending entry, and issues
// the backend insert. The eventual result reconciles the pending entry:
// success swaps it for the confirmed row (unless the push channel already
// delivered it), failure withdraws it and reports the body via OnSendFailed.
func (c *Controller) Send(ctx context.Context, body string) error {
	pending, err := dm.NewPending(c.conversationID, c.selfID, body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateLive {
		c.mu.Unlock()
		return ErrNotLive
	}
	if err := c.timeline.AppendOptimistic(pending); err != nil {
		c.mu.Unlock()
		return err
	}
	c.notifyLocked()
	c.mu.Unlock()

	token, _ := pending.PendingToken()
	go c.insert(ctx, token, pending.Body)
	return nil
}

// Close transitions to Closed and tears down the subscription. In-flight
// backend calls are not cancelled; their effects are discarded on arrival.
// Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
}

func (c *Controller) load(ctx context.Context) {
	messages, err := c.backend.Messages(ctx, c.conversationID)

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		// A failed refresh keeps the live view and subscription; a failed
		// first load returns to Idle so the caller may activate again.
		if c.sub != nil || c.subscribing {
			c.state = StateLive
		} else {
			c.state = StateIdle
		}
		c.listener.OnSyncError(c.conversationID, err)
		c.mu.Unlock()
		return
	}

	c.timeline.LoadInitial(messages)
	c.state = StateLive
	// Claim the subscription slot under the same lock so a refresh that
	// completes while an earlier attempt is still in flight does not open a
	// second one.
	needSub := c.sub == nil && !c.subscribing
	if needSub {
		c.subscribing = true
	}
	c.notifyLocked()
	c.mu.Unlock()

	if needSub {
		c.subscribe(ctx)
	}
}

func (c *Controller) subscribe(ctx context.Context) {
	sub, err := c.backend.SubscribeInserts(ctx, c.conversationID, c.onRemoteInsert)

	c.mu.Lock()
	c.subscribing = false
	if c.state == StateClosed {
		c.mu.Unlock()
		if err == nil {
			_ = sub.Close()
		}
		return
	}
	if err != nil {
		c.listener.OnSyncError(c.conversationID, err)
		c.mu.Unlock()
		return
	}
	c.sub = sub
	c.mu.Unlock()
}

func (c *Controller) insert(ctx context.Context, token dm.LocalToken, body string) {
	confirmed, err := c.backend.InsertMessage(ctx, c.conversationID, c.selfID, body)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	if err != nil {
		original, ok := c.timeline.ReconcileSendFailure(token)
		if !ok {
			original = body
		}
		c.notifyLocked()
		c.listener.OnSendFailed(c.conversationID, original, err)
		return
	}
	if c.timeline.ReconcileSendSuccess(token, confirmed) {
		c.notifyLocked()
	}
}

func (c *Controller) onRemoteInsert(m dm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	if c.timeline.ApplyRemoteInsert(m) {
		c.notifyLocked()
	}
}

func (c *Controller) notifyLocked() {
	if c.listener == nil {
		return
	}
	c.listener.OnTimeline(c.conversationID, c.timeline.All())
}
