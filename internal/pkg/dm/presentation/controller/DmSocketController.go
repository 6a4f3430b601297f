package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	cacheAdapter "go-duet/internal/infrastructure/cache/adapter"
	cacheport "go-duet/internal/infrastructure/cache/port"
	qport "go-duet/internal/infrastructure/queue/port"
	"go-duet/internal/infrastructure/realtime"
	"go-duet/internal/pkg/dm/application/usecase"
	backendAdapter "go-duet/internal/pkg/dm/backend/adapter"
	bport "go-duet/internal/pkg/dm/backend/port"
	dm "go-duet/internal/pkg/dm/domain"
	"go-duet/internal/pkg/dm/session"
)

// DmSocketController handles the websocket endpoint carrying the live
// conversation view. Each socket holds at most one active session controller
// at a time; opening a conversation while another is active closes the
// previous one first, so the push subscription keeps its 1:1 ownership.
type DmSocketController struct {
	registry  *realtime.Registry
	backend   bport.Backend
	resolveUC *usecase.ResolveConversationUseCase
}

func NewDmSocketController(pool *pgxpool.Pool, rdb *redis.Client, queue qport.Client, registry *realtime.Registry) *DmSocketController {
	backend := backendAdapter.NewPgBackend(pool, rdb)
	var cache cacheport.Cache
	if rdb != nil {
		if c, err := cacheAdapter.NewRedisCache(rdb); err == nil {
			cache = c
		}
	}
	return &DmSocketController{
		registry:  registry,
		backend:   backend,
		resolveUC: usecase.NewResolveConversationUseCase(backend, cache, queue),
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

type inboundFrame struct {
	Type        string `json:"type"`
	OtherUserID string `json:"other_user_id,omitempty"`
	Body        string `json:"body,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type timelineFrame struct {
	Type           string        `json:"type"`
	ConversationID string        `json:"conversation_id"`
	Messages       []messageView `json:"messages"`
}

type sendFailedFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
	Error          string `json:"error"`
}

const defaultReadTimeout = 60 * time.Second

// socketView forwards session callbacks to the websocket connection. The
// session controller invokes these under its own lock; Connection.Send only
// enqueues on a buffered channel, so handing off here is cheap and never
// calls back into the controller.
type socketView struct {
	conn *realtime.Connection
}

func (v *socketView) OnTimeline(conversationID string, messages []dm.Message) {
	_ = v.conn.SendJSON(timelineFrame{
		Type:           "timeline",
		ConversationID: conversationID,
		Messages:       toMessageViews(messages),
	})
}

func (v *socketView) OnSendFailed(conversationID string, body string, cause error) {
	_ = v.conn.SendJSON(sendFailedFrame{
		Type:           "send_failed",
		ConversationID: conversationID,
		Body:           body,
		Error:          cause.Error(),
	})
}

func (v *socketView) OnSyncError(conversationID string, err error) {
	_ = v.conn.SendJSON(errorFrame{Type: "error", Code: "sync_error", Error: err.Error()})
}

// Handle upgrades the HTTP connection and processes frames until the client
// disconnects. Frame types: open, send, refresh, close.
func (ctl *DmSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.registry.Attach(conn)

		sess := &socketSession{
			ctl:    ctl,
			conn:   conn,
			userID: userID,
		}
		defer func() {
			sess.closeActive()
			ctl.registry.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		_ = conn.SendJSON(ackFrame{Type: "connected"})

		for {
			var frame inboundFrame
			if err := ws.ReadJSON(&frame); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				sess.replyError("read_error", err.Error())
				return
			}

			switch frame.Type {
			case "open":
				sess.handleOpen(c, frame)
			case "send":
				sess.handleSend(c, frame)
			case "refresh":
				sess.handleRefresh(c)
			case "close":
				sess.handleClose()
			default:
				sess.replyError("unsupported_type", "unknown frame type")
			}
		}
	}
}

// socketSession is the per-socket state: at most one live controller.
type socketSession struct {
	ctl    *DmSocketController
	conn   *realtime.Connection
	userID string

	mu     sync.Mutex
	active *session.Controller
}

func (s *socketSession) handleOpen(c *gin.Context, frame inboundFrame) {
	if frame.OtherUserID == "" {
		s.replyError("bad_request", "other_user_id is required")
		return
	}

	conversationID, err := s.ctl.resolveUC.Execute(c.Request.Context(), usecase.ResolveConversationInput{
		SelfID:  s.userID,
		OtherID: frame.OtherUserID,
	})
	if err != nil {
		// Resolution failure blocks entry into the conversation view.
		s.replyError(resolveCode(err), err.Error())
		return
	}

	s.closeActive()

	ctrl := session.New(s.ctl.backend, conversationID, s.userID, &socketView{conn: s.conn})
	s.mu.Lock()
	s.active = ctrl
	s.mu.Unlock()

	// Detached from the request context: the activation outlives this frame.
	if err := ctrl.Activate(context.Background()); err != nil {
		s.replyError("activate_failed", err.Error())
		return
	}

	_ = s.conn.SendJSON(ackFrame{Type: "opened", ConversationID: conversationID})
}

func (s *socketSession) handleSend(c *gin.Context, frame inboundFrame) {
	ctrl := s.activeController()
	if ctrl == nil {
		s.replyError("no_conversation", "open a conversation before sending")
		return
	}
	if err := ctrl.Send(context.Background(), frame.Body); err != nil {
		code := "send_rejected"
		if errors.Is(err, dm.ErrEmptyBody) {
			code = "empty_body"
		}
		s.replyError(code, err.Error())
	}
}

func (s *socketSession) handleRefresh(c *gin.Context) {
	if ctrl := s.activeController(); ctrl != nil {
		ctrl.Refresh(context.Background())
	}
}

func (s *socketSession) handleClose() {
	s.closeActive()
	_ = s.conn.SendJSON(ackFrame{Type: "closed"})
}

func (s *socketSession) activeController() *session.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *socketSession) closeActive() {
	s.mu.Lock()
	ctrl := s.active
	s.active = nil
	s.mu.Unlock()
	if ctrl != nil {
		ctrl.Close()
	}
}

func (s *socketSession) replyError(code, msg string) {
	_ = s.conn.SendJSON(errorFrame{Type: "error", Code: code, Error: msg})
}

func resolveCode(err error) string {
	switch {
	case errors.Is(err, dm.ErrInvalidParticipants):
		return "invalid_participants"
	case errors.Is(err, dm.ErrBackendRejected):
		return "backend_rejected"
	case errors.Is(err, dm.ErrBackendUnavailable):
		return "backend_unavailable"
	default:
		return "resolve_failed"
	}
}
