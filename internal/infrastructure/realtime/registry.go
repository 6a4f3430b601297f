package realtime

import "sync"

// Registry tracks the active view connection per user. A user gets exactly
// one live socket; attaching a new one replaces and closes the previous
// session. Conversation fan-out is not handled here: push delivery per
// conversation travels over the backend's push channel, so the registry only
// needs user-level bookkeeping.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection // sessionID -> connection
	userSessions map[string]string      // userID -> sessionID
}

// NewRegistry constructs an initialized Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[string]string),
	}
}

// Attach registers a connection for the given user, replacing any previous
// session after the swap so there is never more than one active socket.
func (r *Registry) Attach(conn *Connection) {
	var previous *Connection

	r.mu.Lock()
	if existingID, ok := r.userSessions[conn.UserID]; ok {
		if existing := r.sessions[existingID]; existing != nil {
			previous = existing
			delete(r.sessions, existingID)
		}
	}
	r.sessions[conn.ID] = conn
	r.userSessions[conn.UserID] = conn.ID
	r.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes a connection if it is still tracked.
func (r *Registry) Detach(conn *Connection) {
	r.mu.Lock()
	if _, ok := r.sessions[conn.ID]; ok {
		delete(r.sessions, conn.ID)
		if current, ok := r.userSessions[conn.UserID]; ok && current == conn.ID {
			delete(r.userSessions, conn.UserID)
		}
	}
	r.mu.Unlock()
}

// Connection returns the active connection of the given user, if any.
func (r *Registry) Connection(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessionID, ok := r.userSessions[userID]
	if !ok {
		return nil, false
	}
	conn := r.sessions[sessionID]
	return conn, conn != nil
}

// Close terminates all tracked connections and clears registry state.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		conns = append(conns, conn)
	}
	r.sessions = make(map[string]*Connection)
	r.userSessions = make(map[string]string)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(1001, "registry shutdown")
	}
}
