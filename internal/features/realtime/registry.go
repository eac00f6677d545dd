package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn is the slice of a websocket connection the registry needs.
// *websocket.Conn satisfies it; tests supply fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// TextMessage mirrors the websocket text frame opcode.
const TextMessage = 1

// sendBuffer bounds the per-connection outbound queue. A connection that
// falls this far behind starts losing frames; the durable notification
// record is the recovery path.
const sendBuffer = 32

// Session is one live, authenticated connection. Each session owns a
// writer goroutine so a slow socket never stalls dispatch to anyone else.
type Session struct {
	ID     string
	UserID string

	conn Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newSession(userID string, conn Conn) *Session {
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

// writeLoop drains the send queue onto the socket. It exits when the
// session is closed or the socket errors out.
func (s *Session) writeLoop(log *zap.Logger) {
	for msg := range s.send {
		if err := s.conn.WriteMessage(TextMessage, msg); err != nil {
			log.Warn("websocket write failed",
				zap.String("connectionId", s.ID),
				zap.String("userId", s.UserID),
				zap.Error(err))
			return
		}
	}
}

// enqueue queues a frame unless the session is closed or its buffer is
// full. The mutex keeps the send channel from being closed mid-enqueue.
func (s *Session) enqueue(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()

	s.conn.Close()
}

// SessionRegistry maps a user identity to its set of live connections.
// It is constructed once at startup and injected wherever pushes originate.
type SessionRegistry struct {
	mu     sync.RWMutex
	groups map[string]map[string]*Session // userID -> connectionID -> session
	log    *zap.Logger
}

func NewSessionRegistry(log *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		groups: make(map[string]map[string]*Session),
		log:    log,
	}
}

// Add admits an authenticated connection into the identity's group and
// starts its writer. Every call mints a new session with its own
// connection id; the registry never sees the same session twice.
func (r *SessionRegistry) Add(userID string, conn Conn) *Session {
	sess := newSession(userID, conn)

	r.mu.Lock()
	group, ok := r.groups[userID]
	if !ok {
		group = make(map[string]*Session)
		r.groups[userID] = group
	}
	group[sess.ID] = sess
	r.mu.Unlock()

	go sess.writeLoop(r.log)

	r.log.Info("websocket session opened",
		zap.String("connectionId", sess.ID),
		zap.String("userId", userID))
	return sess
}

// Remove drops a connection from its group and closes it. Safe to call
// more than once for the same session.
func (r *SessionRegistry) Remove(sess *Session) {
	r.mu.Lock()
	if group, ok := r.groups[sess.UserID]; ok {
		delete(group, sess.ID)
		if len(group) == 0 {
			delete(r.groups, sess.UserID)
		}
	}
	r.mu.Unlock()

	sess.close()

	r.log.Info("websocket session closed",
		zap.String("connectionId", sess.ID),
		zap.String("userId", sess.UserID))
}

// SendToUser queues payload on every live connection for the identity.
// No connections is a silent no-op. A full per-connection queue drops the
// frame for that connection only.
func (r *SessionRegistry) SendToUser(userID string, payload []byte) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.groups[userID]))
	for _, sess := range r.groups[userID] {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	for _, sess := range sessions {
		r.enqueue(sess, payload)
	}
}

// Broadcast queues payload on every live connection regardless of identity.
func (r *SessionRegistry) Broadcast(payload []byte) {
	r.mu.RLock()
	sessions := make([]*Session, 0)
	for _, group := range r.groups {
		for _, sess := range group {
			sessions = append(sessions, sess)
		}
	}
	r.mu.RUnlock()

	for _, sess := range sessions {
		r.enqueue(sess, payload)
	}
}

func (r *SessionRegistry) enqueue(sess *Session, payload []byte) {
	if !sess.enqueue(payload) {
		r.log.Warn("dropping frame for slow or closed connection",
			zap.String("connectionId", sess.ID),
			zap.String("userId", sess.UserID))
	}
}

// Connections reports the number of live connections for an identity.
func (r *SessionRegistry) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[userID])
}

// CloseAll tears down every session. Called on shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0)
	for _, group := range r.groups {
		for _, sess := range group {
			sessions = append(sessions, sess)
		}
	}
	r.groups = make(map[string]map[string]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}
