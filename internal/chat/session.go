package chat

import (
	"sync"
	"sync/atomic"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

// Conn is one live duplex channel as seen by the core.
type Conn interface {
	ID() string
	// Send queues env for the peer. It must not block on network I/O.
	Send(env Envelope) error
}

// Session binds a connection to its member identity and current room.
type Session struct {
	conn Conn

	mu     sync.Mutex
	token  string
	member *domain.Member
	roomID domain.RoomID
}

func (s *Session) ID() string { return s.conn.ID() }
func (s *Session) Conn() Conn { return s.conn }

// Token is the provisional identity recorded by the gateway.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Member() (domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member == nil {
		return domain.Member{}, false
	}
	return *s.member, true
}

func (s *Session) RoomID() (domain.RoomID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.roomID != ""
}

// recordToken keeps the sender token until an identity is bound. Each frame
// before that overwrites it, so a client whose first token did not resolve
// can retry with another; once bound, tokens are ignored.
func (s *Session) recordToken(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member != nil {
		return false
	}
	s.token = token
	return true
}

func (s *Session) bindMember(m domain.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member == nil {
		s.member = &m
	}
}

func (s *Session) bind(roomID domain.RoomID) (domain.RoomID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.roomID
	s.roomID = roomID
	return prev, prev != ""
}

// unbind clears the room. Only one of several concurrent callers observes
// the previous room.
func (s *Session) unbind() (domain.RoomID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.roomID
	s.roomID = ""
	return prev, prev != ""
}

// SessionRegistry maps connection ids to sessions. Each session carries its
// own lock, so unrelated connections never contend.
type SessionRegistry struct {
	sessions sync.Map // conn id -> *Session
	count    atomic.Int64
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{}
}

// Register returns the session for c, creating it on first call.
func (r *SessionRegistry) Register(c Conn) *Session {
	s, loaded := r.sessions.LoadOrStore(c.ID(), &Session{conn: c})
	if !loaded {
		r.count.Add(1)
	}
	return s.(*Session)
}

func (r *SessionRegistry) Get(connID string) (*Session, bool) {
	s, ok := r.sessions.Load(connID)
	if !ok {
		return nil, false
	}
	return s.(*Session), true
}

// Bind sets the connection's current room and returns the one it replaced.
func (r *SessionRegistry) Bind(connID string, roomID domain.RoomID) (domain.RoomID, bool) {
	s, ok := r.Get(connID)
	if !ok {
		return "", false
	}
	return s.bind(roomID)
}

// Unbind clears the connection's room. A second call reports false.
func (r *SessionRegistry) Unbind(connID string) (domain.RoomID, bool) {
	s, ok := r.Get(connID)
	if !ok {
		return "", false
	}
	return s.unbind()
}

// LookupConnectionByMember scans all sessions. O(n) is accepted at the
// modelled scale; a member id index maintained by bind/unbind would replace it.
func (r *SessionRegistry) LookupConnectionByMember(id domain.MemberID) (*Session, bool) {
	var found *Session
	r.sessions.Range(func(_, v any) bool {
		s := v.(*Session)
		if m, ok := s.Member(); ok && m.ID == id {
			found = s
			return false
		}
		return true
	})
	return found, found != nil
}

// Remove deletes the session. Exactly one caller gets ok=true.
func (r *SessionRegistry) Remove(connID string) (*Session, bool) {
	s, ok := r.sessions.LoadAndDelete(connID)
	if !ok {
		return nil, false
	}
	r.count.Add(-1)
	return s.(*Session), true
}

func (r *SessionRegistry) Len() int {
	return int(r.count.Load())
}
