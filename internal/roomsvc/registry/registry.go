// Package registry tracks live websocket connections, who they are and which
// room they occupy.
package registry

import (
	"sync"

	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
)

type Role string

const (
	RoleNone     Role = ""
	RoleOperator Role = "operator"
	RolePlayer   Role = "player"
)

// Identity is an authenticated operator account attached to a connection.
type Identity struct {
	Email      string
	Name       string
	SuperAdmin bool
}

type Session struct {
	ID string
	IP string

	mu       sync.Mutex
	role     Role
	roomCode string
	operator *Identity
	send     chan []byte
	closed   bool
}

func NewSession(id, ip string, sendBuffer int) *Session {
	return &Session{
		ID:   id,
		IP:   ip,
		send: make(chan []byte, sendBuffer),
	}
}

// Outbox is drained by the connection's write pump.
func (s *Session) Outbox() <-chan []byte {
	return s.send
}

// Enqueue never blocks: a full or closed queue drops the frame and reports false.
func (s *Session) Enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode
}

func (s *Session) Operator() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.operator == nil {
		return nil
	}
	id := *s.operator
	return &id
}

func (s *Session) SetOperator(id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operator = id
}

type Registry struct {
	sessions sync.Map // socketId -> *Session
}

func New() *Registry {
	return &Registry{}
}

func (r *Registry) Store(s *Session) {
	r.sessions.Store(s.ID, s)
}

func (r *Registry) Get(socketId string) (*Session, bool) {
	s, ok := r.sessions.Load(socketId)
	if !ok {
		return nil, false
	}
	return s.(*Session), true
}

func (r *Registry) Delete(socketId string) {
	r.sessions.Delete(socketId)
}

func (r *Registry) Count() int {
	count := 0
	r.sessions.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// Bind attaches a connection to a room with the given role. A connection
// occupies at most one room.
func (r *Registry) Bind(socketId string, role Role, roomCode string) error {
	s, ok := r.Get(socketId)
	if !ok {
		return apperr.New(apperr.KindNotFound, "connection_not_found", "connection is gone")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomCode != "" {
		return apperr.ErrAlreadyInRoom
	}
	s.role = role
	s.roomCode = roomCode
	return nil
}

// CanBind reports whether socketId is live and not yet in a room.
func (r *Registry) CanBind(socketId string) error {
	s, ok := r.Get(socketId)
	if !ok {
		return apperr.New(apperr.KindNotFound, "connection_not_found", "connection is gone")
	}
	if s.RoomCode() != "" {
		return apperr.ErrAlreadyInRoom
	}
	return nil
}

// Unbind detaches socketId from roomCode. A binding to another room is left alone.
func (r *Registry) Unbind(socketId, roomCode string) {
	s, ok := r.Get(socketId)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomCode == roomCode {
		s.roomCode = ""
		s.role = RoleNone
	}
}

func (r *Registry) RoomSessions(roomCode string) []*Session {
	var sessions []*Session
	r.sessions.Range(func(key, value any) bool {
		s := value.(*Session)
		if s.RoomCode() == roomCode {
			sessions = append(sessions, s)
		}
		return true // continue iterating
	})
	return sessions
}
