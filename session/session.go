// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/fishserver/network"
)

// Session is one live connection. The user and room binding is written by
// the owning read loop during login and read from broadcaster and
// settlement goroutines, so every access goes through the mutex.
type Session struct {
	ID        string
	Conn      network.Connection
	CreatedAt time.Time

	mutex      sync.RWMutex
	userID     string
	roomID     int64
	seatIndex  int
	lastActive time.Time
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		seatIndex:  -1,
		lastActive: now,
	}
}

func (s *Session) Send(event string, payload interface{}) error {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(event, payload)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Bind attaches the session to a room seat after a successful login.
func (s *Session) Bind(userID string, roomID int64, seatIndex int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.userID = userID
	s.roomID = roomID
	s.seatIndex = seatIndex
}

// Unbind detaches the session from its room on exit or eviction. The
// authenticated user id survives for relogin.
func (s *Session) Unbind() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = 0
	s.seatIndex = -1
}

func (s *Session) UserID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.userID
}

func (s *Session) RoomID() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) SeatIndex() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.seatIndex
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) GetByUserID(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.UserID() == userID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
