package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound indicates a missing or expired session token.
var ErrSessionNotFound = errors.New("session not found or expired")

// Session is one logged-in browser session.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	IsAdmin   bool
	ExpiresAt time.Time
}

// SessionManager tracks sessions in memory with a sliding idle timeout:
// each successful lookup extends the session. A process restart logs
// everyone out.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration

	// now is the session clock, replaceable in tests.
	now func() time.Time
}

// NewSessionManager creates a manager with the given idle timeout.
func NewSessionManager(timeout time.Duration) *SessionManager {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Create starts a session for the user and returns its token.
func (m *SessionManager) Create(user *User) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		ExpiresAt: m.now().Add(m.timeout),
	}
	m.sessions[s.Token] = s
	return s
}

// Get returns the session for token, extending its expiry. Expired
// sessions are removed and reported as not found.
func (m *SessionManager) Get(token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.now().After(s.ExpiresAt) {
		delete(m.sessions, token)
		return nil, ErrSessionNotFound
	}

	s.ExpiresAt = m.now().Add(m.timeout)
	copied := *s
	return &copied, nil
}

// Destroy ends the session for token. Destroying an unknown token is a
// no-op.
func (m *SessionManager) Destroy(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// DestroyUser ends every session belonging to userID. Used when an admin
// deletes an account.
func (m *SessionManager) DestroyUser(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, token)
		}
	}
}

// Len returns the number of live sessions, expired ones included until
// their next lookup.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
