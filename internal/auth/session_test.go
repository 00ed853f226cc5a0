package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	m := NewSessionManager(10 * time.Minute)
	user := &User{ID: 7, Username: "alice", IsAdmin: false}

	s := m.Create(user)
	require.NotEmpty(t, s.Token)

	got, err := m.Get(s.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "alice", got.Username)

	m.Destroy(s.Token)
	_, err = m.Get(s.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpiresAfterIdleTimeout(t *testing.T) {
	m := NewSessionManager(10 * time.Minute)
	current := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	s := m.Create(&User{ID: 1, Username: "alice"})

	current = current.Add(11 * time.Minute)
	_, err := m.Get(s.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, m.Len(), "expired session is removed on lookup")
}

func TestSessionTimeoutSlides(t *testing.T) {
	m := NewSessionManager(10 * time.Minute)
	current := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	s := m.Create(&User{ID: 1, Username: "alice"})

	// Keep touching the session just inside the timeout; it must survive
	// well past the original deadline.
	for i := 0; i < 3; i++ {
		current = current.Add(9 * time.Minute)
		_, err := m.Get(s.Token)
		require.NoError(t, err)
	}
}

func TestDestroyUserEndsAllTheirSessions(t *testing.T) {
	m := NewSessionManager(10 * time.Minute)
	alice := &User{ID: 1, Username: "alice"}
	bob := &User{ID: 2, Username: "bob"}

	a1 := m.Create(alice)
	a2 := m.Create(alice)
	b1 := m.Create(bob)

	m.DestroyUser(alice.ID)

	_, err := m.Get(a1.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(a2.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Get(b1.Token)
	require.NoError(t, err)
}

func TestGetUnknownToken(t *testing.T) {
	m := NewSessionManager(10 * time.Minute)
	_, err := m.Get("no-such-token")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
