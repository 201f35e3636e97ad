package repository

import (
	"sync"

	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
)

// SessionRepository maps a connection to the room it currently sits in.
type SessionRepository interface {
	Associate(connectionID, roomID, displayName string)
	Lookup(connectionID string) (entity.Session, bool)
	UpdateName(connectionID, displayName string) bool
	Remove(connectionID string)
}

type memSession struct {
	sessions map[string]entity.Session
	mu       sync.RWMutex
}

func NewSessionRepository() SessionRepository {
	return &memSession{
		sessions: make(map[string]entity.Session),
	}
}

func (that *memSession) Associate(connectionID, roomID, displayName string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[connectionID] = entity.Session{
		ConnectionID: connectionID,
		RoomID:       roomID,
		DisplayName:  displayName,
	}
}

func (that *memSession) Lookup(connectionID string) (entity.Session, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	session, ok := that.sessions[connectionID]

	return session, ok
}

// UpdateName reports false when the connection has no session.
func (that *memSession) UpdateName(connectionID, displayName string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[connectionID]
	if !ok {
		return false
	}

	session.DisplayName = displayName
	that.sessions[connectionID] = session

	return true
}

func (that *memSession) Remove(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.sessions, connectionID)
}
