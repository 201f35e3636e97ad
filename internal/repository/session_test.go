package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository(t *testing.T) {
	t.Run("Associate then Lookup", func(t *testing.T) {
		sessionRepo := NewSessionRepository()

		// Given: an associated connection
		sessionRepo.Associate("conn-1", "ABC123", "Alice")

		// When: looking it up
		session, ok := sessionRepo.Lookup("conn-1")

		// Then: the room and name are resolved
		require.True(t, ok)
		assert.Equal(t, "ABC123", session.RoomID)
		assert.Equal(t, "Alice", session.DisplayName)
	})

	t.Run("Lookup of unknown connection", func(t *testing.T) {
		sessionRepo := NewSessionRepository()

		_, ok := sessionRepo.Lookup("conn-404")

		assert.False(t, ok)
	})

	t.Run("UpdateName", func(t *testing.T) {
		sessionRepo := NewSessionRepository()
		sessionRepo.Associate("conn-1", "ABC123", "Alice")

		// When: the name changes
		updated := sessionRepo.UpdateName("conn-1", "Alicia")

		// Then: the session reflects it
		require.True(t, updated)
		session, _ := sessionRepo.Lookup("conn-1")
		assert.Equal(t, "Alicia", session.DisplayName)

		// Then: unknown connections are not created
		assert.False(t, sessionRepo.UpdateName("conn-2", "Bob"))
		_, ok := sessionRepo.Lookup("conn-2")
		assert.False(t, ok)
	})

	t.Run("Remove", func(t *testing.T) {
		sessionRepo := NewSessionRepository()
		sessionRepo.Associate("conn-1", "ABC123", "Alice")

		// When: the session is removed
		sessionRepo.Remove("conn-1")

		// Then: it no longer resolves
		_, ok := sessionRepo.Lookup("conn-1")
		assert.False(t, ok)
	})
}
