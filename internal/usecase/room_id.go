package usecase

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rocketscienceinc/crosszero-backend/internal/apperror"
)

const (
	roomIDLength      = 6
	roomIDAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxRoomIDAttempts = 32
)

var roomIDAlphabetSize = big.NewInt(int64(len(roomIDAlphabet)))

// GenerateRoomID returns a uniform random 6-character code over A-Z0-9.
func GenerateRoomID() (string, error) {
	id := make([]byte, roomIDLength)

	for i := range id {
		n, err := rand.Int(rand.Reader, roomIDAlphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to read random index: %w", err)
		}

		id[i] = roomIDAlphabet[n.Int64()]
	}

	return string(id), nil
}

// uniqueRoomID retries until the generator yields an id not yet registered. Callers hold the lock.
func (that *RoomManager) uniqueRoomID() (string, error) {
	for range maxRoomIDAttempts {
		id, err := that.generateID()
		if err != nil {
			return "", fmt.Errorf("failed to generate room id: %w", err)
		}

		if !that.roomRepo.Exists(id) {
			return id, nil
		}
	}

	return "", apperror.ErrRoomIDExhausted
}
