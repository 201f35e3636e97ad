package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/crosszero-backend/internal/apperror"
)

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusConcluded Status = "concluded"

	RoomCapacity = 2
)

var ErrUnknownRoomStatus = errors.New("unknown room status")

type Status string

// Room is a two-seat table. The first seat plays X, the second O.
type Room struct {
	ID            string    `json:"id"`
	Players       []*Player `json:"players"`
	Board         Board     `json:"board"`
	CurrentPlayer Mark      `json:"currentPlayer"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NormalizeRoomID makes room codes case-insensitive for lookups.
func NormalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func NewRoom(id string, creator *Player, createdAt time.Time) *Room {
	creator.Symbol = MarkX

	return &Room{
		ID:            id,
		Players:       []*Player{creator},
		Board:         NewBoard(),
		CurrentPlayer: MarkX,
		Status:        StatusWaiting,
		CreatedAt:     createdAt,
	}
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsConcluded() bool {
	return that.Status == StatusConcluded
}

func (that *Room) IsFull() bool {
	return len(that.Players) >= RoomCapacity
}

func (that *Room) IsEmpty() bool {
	return len(that.Players) == 0
}

// IsExpired reports whether the room outlived ttl. A room exactly ttl old is still alive.
func (that *Room) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(that.CreatedAt) > ttl
}

// ConfirmPlaying returns nil only while a game is in progress.
func (that *Room) ConfirmPlaying() error {
	switch {
	case that.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.IsConcluded():
		return apperror.ErrGameFinished
	case that.IsPlaying():
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownRoomStatus, that.Status)
	}
}

func (that *Room) PlayerByConnection(connectionID string) *Player {
	for _, player := range that.Players {
		if player.ConnectionID == connectionID {
			return player
		}
	}

	return nil
}

// Opponent returns the other seated player, or nil when the seat is free.
func (that *Room) Opponent(connectionID string) *Player {
	for _, player := range that.Players {
		if player.ConnectionID != connectionID {
			return player
		}
	}

	return nil
}

// FreeSymbol returns the symbol a newcomer gets: X if nobody holds it, O otherwise.
func (that *Room) FreeSymbol() Mark {
	for _, player := range that.Players {
		if player.Symbol == MarkX {
			return MarkO
		}
	}

	return MarkX
}

func (that *Room) AddPlayer(player *Player) error {
	if that.IsFull() {
		return fmt.Errorf("%w: room %s", apperror.ErrRoomFull, that.ID)
	}

	player.Symbol = that.FreeSymbol()
	that.Players = append(that.Players, player)

	return nil
}

// RemovePlayer drops the player seated under connectionID and reports whether one was found.
func (that *Room) RemovePlayer(connectionID string) bool {
	for i, player := range that.Players {
		if player.ConnectionID == connectionID {
			that.Players = append(that.Players[:i], that.Players[i+1:]...)
			return true
		}
	}

	return false
}

// Reset starts a fresh game: empty board, X to move.
func (that *Room) Reset() {
	that.Board = NewBoard()
	that.CurrentPlayer = MarkX
	that.Status = StatusPlaying
}

func (that *Room) ConnectionIDs() []string {
	ids := make([]string, 0, len(that.Players))
	for _, player := range that.Players {
		ids = append(ids, player.ConnectionID)
	}

	return ids
}

// Clone returns a deep copy safe to hand out of the registry lock.
func (that *Room) Clone() *Room {
	clone := *that

	clone.Players = make([]*Player, 0, len(that.Players))
	for _, player := range that.Players {
		p := *player
		clone.Players = append(clone.Players, &p)
	}

	return &clone
}
