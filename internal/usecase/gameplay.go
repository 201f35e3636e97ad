package usecase

import (
	"fmt"

	"github.com/rocketscienceinc/crosszero-backend/internal/apperror"
	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
	"github.com/rocketscienceinc/crosszero-backend/internal/metrics"
	"github.com/rocketscienceinc/crosszero-backend/internal/tictactoe"
)

// MoveOutcome is what a valid move produced.
type MoveOutcome struct {
	RoomID     string
	Cell       int
	Symbol     entity.Mark
	NextPlayer entity.Mark
	Result     tictactoe.Result

	Participants []string
}

// NameChange tells which room members must learn about a new display name.
type NameChange struct {
	RoomID       string
	ConnectionID string
	DisplayName  string
	Recipients   []string
}

// MakeMove applies a move for connectionID. Illegal moves return an error wrapping apperror.ErrInvalidMove.
func (that *RoomManager) MakeMove(connectionID, roomID string, cell int) (*MoveOutcome, error) {
	log := that.logger.With("method", "MakeMove", "connectionID", connectionID)

	that.mu.Lock()
	defer that.mu.Unlock()

	room, player, err := that.resolve(connectionID, roomID)
	if err != nil {
		return nil, err
	}

	result, err := tictactoe.MakeTurn(room, player.Symbol, cell)
	if err != nil {
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	that.roomRepo.CreateOrUpdate(room)

	if result.IsOver() {
		metrics.IncrementGamesConcluded(result.Outcome.String())
		log.Info("game concluded", "roomID", room.ID, "result", result.Outcome.String(), "winner", result.Winner)
	}

	return &MoveOutcome{
		RoomID:     room.ID,
		Cell:       cell,
		Symbol:     player.Symbol,
		NextPlayer: room.CurrentPlayer,
		Result:     result,

		Participants: room.ConnectionIDs(),
	}, nil
}

// PlayAgain restarts a concluded game on request of either player.
func (that *RoomManager) PlayAgain(connectionID, roomID string) (*entity.Room, error) {
	log := that.logger.With("method", "PlayAgain", "connectionID", connectionID)

	that.mu.Lock()
	defer that.mu.Unlock()

	room, _, err := that.resolve(connectionID, roomID)
	if err != nil {
		return nil, err
	}

	if !room.IsConcluded() {
		return nil, fmt.Errorf("%w: room %s is %s", apperror.ErrInvalidMove, room.ID, room.Status)
	}

	room.Reset()
	that.roomRepo.CreateOrUpdate(room)

	log.Info("game reset", "roomID", room.ID)

	return room.Clone(), nil
}

// UpdateName renames connectionID in its room and session.
func (that *RoomManager) UpdateName(connectionID, roomID, displayName string) (*NameChange, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, player, err := that.resolve(connectionID, roomID)
	if err != nil {
		return nil, err
	}

	player.DisplayName = entity.NormalizeDisplayName(displayName)
	that.sessionRepo.UpdateName(connectionID, player.DisplayName)
	that.roomRepo.CreateOrUpdate(room)

	change := &NameChange{
		RoomID:       room.ID,
		ConnectionID: connectionID,
		DisplayName:  player.DisplayName,
	}

	if opponent := room.Opponent(connectionID); opponent != nil {
		change.Recipients = []string{opponent.ConnectionID}
	}

	return change, nil
}

// Room returns a snapshot of the room connectionID sits in.
func (that *RoomManager) Room(connectionID string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, _, err := that.resolve(connectionID, "")
	if err != nil {
		return nil, err
	}

	return room.Clone(), nil
}

// resolve finds the room and seat of connectionID through its session.
// A non-empty roomID must match the session's room. Callers hold the lock.
func (that *RoomManager) resolve(connectionID, roomID string) (*entity.Room, *entity.Player, error) {
	session, ok := that.sessionRepo.Lookup(connectionID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, connectionID)
	}

	if roomID != "" && entity.NormalizeRoomID(roomID) != session.RoomID {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	room, err := that.roomRepo.GetByID(session.RoomID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get room: %w", err)
	}

	player := room.PlayerByConnection(connectionID)
	if player == nil {
		return nil, nil, fmt.Errorf("%w: %s not seated in %s", apperror.ErrSessionNotFound, connectionID, room.ID)
	}

	return room, player, nil
}
