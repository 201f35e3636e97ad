package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/crosszero-backend/internal/apperror"
	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
)

// inbound actions
const (
	actionCreateRoom = "createRoom"
	actionJoinRoom   = "joinRoom"
	actionMakeMove   = "makeMove"
	actionPlayAgain  = "playAgain"
	actionUpdateName = "updateName"
	actionLeaveRoom  = "leaveRoom"
)

// outbound actions
const (
	actionRoomCreated       = "roomCreated"
	actionRoomJoined        = "roomJoined"
	actionGameState         = "gameState"
	actionMoveMade          = "moveMade"
	actionPlayerSwitched    = "playerSwitched"
	actionGameWon           = "gameWon"
	actionGameDraw          = "gameDraw"
	actionGameReset         = "gameReset"
	actionPlayerNameUpdated = "playerNameUpdated"
	actionPlayerLeft        = "playerLeft"
	actionError             = "error"
)

const (
	msgRoomNotFound   = "Room not found"
	msgRoomExpired    = "Room has expired"
	msgRoomFull       = "Room is full"
	msgAlreadyInRoom  = "Already in this room"
	msgInvalidRequest = "Invalid request"
	msgCreateFailed   = "Failed to create room"
	msgJoinFailed     = "Failed to join room"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type createRoomRequest struct {
	DisplayName string `json:"displayName"`
}

type joinRoomRequest struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type makeMoveRequest struct {
	RoomID    string `json:"roomId"`
	CellIndex *int   `json:"cellIndex"`
}

type roomRequest struct {
	RoomID string `json:"roomId"`
}

type updateNameRequest struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type roomCreatedPayload struct {
	RoomID string      `json:"roomId"`
	Symbol entity.Mark `json:"symbol"`
}

type roomJoinedPayload struct {
	RoomID       string      `json:"roomId"`
	OpponentName string      `json:"opponentName"`
	Symbol       entity.Mark `json:"symbol"`
}

type gameStatePayload struct {
	Board         entity.Board     `json:"board"`
	CurrentPlayer entity.Mark      `json:"currentPlayer"`
	Players       []*entity.Player `json:"players"`
}

type moveMadePayload struct {
	CellIndex int         `json:"cellIndex"`
	Symbol    entity.Mark `json:"symbol"`
}

type playerSwitchedPayload struct {
	CurrentPlayer entity.Mark `json:"currentPlayer"`
}

type gameWonPayload struct {
	Winner       entity.Mark `json:"winner"`
	WinningCombo [3]int      `json:"winningCombo"`
}

type playerNameUpdatedPayload struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type emptyPayload struct{}

// decodePayload treats an absent payload as an empty object.
func decodePayload(msg *Message, v any) error {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return nil
	}

	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %w", apperror.ErrMalformedRequest, msg.Action, err)
	}

	return nil
}

func encodeMessage(action string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Message{Action: action, Payload: payloadBytes})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}
