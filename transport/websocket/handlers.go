package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/crosszero-backend/internal/apperror"
	"github.com/rocketscienceinc/crosszero-backend/internal/tictactoe"
	"github.com/rocketscienceinc/crosszero-backend/internal/usecase"
)

func (that *Server) handleCreateRoom(ctx context.Context, msg *Message, c *client) error {
	log := that.logger.With("method", "handleCreateRoom", "connectionID", c.id)

	var payloadReq createRoomRequest
	if err := decodePayload(msg, &payloadReq); err != nil {
		log.Warn("malformed payload", "error", err)
		that.sendErrorResponse(c, msgInvalidRequest)
		return nil
	}

	membership, err := that.manager.CreateRoom(c.id, payloadReq.DisplayName)
	if err != nil {
		that.sendErrorResponse(c, msgCreateFailed)
		return fmt.Errorf("failed to create room: %w", err)
	}

	if err = that.announceDeparture(ctx, membership.Previous); err != nil {
		log.Error("failed to announce departure", "error", err)
	}

	room := membership.Room
	payloadResp := roomCreatedPayload{
		RoomID: room.ID,
		Symbol: room.PlayerByConnection(c.id).Symbol,
	}

	if err = that.publish(ctx, room.ID, []string{c.id}, actionRoomCreated, payloadResp); err != nil {
		return err
	}

	log.Info("room created", "roomID", room.ID)

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, msg *Message, c *client) error {
	log := that.logger.With("method", "handleJoinRoom", "connectionID", c.id)

	var payloadReq joinRoomRequest
	if err := decodePayload(msg, &payloadReq); err != nil || payloadReq.RoomID == "" {
		log.Warn("malformed payload", "error", err)
		that.sendErrorResponse(c, msgInvalidRequest)
		return nil
	}

	membership, err := that.manager.JoinRoom(c.id, payloadReq.RoomID, payloadReq.DisplayName)
	if err != nil {
		log.Info("join rejected", "roomID", payloadReq.RoomID, "error", err)
		that.sendErrorResponse(c, joinErrorMessage(err))
		return nil
	}

	if err = that.announceDeparture(ctx, membership.Previous); err != nil {
		log.Error("failed to announce departure", "error", err)
	}

	room := membership.Room
	log = log.With("roomID", room.ID)

	// every participant learns the other's name
	for _, player := range room.Players {
		payloadResp := roomJoinedPayload{
			RoomID: room.ID,
			Symbol: player.Symbol,
		}

		if opponent := room.Opponent(player.ConnectionID); opponent != nil {
			payloadResp.OpponentName = opponent.DisplayName
		}

		if err = that.publish(ctx, room.ID, []string{player.ConnectionID}, actionRoomJoined, payloadResp); err != nil {
			return err
		}
	}

	state := gameStatePayload{
		Board:         room.Board,
		CurrentPlayer: room.CurrentPlayer,
		Players:       room.Players,
	}

	if err = that.publish(ctx, room.ID, []string{c.id}, actionGameState, state); err != nil {
		return err
	}

	log.Info("player joined room")

	return nil
}

func (that *Server) handleMakeMove(ctx context.Context, msg *Message, c *client) error {
	log := that.logger.With("method", "handleMakeMove", "connectionID", c.id)

	var payloadReq makeMoveRequest
	if err := decodePayload(msg, &payloadReq); err != nil || payloadReq.CellIndex == nil {
		log.Warn("malformed payload", "error", err)
		that.sendErrorResponse(c, msgInvalidRequest)
		return nil
	}

	outcome, err := that.manager.MakeMove(c.id, payloadReq.RoomID, *payloadReq.CellIndex)
	if errors.Is(err, apperror.ErrInvalidMove) {
		// clients move optimistically, so a stale move is not an error
		log.Debug("move ignored", "cell", *payloadReq.CellIndex, "reason", err)
		return nil
	}

	if err != nil {
		that.sendErrorResponse(c, msgRoomNotFound)
		return fmt.Errorf("failed to make move: %w", err)
	}

	recipients := outcome.Participants

	payloadMove := moveMadePayload{CellIndex: outcome.Cell, Symbol: outcome.Symbol}
	if err = that.publish(ctx, outcome.RoomID, recipients, actionMoveMade, payloadMove); err != nil {
		return err
	}

	switch outcome.Result.Outcome {
	case tictactoe.OutcomeWin:
		payloadWin := gameWonPayload{Winner: outcome.Result.Winner, WinningCombo: outcome.Result.Combo}
		err = that.publish(ctx, outcome.RoomID, recipients, actionGameWon, payloadWin)
	case tictactoe.OutcomeDraw:
		err = that.publish(ctx, outcome.RoomID, recipients, actionGameDraw, emptyPayload{})
	default:
		err = that.publish(ctx, outcome.RoomID, recipients, actionPlayerSwitched, playerSwitchedPayload{CurrentPlayer: outcome.NextPlayer})
	}

	if err != nil {
		return err
	}

	log.Debug("move made", "roomID", outcome.RoomID, "cell", outcome.Cell, "symbol", outcome.Symbol)

	return nil
}

func (that *Server) handlePlayAgain(ctx context.Context, msg *Message, c *client) error {
	log := that.logger.With("method", "handlePlayAgain", "connectionID", c.id)

	var payloadReq roomRequest
	if err := decodePayload(msg, &payloadReq); err != nil {
		log.Warn("malformed payload", "error", err)
		that.sendErrorResponse(c, msgInvalidRequest)
		return nil
	}

	room, err := that.manager.PlayAgain(c.id, payloadReq.RoomID)
	if errors.Is(err, apperror.ErrInvalidMove) {
		log.Debug("play again ignored", "reason", err)
		return nil
	}

	if err != nil {
		that.sendErrorResponse(c, msgRoomNotFound)
		return fmt.Errorf("failed to play again: %w", err)
	}

	if err = that.publish(ctx, room.ID, room.ConnectionIDs(), actionGameReset, emptyPayload{}); err != nil {
		return err
	}

	log.Info("game reset", "roomID", room.ID)

	return nil
}

func (that *Server) handleUpdateName(ctx context.Context, msg *Message, c *client) error {
	log := that.logger.With("method", "handleUpdateName", "connectionID", c.id)

	var payloadReq updateNameRequest
	if err := decodePayload(msg, &payloadReq); err != nil {
		log.Warn("malformed payload", "error", err)
		that.sendErrorResponse(c, msgInvalidRequest)
		return nil
	}

	change, err := that.manager.UpdateName(c.id, payloadReq.RoomID, payloadReq.DisplayName)
	if err != nil {
		log.Debug("name update ignored", "reason", err)
		return nil
	}

	payloadResp := playerNameUpdatedPayload{
		ConnectionID: change.ConnectionID,
		DisplayName:  change.DisplayName,
	}

	return that.publish(ctx, change.RoomID, change.Recipients, actionPlayerNameUpdated, payloadResp)
}

func (that *Server) handleLeaveRoom(ctx context.Context, msg *Message, c *client) error {
	log := that.logger.With("method", "handleLeaveRoom", "connectionID", c.id)

	var payloadReq roomRequest
	if err := decodePayload(msg, &payloadReq); err != nil {
		log.Warn("malformed payload", "error", err)
		that.sendErrorResponse(c, msgInvalidRequest)
		return nil
	}

	departure, err := that.manager.RemovePlayer(c.id)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		log.Debug("leave ignored, not in a room")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	if err = that.announceDeparture(ctx, departure); err != nil {
		return err
	}

	log.Info("player left room", "roomID", departure.RoomID)

	return nil
}

// announceDeparture sends playerLeft to whoever is still seated.
func (that *Server) announceDeparture(ctx context.Context, departure *usecase.Departure) error {
	if departure == nil {
		return nil
	}

	return that.publish(ctx, departure.RoomID, departure.Remaining, actionPlayerLeft, emptyPayload{})
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		return msgRoomNotFound
	case errors.Is(err, apperror.ErrRoomExpired):
		return msgRoomExpired
	case errors.Is(err, apperror.ErrRoomFull):
		return msgRoomFull
	case errors.Is(err, apperror.ErrAlreadyInRoom):
		return msgAlreadyInRoom
	default:
		return msgJoinFailed
	}
}
