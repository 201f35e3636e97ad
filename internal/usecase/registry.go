package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rocketscienceinc/crosszero-backend/internal/apperror"
	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
	"github.com/rocketscienceinc/crosszero-backend/internal/metrics"
)

// CreateRoom seats connectionID as X in a brand new room.
// A connection already sitting elsewhere leaves that room first.
func (that *RoomManager) CreateRoom(connectionID, displayName string) (*Membership, error) {
	log := that.logger.With("method", "CreateRoom", "connectionID", connectionID)

	that.mu.Lock()
	defer that.mu.Unlock()

	roomID, err := that.uniqueRoomID()
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	previous := that.leave(connectionID)

	player := entity.NewPlayer(connectionID, displayName)
	room := entity.NewRoom(roomID, player, that.now())

	that.roomRepo.CreateOrUpdate(room)
	that.sessionRepo.Associate(connectionID, room.ID, player.DisplayName)

	metrics.IncrementRoomsCreated()
	metrics.SetActiveRooms(that.roomRepo.Count())

	log.Info("room created", "roomID", room.ID)

	return &Membership{Room: room.Clone(), Previous: previous}, nil
}

// JoinRoom seats connectionID in an existing room and starts a fresh game.
func (that *RoomManager) JoinRoom(connectionID, roomID, displayName string) (*Membership, error) {
	that.mu.Lock()
	membership, eviction, err := that.joinRoom(connectionID, entity.NormalizeRoomID(roomID), displayName)
	that.mu.Unlock()

	if eviction != nil {
		that.notifyEvicted([]Eviction{*eviction})
	}

	return membership, err
}

func (that *RoomManager) joinRoom(connectionID, roomID, displayName string) (*Membership, *Eviction, error) {
	log := that.logger.With("method", "JoinRoom", "connectionID", connectionID, "roomID", roomID)

	room, err := that.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get room: %w", err)
	}

	if room.IsExpired(that.now(), that.ttl) {
		eviction := that.evict(room)
		log.Info("expired room evicted on join")

		return nil, &eviction, fmt.Errorf("%w: %s", apperror.ErrRoomExpired, roomID)
	}

	if room.PlayerByConnection(connectionID) != nil {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, roomID)
	}

	if room.IsFull() {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrRoomFull, roomID)
	}

	previous := that.leave(connectionID)

	player := entity.NewPlayer(connectionID, displayName)
	if err = room.AddPlayer(player); err != nil {
		return nil, nil, fmt.Errorf("failed to add player: %w", err)
	}

	room.Reset()

	that.roomRepo.CreateOrUpdate(room)
	that.sessionRepo.Associate(connectionID, room.ID, player.DisplayName)

	log.Info("player joined room", "symbol", player.Symbol)

	return &Membership{Room: room.Clone(), Previous: previous}, nil, nil
}

// RemovePlayer takes connectionID out of its room. The last one out destroys the room.
func (that *RoomManager) RemovePlayer(connectionID string) (*Departure, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	departure := that.leave(connectionID)
	if departure == nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, connectionID)
	}

	return departure, nil
}

// leave removes the connection from its current room, if any. Callers hold the lock.
func (that *RoomManager) leave(connectionID string) *Departure {
	log := that.logger.With("method", "leave", "connectionID", connectionID)

	session, ok := that.sessionRepo.Lookup(connectionID)
	if !ok {
		return nil
	}

	that.sessionRepo.Remove(connectionID)

	departure := &Departure{RoomID: session.RoomID, ConnectionID: connectionID}

	room, err := that.roomRepo.GetByID(session.RoomID)
	if err != nil {
		log.Warn("session pointed to a missing room", "roomID", session.RoomID)
		departure.Destroyed = true

		return departure
	}

	room.RemovePlayer(connectionID)

	if room.IsEmpty() {
		if err = that.roomRepo.DeleteByID(room.ID); err != nil {
			log.Error("failed to delete room", "roomID", room.ID, "error", err)
		}

		departure.Destroyed = true

		metrics.IncrementRoomsEvicted(metrics.EvictReasonEmpty)
		metrics.SetActiveRooms(that.roomRepo.Count())

		log.Info("room destroyed", "roomID", room.ID)

		return departure
	}

	// the survivor keeps the board but cannot move until someone joins
	room.Status = entity.StatusWaiting
	that.roomRepo.CreateOrUpdate(room)

	departure.Remaining = room.ConnectionIDs()

	log.Info("player left room", "roomID", room.ID)

	return departure
}

// Reap removes every room older than the TTL and returns what it evicted.
func (that *RoomManager) Reap() []Eviction {
	that.mu.Lock()

	now := that.now()

	var evictions []Eviction
	for _, room := range that.roomRepo.List() {
		if room.IsExpired(now, that.ttl) {
			evictions = append(evictions, that.evict(room))
		}
	}

	that.mu.Unlock()

	that.notifyEvicted(evictions)

	return evictions
}

// RunReaper calls Reap every interval until ctx is done.
func (that *RoomManager) RunReaper(ctx context.Context, interval time.Duration) {
	log := that.logger.With("method", "RunReaper")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("room reaper started", "interval", interval, "ttl", that.ttl)

	for {
		select {
		case <-ctx.Done():
			log.Info("room reaper stopped")
			return
		case <-ticker.C:
			if evictions := that.Reap(); len(evictions) > 0 {
				log.Info("expired rooms reaped", "count", len(evictions))
			}
		}
	}
}

// evict drops an expired room and the sessions that still point at it. Callers hold the lock.
func (that *RoomManager) evict(room *entity.Room) Eviction {
	log := that.logger.With("method", "evict", "roomID", room.ID)

	members := room.ConnectionIDs()
	for _, connectionID := range members {
		if session, ok := that.sessionRepo.Lookup(connectionID); ok && session.RoomID == room.ID {
			that.sessionRepo.Remove(connectionID)
		}
	}

	if err := that.roomRepo.DeleteByID(room.ID); err != nil {
		log.Error("failed to delete room", "error", err)
	}

	metrics.IncrementRoomsEvicted(metrics.EvictReasonExpired)
	metrics.SetActiveRooms(that.roomRepo.Count())

	return Eviction{RoomID: room.ID, Members: members}
}
