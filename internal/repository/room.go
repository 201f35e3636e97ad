package repository

import (
	"fmt"
	"sync"

	"github.com/rocketscienceinc/crosszero-backend/internal/apperror"
	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
)

type RoomRepository interface {
	CreateOrUpdate(room *entity.Room)
	GetByID(id string) (*entity.Room, error)
	Exists(id string) bool
	DeleteByID(id string) error
	List() []*entity.Room
	Count() int
}

type memRoom struct {
	rooms map[string]*entity.Room
	mu    sync.RWMutex
}

// NewRoomRepository returns a process-local room store. Rooms do not survive a restart.
func NewRoomRepository() RoomRepository {
	return &memRoom{
		rooms: make(map[string]*entity.Room),
	}
}

func (that *memRoom) CreateOrUpdate(room *entity.Room) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.rooms[room.ID] = room
}

func (that *memRoom) GetByID(id string) (*entity.Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}

	return room, nil
}

func (that *memRoom) Exists(id string) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	_, ok := that.rooms[id]

	return ok
}

func (that *memRoom) DeleteByID(id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[id]; !ok {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}

	delete(that.rooms, id)

	return nil
}

func (that *memRoom) List() []*entity.Room {
	that.mu.RLock()
	defer that.mu.RUnlock()

	rooms := make([]*entity.Room, 0, len(that.rooms))
	for _, room := range that.rooms {
		rooms = append(rooms, room)
	}

	return rooms
}

func (that *memRoom) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}
