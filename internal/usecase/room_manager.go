package usecase

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
)

const DefaultRoomTTL = time.Hour

type roomRepo interface {
	CreateOrUpdate(room *entity.Room)
	GetByID(id string) (*entity.Room, error)
	Exists(id string) bool
	DeleteByID(id string) error
	List() []*entity.Room
	Count() int
}

type sessionRepo interface {
	Associate(connectionID, roomID, displayName string)
	Lookup(connectionID string) (entity.Session, bool)
	UpdateName(connectionID, displayName string) bool
	Remove(connectionID string)
}

// Membership is the result of sitting down in a room.
// Previous is set when the connection had to leave another room first.
type Membership struct {
	Room     *entity.Room
	Previous *Departure
}

// Departure describes a player leaving a room. Remaining lists who is still seated.
type Departure struct {
	RoomID       string
	ConnectionID string
	Remaining    []string
	Destroyed    bool
}

// Eviction describes an expired room removed from the registry together with its members.
type Eviction struct {
	RoomID  string
	Members []string
}

type Option func(*RoomManager)

func WithTTL(ttl time.Duration) Option {
	return func(that *RoomManager) {
		that.ttl = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(that *RoomManager) {
		that.now = now
	}
}

func WithIDGenerator(generate func() (string, error)) Option {
	return func(that *RoomManager) {
		that.generateID = generate
	}
}

// RoomManager owns every room and session mutation. All of them run under one lock.
type RoomManager struct {
	logger *slog.Logger

	mu          sync.Mutex
	roomRepo    roomRepo
	sessionRepo sessionRepo

	ttl        time.Duration
	now        func() time.Time
	generateID func() (string, error)
	onEvict    func(Eviction)
}

func NewRoomManager(logger *slog.Logger, roomRepo roomRepo, sessionRepo sessionRepo, opts ...Option) *RoomManager {
	manager := &RoomManager{
		logger: logger.With("component", "room_manager"),

		roomRepo:    roomRepo,
		sessionRepo: sessionRepo,

		ttl:        DefaultRoomTTL,
		now:        time.Now,
		generateID: GenerateRoomID,
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// SetEvictionHook registers a callback invoked, outside the lock, for every expired room.
// It must be set before the manager is shared.
func (that *RoomManager) SetEvictionHook(hook func(Eviction)) {
	that.onEvict = hook
}

// ActiveRooms returns the number of registered rooms.
func (that *RoomManager) ActiveRooms() int {
	return that.roomRepo.Count()
}

func (that *RoomManager) notifyEvicted(evictions []Eviction) {
	if that.onEvict == nil {
		return
	}

	for _, eviction := range evictions {
		that.onEvict(eviction)
	}
}
