package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

const (
	DriverLocal = "local"
	DriverRedis = "redis"
)

var ErrUnknownDriver = errors.New("unknown broadcast driver")

// Envelope is one outbound event for the members of a room.
type Envelope struct {
	RoomID     string          `json:"roomId"`
	Recipients []string        `json:"recipients"`
	Message    json.RawMessage `json:"message"`
}

type Handler func(envelope Envelope)

// Broker fans room events out to whoever delivers them to connections.
type Broker interface {
	Publish(ctx context.Context, envelope Envelope) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// Local delivers synchronously inside the process, in publish order.
type Local struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocal() *Local {
	return &Local{}
}

func (that *Local) Publish(_ context.Context, envelope Envelope) error {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, handler := range that.handlers {
		handler(envelope)
	}

	return nil
}

func (that *Local) Subscribe(_ context.Context, handler Handler) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.handlers = append(that.handlers, handler)

	return nil
}

func (that *Local) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.handlers = nil

	return nil
}
