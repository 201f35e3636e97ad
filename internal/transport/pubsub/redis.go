package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "room:"

// Redis publishes every envelope on the room:<id> channel and consumes room:* back.
type Redis struct {
	logger *slog.Logger
	client *redis.Client

	mu   sync.Mutex
	subs []*redis.PubSub
}

func NewRedis(logger *slog.Logger, client *redis.Client) *Redis {
	return &Redis{
		logger: logger.With("component", "redis_broker"),
		client: client,
	}
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

func (that *Redis) Publish(ctx context.Context, envelope Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("could not marshal envelope: %w", err)
	}

	if err = that.client.Publish(ctx, RoomChannel(envelope.RoomID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to room %s: %w", envelope.RoomID, err)
	}

	return nil
}

// Subscribe returns once the pattern subscription is confirmed and delivers in the background until ctx is done.
func (that *Redis) Subscribe(ctx context.Context, handler Handler) error {
	log := that.logger.With("method", "Subscribe")

	sub := that.client.PSubscribe(ctx, roomChannelPrefix+"*")

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe to room channels: %w", err)
	}

	that.mu.Lock()
	that.subs = append(that.subs, sub)
	that.mu.Unlock()

	ch := sub.Channel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var envelope Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
					log.Error("failed to unmarshal envelope", "channel", msg.Channel, "error", err)
					continue
				}

				handler(envelope)
			}
		}
	}()

	return nil
}

func (that *Redis) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	var errs []error
	for _, sub := range that.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	that.subs = nil

	if len(errs) > 0 {
		return fmt.Errorf("failed to close subscriptions: %w", errors.Join(errs...))
	}

	return nil
}
