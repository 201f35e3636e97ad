package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/crosszero-backend/internal/config"
	"github.com/rocketscienceinc/crosszero-backend/internal/repository"
	"github.com/rocketscienceinc/crosszero-backend/internal/transport/origin"
	"github.com/rocketscienceinc/crosszero-backend/internal/transport/pubsub"
	"github.com/rocketscienceinc/crosszero-backend/internal/usecase"
	"github.com/rocketscienceinc/crosszero-backend/transport/rest"
	"github.com/rocketscienceinc/crosszero-backend/transport/websocket"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	broker, closeBroker, err := newBroker(ctx, logger, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = closeBroker(); err != nil {
			log.Error("could not close broker", "error", err)
		}
	}()

	roomManager := usecase.NewRoomManager(logger, repository.NewRoomRepository(), repository.NewSessionRepository(),
		usecase.WithTTL(conf.Room.TTL),
	)

	allowedOrigins := origin.AllowList(conf.AllowedOrigins)

	wsServer := websocket.New(logger, roomManager, broker, allowedOrigins)
	roomManager.SetEvictionHook(wsServer.HandleEviction)

	if err = wsServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start websocket gateway: %w", err)
	}
	defer wsServer.Close()

	go roomManager.RunReaper(ctx, conf.Room.ReapInterval)

	router := rest.NewRouter(logger, rest.RouterOptions{
		AllowedOrigins: allowedOrigins,
		StaticDir:      conf.StaticDir,
		WebSocket:      wsServer,
	})

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort, "broadcast", conf.Broadcast.Driver)
		httpErrCh <- rest.New(logger, conf.HTTPPort, router).Start(ctx)
	}()

	select {
	case err = <-httpErrCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down",
			"rooms", roomManager.ActiveRooms(), "connections", wsServer.ConnectionCount())
		if err = <-httpErrCh; err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}
}

// newBroker builds the configured broker and a func releasing everything it holds.
func newBroker(ctx context.Context, logger *slog.Logger, conf *config.Config) (pubsub.Broker, func() error, error) {
	switch conf.Broadcast.Driver {
	case "", pubsub.DriverLocal:
		broker := pubsub.NewLocal()
		return broker, broker.Close, nil
	case pubsub.DriverRedis:
		client, err := pubsub.Connect(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis: %w", err)
		}

		broker := pubsub.NewRedis(logger, client)
		closeAll := func() error {
			return errors.Join(broker.Close(), client.Close())
		}

		return broker, closeAll, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", pubsub.ErrUnknownDriver, conf.Broadcast.Driver)
	}
}
