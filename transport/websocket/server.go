package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
	"github.com/rocketscienceinc/crosszero-backend/internal/metrics"
	"github.com/rocketscienceinc/crosszero-backend/internal/transport/origin"
	"github.com/rocketscienceinc/crosszero-backend/internal/transport/pubsub"
	"github.com/rocketscienceinc/crosszero-backend/internal/usecase"
)

const actionUnknown = "unknown"

type roomManager interface {
	CreateRoom(connectionID, displayName string) (*usecase.Membership, error)
	JoinRoom(connectionID, roomID, displayName string) (*usecase.Membership, error)
	MakeMove(connectionID, roomID string, cell int) (*usecase.MoveOutcome, error)
	PlayAgain(connectionID, roomID string) (*entity.Room, error)
	UpdateName(connectionID, roomID, displayName string) (*usecase.NameChange, error)
	RemovePlayer(connectionID string) (*usecase.Departure, error)
}

// Server is the connection gateway: it owns sockets and turns protocol events into room manager calls.
type Server struct {
	logger   *slog.Logger
	manager  roomManager
	broker   pubsub.Broker
	upgrader websocket.Upgrader

	connections      map[string]*client
	connectionsMutex sync.RWMutex

	// serializes dispatch so room events are published in mutation order
	dispatchMutex sync.Mutex

	handlers map[string]func(ctx context.Context, message *Message, c *client) error
}

func New(logger *slog.Logger, manager roomManager, broker pubsub.Broker, allowedOrigins origin.AllowList) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,
		broker:  broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowedOrigins.Allows(r.Header.Get("Origin"))
			},
		},

		connections: make(map[string]*client),

		handlers: make(map[string]func(context.Context, *Message, *client) error),
	}

	server.handlers[actionCreateRoom] = server.handleCreateRoom
	server.handlers[actionJoinRoom] = server.handleJoinRoom
	server.handlers[actionMakeMove] = server.handleMakeMove
	server.handlers[actionPlayAgain] = server.handlePlayAgain
	server.handlers[actionUpdateName] = server.handleUpdateName
	server.handlers[actionLeaveRoom] = server.handleLeaveRoom

	return server
}

// Start subscribes the gateway to room events. It must run before connections are accepted.
func (that *Server) Start(ctx context.Context) error {
	if err := that.broker.Subscribe(ctx, that.deliver); err != nil {
		return fmt.Errorf("failed to subscribe to room events: %w", err)
	}

	return nil
}

// Close drops every live connection.
func (that *Server) Close() {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	for _, c := range that.connections {
		c.close()
	}
}

// ServeHTTP upgrades the request and serves the connection until it goes away.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		log.Warn("failed to upgrade connection", "origin", req.Header.Get("Origin"), "error", err)
		return
	}

	c := newClient(uuid.NewString(), conn)
	that.register(c)

	log = log.With("connectionID", c.id)
	log.Info("WebSocket connection established")

	go func() {
		if err := c.writePump(); err != nil {
			log.Debug("write pump stopped", "error", err)
		}
	}()

	that.handleMessages(req.Context(), c)
	that.handleDisconnect(context.WithoutCancel(req.Context()), c)
}

// handleMessages - processes messages from the client until the connection breaks.
func (that *Server) handleMessages(ctx context.Context, c *client) {
	log := that.logger.With("method", "handleMessages", "connectionID", c.id)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		that.handleMessage(ctx, c, data)
	}
}

func (that *Server) handleMessage(ctx context.Context, c *client, data []byte) {
	log := that.logger.With("method", "handleMessage", "connectionID", c.id)

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Warn("failed to unmarshal message", "error", err)
		metrics.IncrementWSMessages(actionUnknown)
		that.sendErrorResponse(c, msgInvalidRequest)
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action", "action", message.Action)
		metrics.IncrementWSMessages(actionUnknown)
		return
	}

	metrics.IncrementWSMessages(message.Action)

	that.dispatchMutex.Lock()
	defer that.dispatchMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from panic in handler", "action", message.Action, "panic", r)
		}
	}()

	if err := handler(ctx, &message, c); err != nil {
		log.Error("error processing message", "action", message.Action, "error", err)
	}
}

// handleDisconnect treats a dropped connection like an explicit leave.
func (that *Server) handleDisconnect(ctx context.Context, c *client) {
	log := that.logger.With("method", "handleDisconnect", "connectionID", c.id)

	c.close()
	that.unregister(c)

	that.dispatchMutex.Lock()
	defer that.dispatchMutex.Unlock()

	departure, err := that.manager.RemovePlayer(c.id)
	if err != nil {
		log.Info("player disconnected")
		return
	}

	if err = that.announceDeparture(ctx, departure); err != nil {
		log.Error("failed to announce departure", "error", err)
	}

	log.Info("player disconnected", "roomID", departure.RoomID)
}

// HandleEviction tells the members of an expired room that it is gone.
func (that *Server) HandleEviction(eviction usecase.Eviction) {
	log := that.logger.With("method", "HandleEviction", "roomID", eviction.RoomID)

	err := that.publish(context.Background(), eviction.RoomID, eviction.Members, actionError, errorPayload{Message: msgRoomExpired})
	if err != nil {
		log.Error("failed to notify evicted members", "error", err)
	}
}

// deliver hands a published envelope to the recipients connected to this process.
func (that *Server) deliver(envelope pubsub.Envelope) {
	log := that.logger.With("method", "deliver", "roomID", envelope.RoomID)

	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	for _, id := range envelope.Recipients {
		c, ok := that.connections[id]
		if !ok {
			continue
		}

		if !c.enqueue(envelope.Message) {
			log.Warn("dropping slow or closed connection", "connectionID", id)
			c.close()
		}
	}
}

func (that *Server) publish(ctx context.Context, roomID string, recipients []string, action string, payload any) error {
	if len(recipients) == 0 {
		return nil
	}

	data, err := encodeMessage(action, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", action, err)
	}

	envelope := pubsub.Envelope{
		RoomID:     roomID,
		Recipients: recipients,
		Message:    data,
	}

	if err = that.broker.Publish(ctx, envelope); err != nil {
		return fmt.Errorf("failed to publish %s: %w", action, err)
	}

	return nil
}

func (that *Server) sendErrorResponse(c *client, errorMsg string) {
	data, err := encodeMessage(actionError, errorPayload{Message: errorMsg})
	if err != nil {
		that.logger.Error("failed to encode error response", "error", err)
		return
	}

	if !c.enqueue(data) {
		that.logger.Warn("failed to send error response", "connectionID", c.id)
	}
}

func (that *Server) register(c *client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	that.connections[c.id] = c
	metrics.IncrementWSActiveConnections()
}

func (that *Server) unregister(c *client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	if _, ok := that.connections[c.id]; ok {
		delete(that.connections, c.id)
		metrics.DecrementWSActiveConnections()
	}
}

// ConnectionCount returns the number of live connections.
func (that *Server) ConnectionCount() int {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	return len(that.connections)
}
