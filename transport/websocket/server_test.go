package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
	"github.com/rocketscienceinc/crosszero-backend/internal/repository"
	"github.com/rocketscienceinc/crosszero-backend/internal/transport/origin"
	"github.com/rocketscienceinc/crosszero-backend/internal/transport/pubsub"
	"github.com/rocketscienceinc/crosszero-backend/internal/usecase"
)

const (
	allowedOrigin = "http://allowed.example.com"
	readTimeout   = 2 * time.Second
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (that *testClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *testClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

func newTestServer(t *testing.T, opts ...usecase.Option) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewRoomManager(logger, repository.NewRoomRepository(), repository.NewSessionRepository(), opts...)

	server := New(logger, manager, pubsub.NewLocal(), origin.AllowList{allowedOrigin})
	manager.SetEvictionHook(server.HandleEviction)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, server.Start(ctx))

	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		server.Close()
		ts.Close()
		cancel()
	})

	return ts
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server) *testConn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	header := http.Header{"Origin": []string{allowedOrigin}}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return &testConn{t: t, conn: conn}
}

func (that *testConn) send(action string, payload any) {
	that.t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(that.t, err)

	require.NoError(that.t, that.conn.WriteJSON(Message{Action: action, Payload: data}))
}

// expect reads the next message, checks its action and decodes the payload into out.
func (that *testConn) expect(action string, out any) {
	that.t.Helper()

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(readTimeout)))

	var msg Message
	require.NoError(that.t, that.conn.ReadJSON(&msg))
	require.Equal(that.t, action, msg.Action, "payload: %s", string(msg.Payload))

	if out != nil {
		require.NoError(that.t, json.Unmarshal(msg.Payload, out))
	}
}

// sync proves nothing else is queued: a garbage frame is answered with "Invalid request".
func (that *testConn) sync() {
	that.t.Helper()

	require.NoError(that.t, that.conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var resp errorPayload
	that.expect(actionError, &resp)
	require.Equal(that.t, msgInvalidRequest, resp.Message)
}

// startRoom creates a room as alice and seats bob, draining the join events.
func startRoom(t *testing.T, ts *httptest.Server) (*testConn, *testConn, string, gameStatePayload) {
	t.Helper()

	alice := dial(t, ts)
	bob := dial(t, ts)

	alice.send(actionCreateRoom, createRoomRequest{DisplayName: "Alice"})
	var created roomCreatedPayload
	alice.expect(actionRoomCreated, &created)

	bob.send(actionJoinRoom, joinRoomRequest{RoomID: created.RoomID, DisplayName: "Bob"})

	var aliceJoined, bobJoined roomJoinedPayload
	alice.expect(actionRoomJoined, &aliceJoined)
	bob.expect(actionRoomJoined, &bobJoined)

	var state gameStatePayload
	bob.expect(actionGameState, &state)

	return alice, bob, created.RoomID, state
}

func TestServer_CreateAndJoin(t *testing.T) {
	ts := newTestServer(t)

	alice := dial(t, ts)
	bob := dial(t, ts)

	// Given: alice created a room
	alice.send(actionCreateRoom, createRoomRequest{DisplayName: "Alice"})
	var created roomCreatedPayload
	alice.expect(actionRoomCreated, &created)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, created.RoomID)
	assert.Equal(t, entity.MarkX, created.Symbol)

	// When: bob joins with a lower-case code
	bob.send(actionJoinRoom, joinRoomRequest{RoomID: strings.ToLower(created.RoomID), DisplayName: "Bob"})

	// Then: each side learns the other's name
	var aliceJoined, bobJoined roomJoinedPayload
	alice.expect(actionRoomJoined, &aliceJoined)
	assert.Equal(t, created.RoomID, aliceJoined.RoomID)
	assert.Equal(t, "Bob", aliceJoined.OpponentName)

	bob.expect(actionRoomJoined, &bobJoined)
	assert.Equal(t, "Alice", bobJoined.OpponentName)
	assert.Equal(t, entity.MarkO, bobJoined.Symbol)

	// Then: bob gets the full state of a fresh game
	var state gameStatePayload
	bob.expect(actionGameState, &state)
	assert.Equal(t, entity.NewBoard(), state.Board)
	assert.Equal(t, entity.MarkX, state.CurrentPlayer)
	require.Len(t, state.Players, 2)
	assert.Equal(t, "Alice", state.Players[0].DisplayName)
	assert.Equal(t, entity.MarkO, state.Players[1].Symbol)
}

func TestServer_JoinErrors(t *testing.T) {
	t.Run("Unknown room", func(t *testing.T) {
		ts := newTestServer(t)
		bob := dial(t, ts)

		bob.send(actionJoinRoom, joinRoomRequest{RoomID: "NOPE00", DisplayName: "Bob"})

		var resp errorPayload
		bob.expect(actionError, &resp)
		assert.Equal(t, msgRoomNotFound, resp.Message)
	})

	t.Run("Full room", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, roomID, _ := startRoom(t, ts)
		carol := dial(t, ts)

		// When: a third player tries to join
		carol.send(actionJoinRoom, joinRoomRequest{RoomID: roomID, DisplayName: "Carol"})

		// Then: only carol hears about it
		var resp errorPayload
		carol.expect(actionError, &resp)
		assert.Equal(t, msgRoomFull, resp.Message)
		alice.sync()
		bob.sync()
	})

	t.Run("Missing room id", func(t *testing.T) {
		ts := newTestServer(t)
		bob := dial(t, ts)

		bob.send(actionJoinRoom, map[string]string{"displayName": "Bob"})

		var resp errorPayload
		bob.expect(actionError, &resp)
		assert.Equal(t, msgInvalidRequest, resp.Message)
	})

	t.Run("Expired room", func(t *testing.T) {
		clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
		ts := newTestServer(t, usecase.WithClock(clock.Now))
		alice := dial(t, ts)
		bob := dial(t, ts)

		// Given: a room older than its TTL
		alice.send(actionCreateRoom, createRoomRequest{DisplayName: "Alice"})
		var created roomCreatedPayload
		alice.expect(actionRoomCreated, &created)
		clock.Advance(usecase.DefaultRoomTTL + time.Minute)

		// When: bob tries to join
		bob.send(actionJoinRoom, joinRoomRequest{RoomID: created.RoomID, DisplayName: "Bob"})

		// Then: both are told the room expired
		var resp errorPayload
		bob.expect(actionError, &resp)
		assert.Equal(t, msgRoomExpired, resp.Message)

		alice.expect(actionError, &resp)
		assert.Equal(t, msgRoomExpired, resp.Message)

		// Then: the code is gone
		bob.send(actionJoinRoom, joinRoomRequest{RoomID: created.RoomID, DisplayName: "Bob"})
		bob.expect(actionError, &resp)
		assert.Equal(t, msgRoomNotFound, resp.Message)
	})
}

func TestServer_MakeMove(t *testing.T) {
	t.Run("Move is relayed to both players and the turn switches", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, roomID, _ := startRoom(t, ts)

		// When: X plays the center
		alice.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(4)})

		// Then: both see the move and O is next
		for _, conn := range []*testConn{alice, bob} {
			var move moveMadePayload
			conn.expect(actionMoveMade, &move)
			assert.Equal(t, 4, move.CellIndex)
			assert.Equal(t, entity.MarkX, move.Symbol)

			var switched playerSwitchedPayload
			conn.expect(actionPlayerSwitched, &switched)
			assert.Equal(t, entity.MarkO, switched.CurrentPlayer)
		}
	})

	t.Run("Out of turn and occupied moves are silently dropped", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, roomID, _ := startRoom(t, ts)

		// When: O moves first
		bob.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(0)})

		// Then: nobody hears anything
		alice.sync()
		bob.sync()

		// When: X plays 0 and O answers on the same cell
		alice.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(0)})
		alice.expect(actionMoveMade, nil)
		alice.expect(actionPlayerSwitched, nil)
		bob.expect(actionMoveMade, nil)
		bob.expect(actionPlayerSwitched, nil)

		bob.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(0)})

		// Then: it is dropped too
		alice.sync()
		bob.sync()
	})

	t.Run("Missing cell index", func(t *testing.T) {
		ts := newTestServer(t)
		alice, _, roomID, _ := startRoom(t, ts)

		alice.send(actionMakeMove, roomRequest{RoomID: roomID})

		var resp errorPayload
		alice.expect(actionError, &resp)
		assert.Equal(t, msgInvalidRequest, resp.Message)
	})

	t.Run("Winning line then play again", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, roomID, _ := startRoom(t, ts)

		moves := []struct {
			conn *testConn
			cell int
		}{{alice, 0}, {bob, 3}, {alice, 1}, {bob, 4}}

		for _, move := range moves {
			move.conn.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(move.cell)})
			for _, conn := range []*testConn{alice, bob} {
				conn.expect(actionMoveMade, nil)
				conn.expect(actionPlayerSwitched, nil)
			}
		}

		// When: X completes the top row
		alice.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(2)})

		// Then: the move comes first, then the win
		for _, conn := range []*testConn{alice, bob} {
			var move moveMadePayload
			conn.expect(actionMoveMade, &move)
			assert.Equal(t, 2, move.CellIndex)

			var won gameWonPayload
			conn.expect(actionGameWon, &won)
			assert.Equal(t, entity.MarkX, won.Winner)
			assert.Equal(t, [3]int{0, 1, 2}, won.WinningCombo)
		}

		// Then: the concluded board takes no more moves
		bob.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(8)})
		alice.sync()
		bob.sync()

		// When: O alone asks for a rematch
		bob.send(actionPlayAgain, roomRequest{RoomID: roomID})

		// Then: both boards reset and X opens again
		alice.expect(actionGameReset, nil)
		bob.expect(actionGameReset, nil)

		alice.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(8)})
		var move moveMadePayload
		bob.expect(actionMoveMade, &move)
		assert.Equal(t, entity.MarkX, move.Symbol)
	})

	t.Run("Draw", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, roomID, _ := startRoom(t, ts)

		moves := []struct {
			conn *testConn
			cell int
		}{{alice, 0}, {bob, 1}, {alice, 2}, {bob, 4}, {alice, 3}, {bob, 5}, {alice, 7}, {bob, 6}}

		for _, move := range moves {
			move.conn.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(move.cell)})
			for _, conn := range []*testConn{alice, bob} {
				conn.expect(actionMoveMade, nil)
				conn.expect(actionPlayerSwitched, nil)
			}
		}

		alice.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(8)})

		for _, conn := range []*testConn{alice, bob} {
			conn.expect(actionMoveMade, nil)
			conn.expect(actionGameDraw, nil)
		}
	})

	t.Run("Play again during a game is ignored", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, roomID, _ := startRoom(t, ts)

		alice.send(actionPlayAgain, roomRequest{RoomID: roomID})

		alice.sync()
		bob.sync()
	})
}

func TestServer_UpdateName(t *testing.T) {
	ts := newTestServer(t)
	alice, bob, roomID, state := startRoom(t, ts)

	// When: alice renames
	alice.send(actionUpdateName, updateNameRequest{RoomID: roomID, DisplayName: "Alicia"})

	// Then: only bob is told
	var updated playerNameUpdatedPayload
	bob.expect(actionPlayerNameUpdated, &updated)
	assert.Equal(t, state.Players[0].ConnectionID, updated.ConnectionID)
	assert.Equal(t, "Alicia", updated.DisplayName)

	alice.sync()
}

func TestServer_Leave(t *testing.T) {
	t.Run("Explicit leave notifies the survivor", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, roomID, _ := startRoom(t, ts)

		bob.send(actionLeaveRoom, roomRequest{RoomID: roomID})

		alice.expect(actionPlayerLeft, nil)
		bob.sync()

		// Then: the survivor cannot move alone
		alice.send(actionMakeMove, makeMoveRequest{RoomID: roomID, CellIndex: ptr(4)})
		alice.sync()
	})

	t.Run("Disconnect notifies the survivor", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, _, _ := startRoom(t, ts)

		require.NoError(t, bob.conn.Close())

		alice.expect(actionPlayerLeft, nil)
	})

	t.Run("Leaving without a room is ignored", func(t *testing.T) {
		ts := newTestServer(t)
		carol := dial(t, ts)

		carol.send(actionLeaveRoom, roomRequest{})

		carol.sync()
	})

	t.Run("Creating a new room leaves the old one", func(t *testing.T) {
		ts := newTestServer(t)
		alice, bob, _, _ := startRoom(t, ts)

		bob.send(actionCreateRoom, createRoomRequest{DisplayName: "Bob"})

		bob.expect(actionRoomCreated, nil)
		alice.expect(actionPlayerLeft, nil)
	})
}

func TestServer_UnknownActionIsIgnored(t *testing.T) {
	ts := newTestServer(t)
	alice := dial(t, ts)

	alice.send("teleport", map[string]int{"cellIndex": 4})

	alice.sync()
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example.com"}}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		_ = conn.Close()
	}

	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func ptr(v int) *int {
	return &v
}
