package websocket

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
)

type sentEvent struct {
	Action  string
	Payload any
}

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []sentEvent
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (that *fakeConn) ID() string {
	return that.id
}

func (that *fakeConn) Send(action string, payload any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return ErrConnClosed
	}

	that.events = append(that.events, sentEvent{Action: action, Payload: payload})
	return nil
}

func (that *fakeConn) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
	return nil
}

// take - returns the actions received since the last call.
func (that *fakeConn) take() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	actions := make([]string, 0, len(that.events))
	for _, event := range that.events {
		actions = append(actions, event.Action)
	}
	that.events = nil

	return actions
}

func (that *fakeConn) last(action string) (sentEvent, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for i := len(that.events) - 1; i >= 0; i-- {
		if that.events[i].Action == action {
			return that.events[i], true
		}
	}
	return sentEvent{}, false
}

func (that *fakeConn) isClosed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.closed
}

func newTestHandler(t *testing.T, aStarts bool) (*Handler, *usecase.GameManager) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewGameManager(logger, tictactoe.FixedCoin(aStarts), nil)

	return NewHandler(logger, manager), manager
}

// startQuickMatch - connects two players through quick-match and clears their inboxes.
func startQuickMatch(t *testing.T, handler *Handler) (*fakeConn, *fakeConn) {
	t.Helper()

	ctx := context.Background()
	first, second := newFakeConn("p1"), newFakeConn("p2")
	require.NoError(t, handler.HandleConnect(ctx, first, Intent{}))
	require.NoError(t, handler.HandleConnect(ctx, second, Intent{}))
	first.take()
	second.take()

	return first, second
}

func TestHandler_QuickMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Second join starts the game with one your turn", func(t *testing.T) {
		// Given: a handler whose coin lets A start
		handler, manager := newTestHandler(t, true)
		first, second := newFakeConn("p1"), newFakeConn("p2")

		// When: the first player connects
		require.NoError(t, handler.HandleConnect(ctx, first, Intent{}))

		// Then: they are told to wait
		assert.Equal(t, []string{EventInfo}, first.take())

		// When: the second player connects
		require.NoError(t, handler.HandleConnect(ctx, second, Intent{}))

		// Then: both get the empty board, A is asked to move and B to wait
		snapshot, ok := first.last(EventPlayerMoves)
		require.True(t, ok)
		assert.Equal(t, MovesPayload{}, snapshot.Payload)

		assert.Equal(t, []string{EventInfo, EventPlayerMoves, EventYourTurn}, first.take())
		assert.Equal(t, []string{EventInfo, EventPlayerMoves, EventOtherPlayerTurn}, second.take())
		assert.Equal(t, usecase.Counts{Running: 1}, manager.Counts())
	})

	t.Run("Coin picking B sends your turn to B", func(t *testing.T) {
		handler, _ := newTestHandler(t, false)
		first, second := newFakeConn("p1"), newFakeConn("p2")

		require.NoError(t, handler.HandleConnect(ctx, first, Intent{}))
		require.NoError(t, handler.HandleConnect(ctx, second, Intent{}))

		assert.Equal(t, []string{EventInfo, EventInfo, EventPlayerMoves, EventOtherPlayerTurn}, first.take())
		assert.Equal(t, []string{EventInfo, EventPlayerMoves, EventYourTurn}, second.take())
	})
}

func TestHandler_HandleMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Accepted move is broadcast and the turn passes", func(t *testing.T) {
		handler, _ := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)

		require.NoError(t, handler.HandleMove(ctx, first, "B2"))

		snapshot, ok := second.last(EventPlayerMoves)
		require.True(t, ok)
		var want MovesPayload
		want.BoardA.Set(1, 1)
		assert.Equal(t, want, snapshot.Payload)

		assert.Equal(t, []string{EventPlayerMoves, EventOtherPlayerTurn}, first.take())
		assert.Equal(t, []string{EventPlayerMoves, EventYourTurn}, second.take())
	})

	t.Run("Taken position is reported to the mover only", func(t *testing.T) {
		// Given: A has played A1
		handler, _ := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)
		require.NoError(t, handler.HandleMove(ctx, first, "A1"))
		first.take()
		second.take()

		// When: B plays A1 as well
		require.NoError(t, handler.HandleMove(ctx, second, "A1"))

		// Then: only B hears about it and can still move
		assert.Equal(t, []string{EventPositionTaken}, second.take())
		assert.Empty(t, first.take())

		require.NoError(t, handler.HandleMove(ctx, second, "C3"))
		assert.Equal(t, []string{EventPlayerMoves, EventOtherPlayerTurn}, second.take())
	})

	t.Run("Malformed move re-prompts locally", func(t *testing.T) {
		handler, _ := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)

		require.NoError(t, handler.HandleMove(ctx, first, "b2"))

		assert.Equal(t, []string{EventInfo, EventYourTurn}, first.take())
		assert.Empty(t, second.take())
	})

	t.Run("Malformed move out of turn gets no prompt", func(t *testing.T) {
		handler, _ := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)

		require.NoError(t, handler.HandleMove(ctx, second, "B4"))

		assert.Equal(t, []string{EventInfo}, second.take())
		assert.Empty(t, first.take())
	})

	t.Run("Move out of turn is dropped", func(t *testing.T) {
		handler, _ := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)

		require.NoError(t, handler.HandleMove(ctx, second, "A1"))

		assert.Empty(t, first.take())
		assert.Empty(t, second.take())
	})

	t.Run("Move before an opponent arrives is dropped", func(t *testing.T) {
		handler, _ := newTestHandler(t, true)
		first := newFakeConn("p1")
		require.NoError(t, handler.HandleConnect(ctx, first, Intent{}))
		first.take()

		require.NoError(t, handler.HandleMove(ctx, first, "A1"))

		assert.Empty(t, first.take())
	})

	t.Run("Row win ends the game for both sides", func(t *testing.T) {
		// Given: a running quick-match game where A starts
		handler, manager := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)

		// When: A fills row A
		for i, move := range []string{"A1", "B1", "A2", "B2", "A3"} {
			conn := first
			if i%2 == 1 {
				conn = second
			}
			require.NoError(t, handler.HandleMove(ctx, conn, move))
		}

		// Then: A wins, B loses and the game is gone
		firstEvents, secondEvents := first.take(), second.take()
		assert.Equal(t, []string{EventPlayerMoves, EventWin}, firstEvents[len(firstEvents)-2:])
		assert.Equal(t, []string{EventPlayerMoves, EventLose}, secondEvents[len(secondEvents)-2:])
		assert.Equal(t, usecase.Counts{}, manager.Counts())

		// And: later moves are dropped
		require.NoError(t, handler.HandleMove(ctx, second, "C1"))
		assert.Empty(t, first.take())
		assert.Empty(t, second.take())
	})

	t.Run("Draw sends tie to both", func(t *testing.T) {
		handler, _ := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)

		for i, move := range []string{"A1", "A2", "A3", "B2", "B1", "B3", "C2", "C1", "C3"} {
			conn := first
			if i%2 == 1 {
				conn = second
			}
			require.NoError(t, handler.HandleMove(ctx, conn, move))
		}

		firstEvents, secondEvents := first.take(), second.take()
		assert.Equal(t, EventTie, firstEvents[len(firstEvents)-1])
		assert.Equal(t, EventTie, secondEvents[len(secondEvents)-1])
	})
}

func TestHandler_Private(t *testing.T) {
	ctx := context.Background()

	t.Run("Created game can be joined by id", func(t *testing.T) {
		// Given: p1 creates a private game
		handler, _ := newTestHandler(t, true)
		creator := newFakeConn("p1")
		require.NoError(t, handler.HandleConnect(ctx, creator, Intent{CreateNew: true}))

		created, ok := creator.last(EventGameCreated)
		require.True(t, ok)
		gameID := created.Payload.(GameCreatedPayload).GameID
		require.NotEmpty(t, gameID)
		assert.Equal(t, []string{EventInfo, EventGameCreated}, creator.take())

		// And: a quick-match player does not land in it
		stranger := newFakeConn("p3")
		require.NoError(t, handler.HandleConnect(ctx, stranger, Intent{}))
		assert.Equal(t, []string{EventInfo}, stranger.take())
		assert.Empty(t, creator.take())

		// When: p2 joins with the id
		joiner := newFakeConn("p2")
		require.NoError(t, handler.HandleConnect(ctx, joiner, Intent{GameID: gameID}))

		// Then: the game starts for both
		assert.Equal(t, []string{EventInfo, EventPlayerMoves, EventYourTurn}, creator.take())
		assert.Equal(t, []string{EventInfo, EventPlayerMoves, EventOtherPlayerTurn}, joiner.take())
	})

	t.Run("Unknown id is rejected and closed", func(t *testing.T) {
		handler, manager := newTestHandler(t, true)
		conn := newFakeConn("p1")

		require.NoError(t, handler.HandleConnect(ctx, conn, Intent{GameID: "no-such-game"}))

		assert.Equal(t, []string{EventIDNotFound}, conn.take())
		assert.True(t, conn.isClosed())
		assert.Equal(t, usecase.Counts{}, manager.Counts())
	})

	t.Run("Started game is rejected", func(t *testing.T) {
		handler, _ := newTestHandler(t, true)
		creator := newFakeConn("p1")
		require.NoError(t, handler.HandleConnect(ctx, creator, Intent{CreateNew: true}))
		created, ok := creator.last(EventGameCreated)
		require.True(t, ok)
		gameID := created.Payload.(GameCreatedPayload).GameID
		require.NoError(t, handler.HandleConnect(ctx, newFakeConn("p2"), Intent{GameID: gameID}))
		creator.take()

		late := newFakeConn("p3")
		require.NoError(t, handler.HandleConnect(ctx, late, Intent{GameID: gameID}))

		assert.Equal(t, []string{EventInfo, EventIDNotFound}, late.take())
		assert.True(t, late.isClosed())
		assert.Empty(t, creator.take())
	})
}

func TestHandler_HandleDisconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("Leaving mid-game hands the win to the opponent", func(t *testing.T) {
		// Given: a running game
		handler, manager := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)

		// When: B disconnects
		handler.HandleDisconnect(ctx, second)

		// Then: A is told and wins, and the game is gone
		assert.Equal(t, []string{EventInfo, EventWin}, first.take())
		assert.Equal(t, usecase.Counts{}, manager.Counts())

		// And: A's later moves are dropped
		require.NoError(t, handler.HandleMove(ctx, first, "A1"))
		assert.Empty(t, first.take())
	})

	t.Run("Leaving while waiting frees the public slot", func(t *testing.T) {
		handler, manager := newTestHandler(t, true)
		first := newFakeConn("p1")
		require.NoError(t, handler.HandleConnect(ctx, first, Intent{}))

		handler.HandleDisconnect(ctx, first)
		assert.Equal(t, usecase.Counts{}, manager.Counts())

		next := newFakeConn("p2")
		require.NoError(t, handler.HandleConnect(ctx, next, Intent{}))
		assert.Equal(t, []string{EventInfo}, next.take())
		assert.Equal(t, usecase.Counts{Waiting: 1}, manager.Counts())
	})

	t.Run("Leaving after the game ended is quiet", func(t *testing.T) {
		handler, _ := newTestHandler(t, true)
		first, second := startQuickMatch(t, handler)
		handler.HandleDisconnect(ctx, second)
		first.take()

		handler.HandleDisconnect(ctx, first)

		assert.Empty(t, first.take())
	})
}

func TestHandler_CloseAll(t *testing.T) {
	handler, _ := newTestHandler(t, true)
	first, second := startQuickMatch(t, handler)

	handler.CloseAll()

	assert.True(t, first.isClosed())
	assert.True(t, second.isClosed())
}

func TestGameStateRoles(t *testing.T) {
	// the handler relies on quick-match binding the first connection as A
	handler, manager := newTestHandler(t, true)
	first, _ := startQuickMatch(t, handler)

	game := handler.gameOf(first.ID())
	require.NotNil(t, game)
	assert.Equal(t, entity.RoleA, game.RoleOf(first.ID()))
	assert.True(t, manager.Contains(game))
}
