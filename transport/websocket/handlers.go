package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/tictactoe"
)

const (
	infoFirstPlayer  = "You are the first player, we are waiting for a second player to join..."
	infoSecondJoined = "A second player has joined! Time to start the game!"
	infoSecondPlayer = "You are the second player, the game will now start!"
	infoInvalidMove  = "Invalid input, please enter a capital letter followed by a number (i.e. A1, B2, etc.)"
	infoGameStarted  = "That game has already started."
	infoOpponentLeft = "Your opponent has left the game."
	infoGameCreated  = "Your game id is %s. Share it with the other player, we are waiting for them to join..."
)

type gameManager interface {
	JoinQuickMatch(ctx context.Context, playerID string) (*entity.Game, entity.GameState, error)
	CreatePrivate(ctx context.Context, playerID string) (*entity.Game, entity.GameState, error)
	JoinPrivate(ctx context.Context, playerID, id string) (*entity.Game, entity.GameState, error)

	MakeTurn(ctx context.Context, game *entity.Game, playerID string, row, col int) (entity.GameState, error)
	Leave(ctx context.Context, game *entity.Game, playerID string) (entity.GameState, error)
}

// Intent - what a connection asked for when it connected. Neither field set means quick-match.
type Intent struct {
	CreateNew bool
	GameID    string
}

// Handler - binds connections to games and turns game state changes into events.
// A connection is bound to at most one game at a time.
type Handler struct {
	logger  *slog.Logger
	manager gameManager

	mu    sync.RWMutex
	conns map[string]Conn
	games map[string]*entity.Game
}

func NewHandler(logger *slog.Logger, manager gameManager) *Handler {
	return &Handler{
		logger:  logger.With("component", "ws_handler"),
		manager: manager,
		conns:   make(map[string]Conn),
		games:   make(map[string]*entity.Game),
	}
}

// HandleConnect - places a new connection into a game according to its intent.
func (that *Handler) HandleConnect(ctx context.Context, conn Conn, intent Intent) error {
	log := that.logger.With("method", "HandleConnect", "connID", conn.ID())

	that.mu.Lock()
	that.conns[conn.ID()] = conn
	that.mu.Unlock()

	switch {
	case intent.GameID != "":
		return that.joinPrivate(ctx, conn, intent.GameID)
	case intent.CreateNew:
		return that.createPrivate(ctx, conn)
	default:
		game, state, err := that.manager.JoinQuickMatch(ctx, conn.ID())
		if err != nil {
			that.drop(conn)
			return fmt.Errorf("failed to join quick-match: %w", err)
		}

		that.bind(conn.ID(), game)

		if state.Status == entity.StatusWaiting {
			log.Info("player waits for public game")
			that.send(conn.ID(), EventInfo, infoFirstPlayer)
			return nil
		}

		that.startGame(state)
		return nil
	}
}

func (that *Handler) createPrivate(ctx context.Context, conn Conn) error {
	game, state, err := that.manager.CreatePrivate(ctx, conn.ID())
	if err != nil {
		that.drop(conn)
		return fmt.Errorf("failed to create private game: %w", err)
	}

	that.bind(conn.ID(), game)

	that.send(conn.ID(), EventInfo, fmt.Sprintf(infoGameCreated, state.ID))
	that.send(conn.ID(), EventGameCreated, GameCreatedPayload{GameID: state.ID})

	return nil
}

func (that *Handler) joinPrivate(ctx context.Context, conn Conn, gameID string) error {
	log := that.logger.With("method", "joinPrivate", "connID", conn.ID(), "gameID", gameID)

	game, state, err := that.manager.JoinPrivate(ctx, conn.ID(), gameID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrGameNotFound):
		log.Info("game id not found")
		that.reject(conn)
		return nil
	case errors.Is(err, apperror.ErrGameIsFull), errors.Is(err, apperror.ErrGameFinished):
		log.Info("game id already taken")
		that.send(conn.ID(), EventInfo, infoGameStarted)
		that.reject(conn)
		return nil
	default:
		that.drop(conn)
		return fmt.Errorf("failed to join private game: %w", err)
	}

	that.bind(conn.ID(), game)
	that.startGame(state)

	return nil
}

// HandleMove - decodes and applies a move, then tells both players what happened.
func (that *Handler) HandleMove(ctx context.Context, conn Conn, text string) error {
	log := that.logger.With("method", "HandleMove", "connID", conn.ID())

	game := that.gameOf(conn.ID())
	if game == nil {
		log.Warn("move without a game dropped", "move", text)
		return nil
	}

	row, col, err := tictactoe.DecodeMove(text)
	if err != nil {
		that.send(conn.ID(), EventInfo, infoInvalidMove)
		if state := game.State(); state.Status == entity.StatusRunning && state.Turn == game.RoleOf(conn.ID()) {
			that.send(conn.ID(), EventYourTurn, nil)
		}
		return nil
	}

	state, err := that.manager.MakeTurn(ctx, game, conn.ID(), row, col)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrCellOccupied):
		that.send(conn.ID(), EventPositionTaken, nil)
		return nil
	case errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrGameIsNotStarted),
		errors.Is(err, apperror.ErrNotInGame):
		log.Warn("move dropped", "move", text, "error", err)
		return nil
	default:
		return fmt.Errorf("failed to make turn: %w", err)
	}

	that.broadcastMoves(state)

	if state.IsFinished() {
		that.finishGame(state)
		return nil
	}

	that.notifyTurn(state)

	return nil
}

// HandleDisconnect - forgets the connection and ends its game, if any.
func (that *Handler) HandleDisconnect(ctx context.Context, conn Conn) {
	log := that.logger.With("method", "HandleDisconnect", "connID", conn.ID())

	that.mu.Lock()
	game := that.games[conn.ID()]
	delete(that.games, conn.ID())
	delete(that.conns, conn.ID())
	that.mu.Unlock()

	if game == nil {
		return
	}

	state, err := that.manager.Leave(ctx, game, conn.ID())
	if err != nil {
		if !errors.Is(err, apperror.ErrGameFinished) {
			log.Error("failed to leave game", "error", err)
		}
		return
	}

	if state.Reason != entity.ReasonForfeit {
		return
	}

	if opponent := state.Opponent(conn.ID()); opponent != nil {
		that.send(opponent.ID, EventInfo, infoOpponentLeft)
		that.send(opponent.ID, EventWin, nil)
		that.unbind(opponent.ID)
	}
}

// CloseAll - closes every known connection.
func (that *Handler) CloseAll() {
	that.mu.RLock()
	conns := make([]Conn, 0, len(that.conns))
	for _, conn := range that.conns {
		conns = append(conns, conn)
	}
	that.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (that *Handler) startGame(state entity.GameState) {
	for _, player := range state.Players {
		if player.Role == entity.RoleA {
			that.send(player.ID, EventInfo, infoSecondJoined)
		} else {
			that.send(player.ID, EventInfo, infoSecondPlayer)
		}
	}

	that.broadcastMoves(state)
	that.notifyTurn(state)
}

func (that *Handler) broadcastMoves(state entity.GameState) {
	payload := MovesPayload{BoardA: state.BoardA, BoardB: state.BoardB}
	for _, player := range state.Players {
		that.send(player.ID, EventPlayerMoves, payload)
	}
}

func (that *Handler) notifyTurn(state entity.GameState) {
	for _, player := range state.Players {
		if player.Role == state.Turn {
			that.send(player.ID, EventYourTurn, nil)
		} else {
			that.send(player.ID, EventOtherPlayerTurn, nil)
		}
	}
}

// finishGame - sends each side its outcome and frees both connections.
func (that *Handler) finishGame(state entity.GameState) {
	winner := state.Outcome.Winner()

	for _, player := range state.Players {
		switch {
		case winner == entity.RoleNone:
			that.send(player.ID, EventTie, nil)
		case player.Role == winner:
			that.send(player.ID, EventWin, nil)
		default:
			that.send(player.ID, EventLose, nil)
		}

		that.unbind(player.ID)
	}
}

// reject - tells the connection its game id does not exist and closes it.
func (that *Handler) reject(conn Conn) {
	that.send(conn.ID(), EventIDNotFound, nil)
	that.drop(conn)

	if err := conn.Close(); err != nil {
		that.logger.Error("failed to close connection", "connID", conn.ID(), "error", err)
	}
}

func (that *Handler) drop(conn Conn) {
	that.mu.Lock()
	delete(that.conns, conn.ID())
	delete(that.games, conn.ID())
	that.mu.Unlock()
}

func (that *Handler) bind(connID string, game *entity.Game) {
	that.mu.Lock()
	that.games[connID] = game
	that.mu.Unlock()
}

func (that *Handler) unbind(connID string) {
	that.mu.Lock()
	delete(that.games, connID)
	that.mu.Unlock()
}

func (that *Handler) gameOf(connID string) *entity.Game {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.games[connID]
}

func (that *Handler) send(connID, action string, payload any) {
	that.mu.RLock()
	conn, ok := that.conns[connID]
	that.mu.RUnlock()

	if !ok {
		that.logger.Warn("connection not found", "connID", connID, "action", action)
		return
	}

	if err := conn.Send(action, payload); err != nil {
		that.logger.Error("failed to send message", "connID", connID, "action", action, "error", err)
	}
}
