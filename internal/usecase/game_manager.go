package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/tictactoe"
)

type resultRepo interface {
	Save(ctx context.Context, result entity.Result) error
}

// GameManager - owns every waiting and running game of the process.
// Matchmaking runs under mu, so concurrent joins never pair into the same slot twice.
type GameManager struct {
	logger  *slog.Logger
	coin    tictactoe.Coin
	results resultRepo

	newID func() string
	now   func() time.Time

	mu      sync.Mutex
	waiting *entity.Game
	private map[string]*entity.Game
	active  map[*entity.Game]struct{}
}

// Counts - the number of live games by status.
type Counts struct {
	Waiting int `json:"waiting"`
	Running int `json:"running"`
}

// NewGameManager - results may be nil, finished games are then only logged.
func NewGameManager(logger *slog.Logger, coin tictactoe.Coin, results resultRepo) *GameManager {
	return &GameManager{
		logger:  logger.With("component", "game_manager"),
		coin:    coin,
		results: results,

		newID: uuid.NewString,
		now:   time.Now,

		private: make(map[string]*entity.Game),
		active:  make(map[*entity.Game]struct{}),
	}
}

// JoinQuickMatch - joins the waiting public game as B, or opens a new one with playerID as A.
func (that *GameManager) JoinQuickMatch(_ context.Context, playerID string) (*entity.Game, entity.GameState, error) {
	log := that.logger.With("method", "JoinQuickMatch", "playerID", playerID)

	that.mu.Lock()
	defer that.mu.Unlock()

	if game := that.waiting; game != nil {
		state, err := game.Join(playerID, that.coin.Flip())
		if err == nil {
			that.waiting = nil
			log.Info("public game started", "turn", state.Turn)
			return game, state, nil
		}

		if errors.Is(err, apperror.ErrAlreadyInGame) {
			return nil, state, fmt.Errorf("failed to join public game: %w", err)
		}

		// the slot only ever holds waiting games, anything else is stale
		log.Warn("dropping stale public game", "error", err)
		that.removeLocked(game)
	}

	game := entity.NewGame("", entity.PublicType, playerID)
	that.waiting = game
	that.active[game] = struct{}{}

	log.Info("public game created, waiting for second player")

	return game, game.State(), nil
}

// CreatePrivate - opens a new private game with playerID as A. The id is returned in the state.
func (that *GameManager) CreatePrivate(_ context.Context, playerID string) (*entity.Game, entity.GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := that.newID()
	if _, exists := that.private[id]; exists {
		return nil, entity.GameState{}, fmt.Errorf("failed to create private game: duplicate id %s", id)
	}

	game := entity.NewGame(id, entity.PrivateType, playerID)
	that.private[id] = game
	that.active[game] = struct{}{}

	that.logger.Info("private game created", "gameID", id, "playerID", playerID)

	return game, game.State(), nil
}

// JoinPrivate - joins the private game id as B. Unknown ids leave the manager untouched.
func (that *GameManager) JoinPrivate(_ context.Context, playerID, id string) (*entity.Game, entity.GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.private[id]
	if !ok {
		return nil, entity.GameState{}, fmt.Errorf("%w: game id %s", apperror.ErrGameNotFound, id)
	}

	state, err := game.Join(playerID, that.coin.Flip())
	if err != nil {
		return nil, state, fmt.Errorf("failed to join game %s: %w", id, err)
	}

	that.logger.Info("private game started", "gameID", id, "playerID", playerID, "turn", state.Turn)

	return game, state, nil
}

// MakeTurn - applies the move of playerID and drops the game once it is finished.
func (that *GameManager) MakeTurn(ctx context.Context, game *entity.Game, playerID string, row, col int) (entity.GameState, error) {
	role := game.RoleOf(playerID)
	if role == entity.RoleNone {
		return game.State(), apperror.ErrNotInGame
	}

	state, err := game.ApplyMove(role, row, col)
	if err != nil {
		return state, fmt.Errorf("failed to make turn: %w", err)
	}

	that.logger.Debug("move applied", "gameID", state.ID, "role", role, "move", tictactoe.EncodeMove(row, col))

	if state.IsFinished() {
		that.Remove(game)
		that.record(ctx, state)
	}

	return state, nil
}

// Leave - ends the game of a player who went away and drops it.
func (that *GameManager) Leave(ctx context.Context, game *entity.Game, playerID string) (entity.GameState, error) {
	that.mu.Lock()
	state, err := game.Leave(playerID)
	if err == nil {
		that.removeLocked(game)
	}
	that.mu.Unlock()

	if err != nil {
		return state, fmt.Errorf("failed to leave game: %w", err)
	}

	that.logger.Info("player left game", "gameID", state.ID, "playerID", playerID, "outcome", state.Outcome)
	that.record(ctx, state)

	return state, nil
}

// Remove - drops game from whichever set holds it.
func (that *GameManager) Remove(game *entity.Game) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.removeLocked(game)
}

// Contains - reports whether game is still live.
func (that *GameManager) Contains(game *entity.Game) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, ok := that.active[game]
	return ok
}

func (that *GameManager) Counts() Counts {
	that.mu.Lock()
	defer that.mu.Unlock()

	var counts Counts
	for game := range that.active {
		if game.IsWaiting() {
			counts.Waiting++
		} else {
			counts.Running++
		}
	}

	return counts
}

func (that *GameManager) removeLocked(game *entity.Game) {
	delete(that.active, game)

	if that.waiting == game {
		that.waiting = nil
	}

	if id := game.ID(); id != "" && that.private[id] == game {
		delete(that.private, id)
	}
}

func (that *GameManager) record(ctx context.Context, state entity.GameState) {
	log := that.logger.With("method", "record", "gameID", state.ID)

	log.Info("game finished", "outcome", state.Outcome, "reason", state.Reason)

	if that.results == nil || state.Outcome == entity.OutcomeAbandoned {
		return
	}

	if err := that.results.Save(ctx, entity.NewResult(state, that.now())); err != nil {
		log.Error("failed to save result", "error", err)
	}
}
