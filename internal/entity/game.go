package entity

import (
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusRunning  = "running"
	StatusWaiting  = "waiting"
)

const (
	PublicType  = "public"
	PrivateType = "private"
)

const (
	ReasonCompleted = "completed"
	ReasonForfeit   = "forfeit"
	ReasonAbandoned = "abandoned"
)

// Game - one session between up to two players. All state is guarded by mu,
// so every method is atomic with respect to the others.
type Game struct {
	mu sync.Mutex

	id       string
	gameType string

	players [2]*Player
	boards  [2]Board
	turn    Role
	status  string
	outcome Outcome
	reason  string
}

// GameState - a copy of the game taken under its lock.
type GameState struct {
	ID      string    `json:"id,omitempty"`
	Type    string    `json:"type"`
	BoardA  Board     `json:"boardA"`
	BoardB  Board     `json:"boardB"`
	Turn    Role      `json:"turn,omitempty"`
	Status  string    `json:"status"`
	Outcome Outcome   `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	Players []*Player `json:"players,omitempty"`
}

// NewGame - creates a waiting game with playerID bound as role A. Public games carry no id.
func NewGame(id, gameType, playerID string) *Game {
	return &Game{
		id:       id,
		gameType: gameType,
		players:  [2]*Player{{ID: playerID, Role: RoleA}},
		turn:     RoleNone,
		status:   StatusWaiting,
		outcome:  OutcomeRunning,
	}
}

func (that *Game) ID() string {
	return that.id
}

func (that *Game) IsPublic() bool {
	return that.gameType == PublicType
}

// Join - binds playerID as role B and starts the game. aStarts picks who moves first.
func (that *Game) Join(playerID string, aStarts bool) (GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.players[0].ID == playerID {
		return that.state(), apperror.ErrAlreadyInGame
	}

	switch that.status {
	case StatusRunning:
		return that.state(), apperror.ErrGameIsFull
	case StatusFinished:
		return that.state(), apperror.ErrGameFinished
	}

	that.players[1] = &Player{ID: playerID, Role: RoleB}
	that.status = StatusRunning

	if aStarts {
		that.turn = RoleA
	} else {
		that.turn = RoleB
	}

	return that.state(), nil
}

// ApplyMove - marks the cell for role when it is that role's turn and the cell is free.
// A rejected move leaves the game untouched.
func (that *Game) ApplyMove(role Role, row, col int) (GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch that.status {
	case StatusWaiting:
		return that.state(), apperror.ErrGameIsNotStarted
	case StatusFinished:
		return that.state(), apperror.ErrGameFinished
	}

	if role != that.turn {
		return that.state(), apperror.ErrNotYourTurn
	}

	if !InBounds(row, col) {
		return that.state(), fmt.Errorf("%w: row %d col %d", apperror.ErrInvalidCell, row, col)
	}

	if that.boards[0].IsSet(row, col) || that.boards[1].IsSet(row, col) {
		return that.state(), apperror.ErrCellOccupied
	}

	that.boards[role.index()].Set(row, col)

	if outcome := Evaluate(that.boards[0], that.boards[1]); outcome != OutcomeRunning {
		that.finish(outcome, ReasonCompleted)
	} else {
		that.turn = that.turn.Other()
	}

	return that.state(), nil
}

// Leave - ends the game because playerID left. A running game is forfeited to the opponent,
// a waiting one is abandoned.
func (that *Game) Leave(playerID string) (GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	role := that.roleOf(playerID)
	if role == RoleNone {
		return that.state(), apperror.ErrNotInGame
	}

	switch that.status {
	case StatusFinished:
		return that.state(), apperror.ErrGameFinished
	case StatusWaiting:
		that.finish(OutcomeAbandoned, ReasonAbandoned)
	default:
		that.finish(winsFor(role.Other()), ReasonForfeit)
	}

	return that.state(), nil
}

// RoleOf - returns the role playerID holds, or RoleNone.
func (that *Game) RoleOf(playerID string) Role {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.roleOf(playerID)
}

func (that *Game) State() GameState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state()
}

func (that *Game) IsWaiting() bool {
	return that.State().Status == StatusWaiting
}

func (that *Game) IsFinished() bool {
	return that.State().Status == StatusFinished
}

func (that *Game) roleOf(playerID string) Role {
	for _, player := range that.players {
		if player != nil && player.ID == playerID {
			return player.Role
		}
	}
	return RoleNone
}

func (that *Game) finish(outcome Outcome, reason string) {
	that.status = StatusFinished
	that.outcome = outcome
	that.reason = reason
}

func (that *Game) state() GameState {
	players := make([]*Player, 0, len(that.players))
	for _, player := range that.players {
		if player != nil {
			players = append(players, &Player{ID: player.ID, Role: player.Role})
		}
	}

	return GameState{
		ID:      that.id,
		Type:    that.gameType,
		BoardA:  that.boards[0],
		BoardB:  that.boards[1],
		Turn:    that.turn,
		Status:  that.status,
		Outcome: that.outcome,
		Reason:  that.reason,
		Players: players,
	}
}

// Opponent - returns the other bound player of the state, or nil.
func (that GameState) Opponent(playerID string) *Player {
	for _, player := range that.Players {
		if player.ID != playerID {
			return player
		}
	}
	return nil
}

func (that GameState) IsFinished() bool {
	return that.Status == StatusFinished
}
