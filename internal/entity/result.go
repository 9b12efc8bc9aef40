package entity

import "time"

// Result - the archived summary of a finished game.
type Result struct {
	GameID     string    `json:"game_id,omitempty"`
	Type       string    `json:"type"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason"`
	Moves      int       `json:"moves"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewResult(state GameState, finishedAt time.Time) Result {
	return Result{
		GameID:     state.ID,
		Type:       state.Type,
		Outcome:    state.Outcome,
		Reason:     state.Reason,
		Moves:      state.BoardA.Count() + state.BoardB.Count(),
		FinishedAt: finishedAt,
	}
}

// Tally - aggregated counters over archived results.
type Tally struct {
	AWins    int64 `json:"a_wins"`
	BWins    int64 `json:"b_wins"`
	Draws    int64 `json:"draws"`
	Forfeits int64 `json:"forfeits"`
}
