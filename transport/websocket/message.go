package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

// Inbound actions.
const (
	ActionNewMove = "new move"
)

// Outbound events.
const (
	EventInfo            = "info"
	EventPlayerMoves     = "player moves"
	EventYourTurn        = "your turn"
	EventOtherPlayerTurn = "other player turn"
	EventPositionTaken   = "position taken"
	EventIDNotFound      = "id not found"
	EventGameCreated     = "game created"
	EventWin             = "win"
	EventLose            = "lose"
	EventTie             = "tie"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MovesPayload - the full board snapshot sent after every accepted move and at game start.
type MovesPayload struct {
	BoardA entity.Board `json:"boardA"`
	BoardB entity.Board `json:"boardB"`
}

type GameCreatedPayload struct {
	GameID string `json:"gameId"`
}

func encodeMessage(action string, payload any) ([]byte, error) {
	msg := Message{Action: action}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}

	return json.Marshal(msg)
}
