// internal/protocol/messages.go

// Package protocol defines the typed message schema exchanged over a room's
// event stream. Every client event is a distinct struct selected by its
// "type" tag, so adding an event is a compile-checked variant addition
// rather than a runtime shape check.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/skirmish/internal/game"
)

// MessageType tags every message on the wire.
type MessageType string

const (
	// client -> server
	TypeJoinGame    MessageType = "join_game"
	TypeListRooms   MessageType = "list_rooms"
	TypeMulligan    MessageType = "mulligan"
	TypePlayCard    MessageType = "play_card"
	TypePass        MessageType = "pass"
	TypeRestartGame MessageType = "restart_game"

	// server -> client
	TypeGameStateUpdate MessageType = "game_state_update"
	TypeRoomsList       MessageType = "rooms_list"
	TypeJoined          MessageType = "joined"
	TypeError           MessageType = "error"
)

// ClientMessage is implemented by every decoded client event.
type ClientMessage interface{ clientMessage() }

// JoinGame joins or creates a room and registers the player's identity.
// Token, when present, is a seat token from a previous join and lets a
// reconnecting client reclaim a seat that is still marked connected.
type JoinGame struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Token    string `json:"token,omitempty"`
}

// ListRooms requests the current room directory.
type ListRooms struct{}

// Mulligan submits the player's one-time opening exchange.
type Mulligan struct {
	RoomID   string   `json:"room_id"`
	PlayerID string   `json:"player_id"`
	CardIDs  []string `json:"card_ids"`
}

// PlayCard submits a play action with an optional ability target.
type PlayCard struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	CardID   string `json:"card_id"`
	TargetID string `json:"target_id,omitempty"`
}

// Pass submits a pass action.
type Pass struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

// RestartGame requests a match restart from GameEnd.
type RestartGame struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

func (JoinGame) clientMessage()    {}
func (ListRooms) clientMessage()   {}
func (Mulligan) clientMessage()    {}
func (PlayCard) clientMessage()    {}
func (Pass) clientMessage()        {}
func (RestartGame) clientMessage() {}

// DecodeClientMessage parses a raw frame into its typed variant.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid message frame: %w", err)
	}

	switch env.Type {
	case TypeJoinGame:
		var m JoinGame
		return m, json.Unmarshal(data, &m)
	case TypeListRooms:
		return ListRooms{}, nil
	case TypeMulligan:
		var m Mulligan
		return m, json.Unmarshal(data, &m)
	case TypePlayCard:
		var m PlayCard
		return m, json.Unmarshal(data, &m)
	case TypePass:
		var m Pass
		return m, json.Unmarshal(data, &m)
	case TypeRestartGame:
		var m RestartGame
		return m, json.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// RoomSummary is one entry of the room directory.
type RoomSummary struct {
	RoomID      string     `json:"room_id"`
	Phase       game.Phase `json:"phase"`
	PlayerCount int        `json:"player_count"`
	RoundCount  int        `json:"round_count"`
}

// GameStateUpdate carries the full authoritative snapshot after every
// accepted mutation. Clients diff consecutive snapshots locally.
type GameStateUpdate struct {
	Type  MessageType     `json:"type"`
	State *game.GameState `json:"state"`
}

// NewGameStateUpdate wraps a snapshot for broadcast.
func NewGameStateUpdate(st *game.GameState) GameStateUpdate {
	return GameStateUpdate{Type: TypeGameStateUpdate, State: st}
}

// RoomsList is the reply to a list_rooms request.
type RoomsList struct {
	Type  MessageType   `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

// NewRoomsList wraps the room directory for a single connection.
func NewRoomsList(rooms []RoomSummary) RoomsList {
	return RoomsList{Type: TypeRoomsList, Rooms: rooms}
}

// Joined confirms a join to the submitting connection and carries the seat
// token to present on reconnect.
type Joined struct {
	Type     MessageType `json:"type"`
	RoomID   string      `json:"room_id"`
	PlayerID string      `json:"player_id"`
	Token    string      `json:"token,omitempty"`
}

// NewJoined builds the join confirmation.
func NewJoined(roomID, playerID, token string) Joined {
	return Joined{Type: TypeJoined, RoomID: roomID, PlayerID: playerID, Token: token}
}

// ErrorMessage reports a rejected action to the submitting connection only.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// NewError builds an error reply.
func NewError(msg string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: msg}
}
