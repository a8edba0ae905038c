// internal/game/events.go
package game

import "github.com/google/uuid"

// GameEventType represents the type of a game event broadcast to the channel.
type GameEventType string

const (
	EventPlayerJoined     GameEventType = "player_joined"
	EventPlayerWithdrew   GameEventType = "player_withdrew"
	EventGameStart        GameEventType = "game_start"
	EventRoundStart       GameEventType = "round_start"
	EventGamePlayerTurn   GameEventType = "game_player_turn"
	EventSpaceResolved    GameEventType = "space_resolved"
	EventPlayerEliminated GameEventType = "player_eliminated"
	EventMinigameStart    GameEventType = "minigame_start"
	EventMinigameEnd      GameEventType = "minigame_end"
	EventRoundEnd         GameEventType = "round_end"
	EventGameEnd          GameEventType = "game_end"
	EventGameAborted      GameEventType = "game_aborted"
	EventAchievement      GameEventType = "achievement"
	EventNarration        GameEventType = "narration" // one announcement line
	EventNotice           GameEventType = "notice"    // private reply to a single player
	EventSyncState        GameEventType = "sync_state"
)

// EventUser identifies a user within a GameEvent payload.
type EventUser struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
}

// GameEvent is the structure broadcast for every state change.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Space   *int                   `json:"space,omitempty"` // 1-based board position
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *Snapshot              `json:"state,omitempty"`
}
