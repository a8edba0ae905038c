// internal/game/rules.go
package game

import (
	"time"

	"github.com/jason-s-yu/boardshow/engine"
)

// Rules are the per-game settings.
type Rules struct {
	Board engine.BoardRules `json:"board"`

	MinPlayers  int `json:"minPlayers"`
	MaxPlayers  int `json:"maxPlayers"`
	Rounds      int `json:"rounds"`      // rounds before the game is over
	BombPenalty int `json:"bombPenalty"` // money taken by every bomb on top of its variant effect

	// Minigame base multiplier, as a fraction.
	BaseNumerator   int  `json:"baseNumerator"`
	BaseDenominator int  `json:"baseDenominator"`
	EnhancedGames   bool `json:"enhancedGames"`

	TurnTimeout   time.Duration `json:"turnTimeout"`   // 0 waits forever for a pick
	SignupTimeout time.Duration `json:"signupTimeout"` // 0 disables the auto start
}

// DefaultRules returns the standard show settings.
func DefaultRules() Rules {
	return Rules{
		Board:           engine.DefaultBoardRules(),
		MinPlayers:      2,
		MaxPlayers:      16,
		Rounds:          1,
		BombPenalty:     250_000,
		BaseNumerator:   1,
		BaseDenominator: 1,
		TurnTimeout:     60 * time.Second,
		SignupTimeout:   5 * time.Minute,
	}
}
