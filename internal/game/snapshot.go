// internal/game/snapshot.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/boardshow/engine"
)

// SpaceView is one board space as the channel may see it. The contents of
// unpicked spaces stay hidden.
type SpaceView struct {
	Index  int    `json:"index"` // 1-based
	Picked bool   `json:"picked"`
	Type   string `json:"type,omitempty"`
}

// PlayerView is one row of the player table.
type PlayerView struct {
	PlayerID      uuid.UUID `json:"playerId"`
	Name          string    `json:"name"`
	Money         int       `json:"money"`
	Booster       int       `json:"booster"`
	WinStreak     int       `json:"winStreak"`
	BoostCharge   int       `json:"boostCharge,omitempty"`
	Status        string    `json:"status"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
}

// Snapshot is the public state of a game.
type Snapshot struct {
	GameID      uuid.UUID    `json:"gameId"`
	Channel     string       `json:"channel"`
	Phase       string       `json:"phase"`
	Round       int          `json:"round"`
	Multiplier  int          `json:"multiplier"`
	InMinigame  bool         `json:"inMinigame"`
	Spaces      []SpaceView  `json:"spaces,omitempty"`
	Players     []PlayerView `json:"players"`
	CurrentTurn uuid.UUID    `json:"currentTurn,omitempty"`
}

// Snapshot returns the current public state.
func (g *ShowGame) Snapshot() Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshotLocked()
}

// snapshotLocked builds the public state.
// Assumes lock is held by caller.
func (g *ShowGame) snapshotLocked() Snapshot {
	s := Snapshot{
		GameID:     g.ID,
		Channel:    g.Channel,
		Phase:      g.Phase.String(),
		Round:      g.Round,
		InMinigame: g.session != nil,
	}
	if g.Board != nil {
		s.Multiplier = g.Board.Multiplier
		s.Spaces = make([]SpaceView, g.Board.Size())
		for i, sp := range g.Board.Spaces {
			s.Spaces[i] = SpaceView{Index: i + 1, Picked: sp.Picked}
			if sp.Picked {
				s.Spaces[i].Type = sp.Type.String()
			}
		}
	}
	for i, p := range g.Players {
		current := g.acting && i == g.current
		if current {
			s.CurrentTurn = p.ID
		}
		s.Players = append(s.Players, PlayerView{
			PlayerID:      p.ID,
			Name:          p.Name,
			Money:         p.Money,
			Booster:       p.Booster,
			WinStreak:     p.WinStreak,
			BoostCharge:   p.BoostCharge,
			Status:        p.Status.String(),
			IsCurrentTurn: current,
		})
	}
	return s
}

// tablePlayersLocked copies the player table for a minigame session.
// Assumes lock is held by caller.
func (g *ShowGame) tablePlayersLocked() []engine.Player {
	out := make([]engine.Player, len(g.Players))
	for i, p := range g.Players {
		out[i] = *p
	}
	return out
}
