package engine

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	BaseBooster   = 100
	MinBooster    = 10
	MaxBooster    = 999
	BaseWinStreak = 10 // tenths: 10 == x1.0
)

// Player holds one contestant's economy. Players are created at signup and are
// never removed mid-game; elimination only changes Status.
type Player struct {
	ID          uuid.UUID
	Name        string
	Money       int
	Booster     int // percentage, BaseBooster == 100%
	WinStreak   int // tenths
	BoostCharge int // booster gained at the start of each turn until the next loss
	Status      Status

	roundBase int // money at the last round-delta anchor
}

// NewPlayer returns a player with baseline economy values.
func NewPlayer(id uuid.UUID, name string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Booster:   BaseBooster,
		WinStreak: BaseWinStreak,
		Status:    StatusAlive,
	}
}

// Restore seeds the economy from a persisted record and re-anchors the round delta.
func (p *Player) Restore(money, booster, winStreak int) {
	p.Money = money
	p.Booster = clampBooster(booster)
	p.WinStreak = winStreak
	p.roundBase = money
}

func (p *Player) IsAlive() bool { return p.Status == StatusAlive }

// AddMoney credits (or debits, if negative) the raw amount with no scaling.
func (p *Player) AddMoney(amount int) { p.Money += amount }

// Boosted scales amount by the player's booster.
func (p *Player) Boosted(amount int) int {
	return int(int64(amount) * int64(p.Booster) / BaseBooster)
}

// AddBooster adjusts the booster, clamped to [MinBooster, MaxBooster].
func (p *Player) AddBooster(amount int) { p.Booster = clampBooster(p.Booster + amount) }

func clampBooster(b int) int {
	if b < MinBooster {
		return MinBooster
	}
	if b > MaxBooster {
		return MaxBooster
	}
	return b
}

// RoundDelta is the net money change since the last anchor.
func (p *Player) RoundDelta() int { return p.Money - p.roundBase }

// StartRound re-anchors the round delta without touching money.
func (p *Player) StartRound() { p.roundBase = p.Money }

// ResetRoundDelta reverts money to the last anchor and returns the delta that was
// consumed. A second call before any further money change returns 0.
func (p *Player) ResetRoundDelta() int {
	delta := p.Money - p.roundBase
	p.Money = p.roundBase
	return delta
}

// BlowUp applies the basic bomb penalty: money loss, win streak reset, boost
// charge lost, elimination. It returns an extra note to announce, or "".
func (p *Player) BlowUp(penalty int) string {
	p.Money -= abs(penalty)
	p.WinStreak = BaseWinStreak
	p.Status = StatusEliminated
	if p.BoostCharge > 0 {
		lost := p.BoostCharge
		p.BoostCharge = 0
		return fmt.Sprintf("%s's boost charger of %d%% has been lost.", p.Name, lost)
	}
	return ""
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
