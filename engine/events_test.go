package engine

import (
	"errors"
	"math/rand/v2"
	"testing"
)

// mixedBoard returns one space of every type.
func mixedBoard() *Board {
	return NewBoard([]Space{
		{Type: SpaceCash, Cash: 10},
		{Type: SpaceBooster, Booster: 20},
		{Type: SpaceGame, Game: GameDominoTrain},
		{Type: SpaceEvent, Event: EventBoostDrain},
		{Type: SpaceGrabBag},
		{Type: SpaceBlammo},
		{Type: SpaceBomb, Bomb: BombBankrupt},
		{Type: SpaceGrabBagBomb, Bomb: BombBoostBlast},
	})
}

// TestLockdownReprogramsBoard verifies cash conversion and bomb collapse.
func TestLockdownReprogramsBoard(t *testing.T) {
	c := newTestContext(2)
	c.Board = mixedBoard()

	if err := TriggerEvent(c, EventLockdown, 0); err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}

	want := []SpaceType{SpaceCash, SpaceCash, SpaceCash, SpaceCash, SpaceCash, SpaceBlammo, SpaceBomb, SpaceBomb}
	for i, w := range want {
		if got := c.Board.Type(i); got != w {
			t.Errorf("space %d = %s, want %s", i, got, w)
		}
	}
	for _, i := range []int{6, 7} {
		if c.Board.Spaces[i].Bomb != BombLockdown {
			t.Errorf("space %d bomb = %s, want lockdown", i, c.Board.Spaces[i].Bomb)
		}
	}
	if c.Board.Multiplier != 3 {
		t.Errorf("Multiplier = %d, want 3", c.Board.Multiplier)
	}
}

// TestLockdownStacks asserts that a second lockdown multiplies again (x9 total).
func TestLockdownStacks(t *testing.T) {
	c := newTestContext(2)
	c.Board = mixedBoard()

	Lockdown(c, 0)
	Lockdown(c, 1)

	if c.Board.Multiplier != 9 {
		t.Errorf("Multiplier = %d, want 9", c.Board.Multiplier)
	}
	if c.Board.Type(5) != SpaceBlammo {
		t.Errorf("blammo converted to %s", c.Board.Type(5))
	}
}

// TestTriggerEventUnknown verifies a missing handler is reported, not defaulted.
func TestTriggerEventUnknown(t *testing.T) {
	c := newTestContext(2)
	before := c.Players[0].Money
	err := TriggerEvent(c, EventKind(200), 0)
	if !errors.Is(err, ErrNoHandler) {
		t.Fatalf("err = %v, want ErrNoHandler", err)
	}
	if c.Players[0].Money != before || c.Script.Len() != 0 {
		t.Error("unknown event mutated state or narrated")
	}
}

// TestBoostChargerRange verifies the charge stays within 5..20 across seeds.
func TestBoostChargerRange(t *testing.T) {
	for seed := uint64(0); seed < 200; seed++ {
		c := newTestContext(1)
		c.Rand = rand.New(rand.NewPCG(seed, seed))
		BoostCharger(c, 0)
		if got := c.Players[0].BoostCharge; got < 5 || got > 20 {
			t.Fatalf("seed %d: BoostCharge = %d, want 5..20", seed, got)
		}
	}
}

// TestBoostDrain verifies the booster is halved and clamped.
func TestBoostDrain(t *testing.T) {
	c := newTestContext(1)
	c.Players[0].Booster = 300
	BoostDrain(c, 0)
	if c.Players[0].Booster != 150 {
		t.Errorf("Booster = %d, want 150", c.Players[0].Booster)
	}
	c.Players[0].Booster = MinBooster
	BoostDrain(c, 0)
	if c.Players[0].Booster != MinBooster {
		t.Errorf("Booster = %d, want %d", c.Players[0].Booster, MinBooster)
	}
}

// TestMinefield verifies only unpicked cash spaces become bombs.
func TestMinefield(t *testing.T) {
	c := newTestContext(2)
	c.Board = NewBoard([]Space{
		{Type: SpaceCash},
		{Type: SpaceCash, Picked: true},
		{Type: SpaceCash},
		{Type: SpaceCash},
		{Type: SpaceBooster},
	})

	Minefield(c, 0)

	bombs := 0
	for i, s := range c.Board.Spaces {
		if s.Type == SpaceBomb {
			bombs++
			if i == 1 || i == 4 {
				t.Errorf("space %d should not have been converted", i)
			}
		}
	}
	if bombs != 2 {
		t.Errorf("bombs = %d, want 2 (one per living player)", bombs)
	}
}
