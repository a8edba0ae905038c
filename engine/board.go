package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	ErrSpaceOutOfRange = errors.New("space out of range")
	ErrSpaceTaken      = errors.New("space already picked")
)

// Space is one board slot. Only Type, the variant tags and Picked change
// during a game.
type Space struct {
	Type    SpaceType
	Bomb    BombKind     // when Type.IsBomb()
	Event   EventKind    // when Type == SpaceEvent
	Game    MinigameKind // when Type == SpaceGame
	Cash    int          // rolled for every slot so conversions to cash have a value
	Booster int          // when Type == SpaceBooster
	Picked  bool
}

// Board is the fixed-size ordered set of spaces plus the cash multiplier.
type Board struct {
	Spaces     []Space
	Multiplier int // applied to cash and minigame payouts; only ever grows
}

// NewBoard builds a board over a copy of spaces.
func NewBoard(spaces []Space) *Board {
	s := make([]Space, len(spaces))
	copy(s, spaces)
	return &Board{Spaces: s, Multiplier: 1}
}

// Generate rolls a new board. Bomb count defaults to one per player.
func Generate(r BoardRules, players int, rng *rand.Rand) *Board {
	size := r.Size
	if size <= 0 {
		size = DefaultBoardRules().Size
	}
	bombs := r.Bombs
	if bombs <= 0 {
		bombs = players
	}
	if bombs+r.Blammos > size {
		bombs = size - r.Blammos
	}

	spaces := make([]Space, size)
	for i := range spaces {
		spaces[i].Cash = rollRange(rng, r.MinCash, r.MaxCash)
	}

	// Bomb and blammo positions first, the rest filled from the weighted table.
	order := rng.Perm(size)
	for n, i := range order {
		switch {
		case n < bombs:
			spaces[i].Type = SpaceBomb
			spaces[i].Bomb = rollBomb(r.BombWeights, rng)
			if rng.IntN(4) == 0 {
				spaces[i].Type = SpaceGrabBagBomb
			}
		case n < bombs+r.Blammos:
			spaces[i].Type = SpaceBlammo
		default:
			spaces[i].Type = rollSpaceType(r, rng)
			switch spaces[i].Type {
			case SpaceBooster:
				spaces[i].Booster = rollRange(rng, r.MinBoost, r.MaxBoost)
			case SpaceEvent:
				spaces[i].Event = EventKind(rng.IntN(int(numEventKinds)))
			case SpaceGame:
				spaces[i].Game = MinigameKind(rng.IntN(int(numMinigameKinds)))
			}
		}
	}
	return &Board{Spaces: spaces, Multiplier: 1}
}

func rollRange(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func rollSpaceType(r BoardRules, rng *rand.Rand) SpaceType {
	table := []struct {
		t SpaceType
		w int
	}{
		{SpaceCash, r.CashWeight},
		{SpaceBooster, r.BoosterWeight},
		{SpaceGame, r.GameWeight},
		{SpaceEvent, r.EventWeight},
		{SpaceGrabBag, r.GrabBagWeight},
	}
	total := 0
	for _, e := range table {
		total += e.w
	}
	if total <= 0 {
		return SpaceCash
	}
	n := rng.IntN(total)
	for _, e := range table {
		if n < e.w {
			return e.t
		}
		n -= e.w
	}
	return SpaceCash
}

func rollBomb(weights map[BombKind]int, rng *rand.Rand) BombKind {
	total := 0
	for k := BombBasic; k <= BombLockdown; k++ {
		total += weights[k]
	}
	if total <= 0 {
		return BombBasic
	}
	n := rng.IntN(total)
	for k := BombBasic; k <= BombLockdown; k++ {
		if n < weights[k] {
			return k
		}
		n -= weights[k]
	}
	return BombBasic
}

// Size returns the number of spaces.
func (b *Board) Size() int { return len(b.Spaces) }

// Type returns the current type of space i.
func (b *Board) Type(i int) SpaceType { return b.Spaces[i].Type }

// ChangeType reprograms space i.
func (b *Board) ChangeType(i int, t SpaceType) { b.Spaces[i].Type = t }

// LockdownBombs turns every bomb into the lockdown variant.
func (b *Board) LockdownBombs() {
	for i := range b.Spaces {
		if b.Spaces[i].Type.IsBomb() {
			b.Spaces[i].Bomb = BombLockdown
		}
	}
}

// Pick marks space i as taken and returns it.
func (b *Board) Pick(i int) (Space, error) {
	if i < 0 || i >= len(b.Spaces) {
		return Space{}, fmt.Errorf("pick %d of %d: %w", i+1, len(b.Spaces), ErrSpaceOutOfRange)
	}
	if b.Spaces[i].Picked {
		return Space{}, fmt.Errorf("pick %d: %w", i+1, ErrSpaceTaken)
	}
	b.Spaces[i].Picked = true
	return b.Spaces[i], nil
}

// Unpicked returns the indices of spaces still available.
func (b *Board) Unpicked() []int {
	var out []int
	for i, s := range b.Spaces {
		if !s.Picked {
			out = append(out, i)
		}
	}
	return out
}

// Exhausted reports whether every space has been picked.
func (b *Board) Exhausted() bool {
	for _, s := range b.Spaces {
		if !s.Picked {
			return false
		}
	}
	return true
}
