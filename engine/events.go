package engine

import (
	"errors"
	"fmt"
)

// ErrNoHandler is returned when a variant has no registered handler.
var ErrNoHandler = errors.New("no handler registered")

// EventFunc applies an event triggered by the player at index player.
type EventFunc func(c *Context, player int)

var events = map[EventKind]EventFunc{
	EventLockdown:     Lockdown,
	EventBoostCharger: BoostCharger,
	EventBoostDrain:   BoostDrain,
	EventMinefield:    Minefield,
}

// RegisterEvent installs or replaces an event handler. Call it during init.
func RegisterEvent(kind EventKind, fn EventFunc) { events[kind] = fn }

// TriggerEvent runs the handler for kind. Events have no fallback.
func TriggerEvent(c *Context, kind EventKind, player int) error {
	fn, ok := events[kind]
	if !ok {
		return fmt.Errorf("event %d (%s): %w", kind, kind, ErrNoHandler)
	}
	fn(c, player)
	return nil
}

// Lockdown triples the board multiplier and turns everything except bombs
// and blammos into cash. Every bomb becomes a lockdown bomb. Applying it twice
// multiplies by nine.
func Lockdown(c *Context, _ int) {
	c.script().Say("It's the **Triple Deal Lockdown**, all the boost, games, and events on the board have been converted to cash... and all cash has been tripled!")
	b := c.Board
	b.Multiplier *= 3
	for i := 0; i < b.Size(); i++ {
		t := b.Type(i)
		switch {
		case t.IsBomb():
			b.ChangeType(i, SpaceBomb) // grab-bag bombs collapse too
		case t != SpaceBlammo:
			b.ChangeType(i, SpaceCash)
		}
	}
	b.LockdownBombs()
}

// BoostCharger grants booster at the start of each of the player's turns
// until their next loss.
func BoostCharger(c *Context, player int) {
	amount := 5 + c.intN(6)
	if c.float() < 0.2 {
		amount += 1 + c.intN(10)
	}
	c.Players[player].BoostCharge += amount
	c.script().Sayf("It's a **Boost Charger**, you'll gain %d%% boost every turn until your next loss!", amount)
}

// BoostDrain halves the player's booster.
func BoostDrain(c *Context, player int) {
	p := c.Players[player]
	before := p.Booster
	p.AddBooster(-p.Booster / 2)
	c.script().Sayf("It's a **Boost Drain**, %s's booster drops from %d%% to %d%%.", p.Name, before, p.Booster)
}

// Minefield turns up to one unpicked cash space per living player into a
// basic bomb.
func Minefield(c *Context, _ int) {
	b := c.Board
	var cash []int
	for _, i := range b.Unpicked() {
		if b.Type(i) == SpaceCash {
			cash = append(cash, i)
		}
	}
	n := c.AlivePlayers()
	if n > len(cash) {
		n = len(cash)
	}
	for k := 0; k < n; k++ {
		j := k + c.intN(len(cash)-k)
		cash[k], cash[j] = cash[j], cash[k]
		b.ChangeType(cash[k], SpaceBomb)
		b.Spaces[cash[k]].Bomb = BombBasic
	}
	c.script().Sayf("Oh dear, looks like we've wandered into a **Minefield**! %d more bombs have been added to the board.", n)
}
