package engine

import "fmt"

// BombFunc detonates a bomb on the victim at index victim of Context.Players.
type BombFunc func(c *Context, victim int, penalty int)

// bombs holds variant overrides. Variants without an entry detonate as BasicBomb.
var bombs = map[BombKind]BombFunc{
	BombBankrupt:   BankruptBomb,
	BombBoostBlast: BoostBlastBomb,
	BombDud:        DudBomb,
}

// RegisterBomb installs or replaces a variant override. Not safe for use
// concurrently with Detonate; call it during init.
func RegisterBomb(kind BombKind, fn BombFunc) { bombs[kind] = fn }

// Detonate applies the bomb variant kind, falling back to BasicBomb.
func Detonate(c *Context, kind BombKind, victim, penalty int) {
	fn, ok := bombs[kind]
	if !ok {
		fn = BasicBomb
	}
	fn(c, victim, penalty)
}

// BasicBomb costs the victim |penalty|, resets their win streak and eliminates them.
func BasicBomb(c *Context, victim, penalty int) {
	s := c.script()
	s.Say("It goes **BOOM**.")
	s.Sayf("%s lost as penalty.", FormatMoney(abs(penalty)))
	if note := c.Players[victim].BlowUp(penalty); note != "" {
		s.Say(note)
	}
}

// BankruptBomb takes back everything the victim won this round on top of the
// basic penalty. A victim who lost money this round gets it returned instead.
func BankruptBomb(c *Context, victim, penalty int) {
	p := c.Players[victim]
	amountLost := p.ResetRoundDelta()
	if amountLost == 0 {
		BasicBomb(c, victim, penalty)
		return
	}
	s := c.script()
	s.Say("It goes **BOOM**...")
	s.After(DramaticPause, "It also goes **BANKRUPT**. _*whoosh*_")
	if amountLost < 0 {
		s.After(DramaticPause, fmt.Sprintf("**%s** *returned*, plus %s penalty.",
			FormatMoney(abs(amountLost)), FormatMoney(abs(penalty))))
	} else {
		s.After(DramaticPause, fmt.Sprintf("**%s** lost, plus %s penalty.",
			FormatMoney(amountLost), FormatMoney(abs(penalty))))
	}
	if note := p.BlowUp(penalty); note != "" {
		s.Say(note)
	}
	// Compared against the delta after the penalty landed.
	if amountLost < 2*p.RoundDelta() {
		c.achieve(p, AchievementUnbankrupt)
	}
}

// BoostBlastBomb splits the victim's booster above 100% between the other
// living players, then applies the basic penalty.
func BoostBlastBomb(c *Context, victim, penalty int) {
	p := c.Players[victim]
	s := c.script()
	s.Say("It goes **BOOM**...")
	alive := c.AlivePlayers()
	if alive > 1 && p.Booster > BaseBooster {
		excess := p.Booster - BaseBooster
		perPlayer := excess / (alive - 1)
		if perPlayer < 1 {
			perPlayer = 1
		}
		s.After(DramaticPause, fmt.Sprintf("And blasts their boost between the players! %d%% boost awarded to living players!", perPlayer))
		for i, other := range c.Players {
			if i != victim && other.IsAlive() {
				other.AddBooster(perPlayer)
			}
		}
	}
	s.Sayf("%s lost as penalty.", FormatMoney(abs(penalty)))
	if note := p.BlowUp(penalty); note != "" {
		s.Say(note)
	}
}

// DudBomb does nothing but scare the victim.
func DudBomb(c *Context, victim, _ int) {
	s := c.script()
	s.Say("It goes...")
	s.After(DramaticPause, fmt.Sprintf("_fizzle_. It's a dud! %s survives.", c.Players[victim].Name))
}

// FormatMoney renders n as $1,234,567 (with a leading '-' when negative).
func FormatMoney(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + "$" + string(out)
}
