package engine

// Status is a player's life status within the current game.
type Status uint8

const (
	StatusAlive      Status = iota // 0
	StatusEliminated               // 1
	StatusSpectating               // 2
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusEliminated:
		return "eliminated"
	case StatusSpectating:
		return "spectating"
	}
	return "unknown"
}

// SpaceType tags what happens when a space is picked.
type SpaceType uint8

const (
	SpaceCash        SpaceType = iota // 0
	SpaceBooster                      // 1
	SpaceGame                         // 2, launches a minigame session
	SpaceEvent                        // 3
	SpaceGrabBag                      // 4, random non-bomb effect
	SpaceBlammo                       // 5, instant elimination
	SpaceBomb                         // 6
	SpaceGrabBagBomb                  // 7, bomb drawn from the grab-bag pool
)

// IsBomb reports whether the space detonates a bomb variant.
func (t SpaceType) IsBomb() bool { return t == SpaceBomb || t == SpaceGrabBagBomb }

func (t SpaceType) String() string {
	switch t {
	case SpaceCash:
		return "cash"
	case SpaceBooster:
		return "booster"
	case SpaceGame:
		return "game"
	case SpaceEvent:
		return "event"
	case SpaceGrabBag:
		return "grab_bag"
	case SpaceBlammo:
		return "blammo"
	case SpaceBomb:
		return "bomb"
	case SpaceGrabBagBomb:
		return "grab_bag_bomb"
	}
	return "unknown"
}

// BombKind identifies a bomb variant.
type BombKind uint8

const (
	BombBasic      BombKind = iota // 0
	BombBankrupt                   // 1
	BombBoostBlast                 // 2
	BombDud                        // 3
	BombLockdown                   // 4, no override, detonates as BombBasic
)

func (k BombKind) String() string {
	switch k {
	case BombBasic:
		return "basic"
	case BombBankrupt:
		return "bankrupt"
	case BombBoostBlast:
		return "boost_blast"
	case BombDud:
		return "dud"
	case BombLockdown:
		return "lockdown"
	}
	return "unknown"
}

// EventKind identifies an event variant.
type EventKind uint8

const (
	EventLockdown     EventKind = iota // 0
	EventBoostCharger                  // 1
	EventBoostDrain                    // 2
	EventMinefield                     // 3
	numEventKinds
)

func (k EventKind) String() string {
	switch k {
	case EventLockdown:
		return "lockdown"
	case EventBoostCharger:
		return "boost_charger"
	case EventBoostDrain:
		return "boost_drain"
	case EventMinefield:
		return "minefield"
	}
	return "unknown"
}

// EventKinds returns every built-in event variant.
func EventKinds() []EventKind {
	out := make([]EventKind, 0, numEventKinds)
	for k := EventKind(0); k < numEventKinds; k++ {
		out = append(out, k)
	}
	return out
}

// MinigameKind identifies a minigame variant. The variants themselves live in
// package minigame; the board only stores the tag.
type MinigameKind uint8

const (
	GameDominoTrain MinigameKind = iota // 0
	numMinigameKinds
)

func (k MinigameKind) String() string {
	switch k {
	case GameDominoTrain:
		return "domino_train"
	}
	return "unknown"
}

// MinigameKinds returns every built-in minigame variant.
func MinigameKinds() []MinigameKind {
	out := make([]MinigameKind, 0, numMinigameKinds)
	for k := MinigameKind(0); k < numMinigameKinds; k++ {
		out = append(out, k)
	}
	return out
}

// Achievement identifies an observational achievement signal.
type Achievement uint8

const (
	AchievementUnbankrupt Achievement = iota // 0
)

func (a Achievement) String() string {
	switch a {
	case AchievementUnbankrupt:
		return "unbankrupt"
	}
	return "unknown"
}
