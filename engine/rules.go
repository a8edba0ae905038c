package engine

// BoardRules holds the weighted space table used by Generate.
type BoardRules struct {
	Size     int // number of spaces; fixed for the game
	Bombs    int // bomb spaces placed; 0 = one per player
	Blammos  int
	MinCash  int
	MaxCash  int
	MinBoost int
	MaxBoost int

	// Relative weights for the non-bomb, non-blammo spaces.
	CashWeight    int
	BoosterWeight int
	GameWeight    int
	EventWeight   int
	GrabBagWeight int

	// Relative weights for bomb variants.
	BombWeights map[BombKind]int
}

// DefaultBoardRules returns the standard board mix.
func DefaultBoardRules() BoardRules {
	return BoardRules{
		Size:          15,
		Bombs:         0,
		Blammos:       1,
		MinCash:       10_000,
		MaxCash:       100_000,
		MinBoost:      10,
		MaxBoost:      50,
		CashWeight:    8,
		BoosterWeight: 3,
		GameWeight:    2,
		EventWeight:   3,
		GrabBagWeight: 1,
		BombWeights: map[BombKind]int{
			BombBasic:      6,
			BombBankrupt:   2,
			BombBoostBlast: 2,
			BombDud:        1,
		},
	}
}
