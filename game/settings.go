package game

const (
	minPlayers = 2
	maxPlayers = 10

	defaultStartingHandSize = 7
	defaultMaxPlayers       = 4
)

// Settings is the fixed-field game configuration, resolved once at
// room creation. Stacking is declared for clients but not enforced by
// the rules engine.
type Settings struct {
	StartingHandSize int  `json:"startingHandSize"`
	MaxPlayers       int  `json:"maxPlayers"`
	Public           bool `json:"public"`
	Stacking         bool `json:"stacking"`
	ExtendedDeck     bool `json:"extendedDeck"`
}

// DefaultSettings returns the standard configuration: 7 cards each,
// up to 4 players, private room.
func DefaultSettings() Settings {
	return Settings{
		StartingHandSize: defaultStartingHandSize,
		MaxPlayers:       defaultMaxPlayers,
	}
}

// normalise clamps out-of-range values back to sane defaults.
func (s Settings) normalise() Settings {
	if s.StartingHandSize <= 0 {
		s.StartingHandSize = defaultStartingHandSize
	}
	if s.MaxPlayers < minPlayers {
		s.MaxPlayers = defaultMaxPlayers
	}
	if s.MaxPlayers > maxPlayers {
		s.MaxPlayers = maxPlayers
	}
	return s
}
