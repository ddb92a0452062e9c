package game

import (
	"github.com/atilla-legacy/legacy-server-go/internal/board"
	"github.com/atilla-legacy/legacy-server-go/internal/cards"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
)

// Status is the overall outcome of a game. It only ever moves from playing
// to won or lost.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// City is a node of the board with its live threats.
type City struct {
	Name       string             `json:"name" yaml:"name"`
	Region     string             `json:"region" yaml:"region"`
	Neighbors  []string           `json:"neighbors" yaml:"neighbors"`
	Threats    []cards.ThreatType `json:"threats" yaml:"threats"`
	IsLost     bool               `json:"isLost" yaml:"isLost"`
	HasCapital bool               `json:"hasCapital,omitempty" yaml:"hasCapital,omitempty"`
}

// Player is a seat at the table.
type Player struct {
	ID                 string       `json:"id" yaml:"id"`
	Name               string       `json:"name" yaml:"name"`
	Role               rules.Role   `json:"role" yaml:"role"`
	CurrentCity        string       `json:"currentCity" yaml:"currentCity"`
	LastCity           string       `json:"lastCity,omitempty" yaml:"lastCity,omitempty"`
	Hand               []cards.Card `json:"hand" yaml:"hand"`
	ActionsRemaining   int          `json:"actionsRemaining" yaml:"actionsRemaining"`
	SpecialAbilityUsed bool         `json:"specialAbilityUsed" yaml:"specialAbilityUsed"`
}

// HandIndex returns the position of a card in the player's hand, or -1.
func (p *Player) HandIndex(cardID string) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// Legacies records which of the four artifacts have been claimed.
type Legacies struct {
	Sword   bool `json:"sword" yaml:"sword"`
	Seal    bool `json:"seal" yaml:"seal"`
	Bow     bool `json:"bow" yaml:"bow"`
	Chalice bool `json:"chalice" yaml:"chalice"`
}

func (l *Legacies) field(t rules.LegacyType) *bool {
	switch t {
	case rules.LegacySword:
		return &l.Sword
	case rules.LegacySeal:
		return &l.Seal
	case rules.LegacyBow:
		return &l.Bow
	case rules.LegacyChalice:
		return &l.Chalice
	default:
		return nil
	}
}

// Collected reports whether t was claimed. Unknown types are never collected.
func (l Legacies) Collected(t rules.LegacyType) bool {
	f := l.field(t)
	return f != nil && *f
}

// Mark sets t as claimed and reports whether t is a known legacy.
func (l *Legacies) Mark(t rules.LegacyType) bool {
	f := l.field(t)
	if f == nil {
		return false
	}
	*f = true
	return true
}

// Count returns the number of claimed legacies.
func (l Legacies) Count() int {
	n := 0
	for _, t := range rules.LegacyTypes {
		if l.Collected(t) {
			n++
		}
	}
	return n
}

// All reports whether every legacy has been claimed.
func (l Legacies) All() bool {
	return l.Count() == len(rules.LegacyTypes)
}

// GameState is the aggregate every transition produces. Treat values handed
// out by the engine or the manager as immutable; use Clone before editing.
type GameState struct {
	Cities            map[string]*City `json:"cities" yaml:"cities"`
	Players           []*Player        `json:"players" yaml:"players"`
	ActivePlayerIndex int              `json:"activePlayerIndex" yaml:"activePlayerIndex"`
	ActionDeck        []cards.Card     `json:"actionDeck" yaml:"actionDeck"`
	ActionDiscard     []cards.Card     `json:"actionDiscard" yaml:"actionDiscard"`
	ThreatDeck        []cards.Card     `json:"threatDeck" yaml:"threatDeck"`
	ThreatDiscard     []cards.Card     `json:"threatDiscard" yaml:"threatDiscard"`
	StormCount        int              `json:"stormCount" yaml:"stormCount"`
	OutbreakCount     int              `json:"outbreakCount" yaml:"outbreakCount"`
	LegaciesCollected Legacies         `json:"legaciesCollected" yaml:"legaciesCollected"`
	GameStatus        Status           `json:"gameStatus" yaml:"gameStatus"`
	TurnPhase         rules.Phase      `json:"turnPhase" yaml:"turnPhase"`
	Turn              int              `json:"turn" yaml:"turn"`
	Difficulty        rules.Difficulty `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Messages          []string         `json:"messages" yaml:"messages"`
}

// Clone returns a deep copy.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	c := *s

	if s.Cities != nil {
		c.Cities = make(map[string]*City, len(s.Cities))
		for name, city := range s.Cities {
			if city == nil {
				c.Cities[name] = nil
				continue
			}
			cc := *city
			cc.Neighbors = cloneSlice(city.Neighbors)
			cc.Threats = cloneSlice(city.Threats)
			c.Cities[name] = &cc
		}
	}

	if s.Players != nil {
		c.Players = make([]*Player, len(s.Players))
		for i, p := range s.Players {
			if p == nil {
				continue
			}
			pc := *p
			pc.Hand = cloneSlice(p.Hand)
			c.Players[i] = &pc
		}
	}

	c.ActionDeck = cloneSlice(s.ActionDeck)
	c.ActionDiscard = cloneSlice(s.ActionDiscard)
	c.ThreatDeck = cloneSlice(s.ThreatDeck)
	c.ThreatDiscard = cloneSlice(s.ThreatDiscard)
	c.Messages = cloneSlice(s.Messages)
	return &c
}

func cloneSlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}

// ActivePlayer returns the player whose turn it is, or nil when the index is
// out of range.
func (s *GameState) ActivePlayer() *Player {
	if s.ActivePlayerIndex < 0 || s.ActivePlayerIndex >= len(s.Players) {
		return nil
	}
	return s.Players[s.ActivePlayerIndex]
}

// PlayerIndex returns the seat of the player with the given id, or -1.
func (s *GameState) PlayerIndex(id string) int {
	for i, p := range s.Players {
		if p != nil && p.ID == id {
			return i
		}
	}
	return -1
}

// PlayerByID returns the player with the given id.
func (s *GameState) PlayerByID(id string) (*Player, bool) {
	i := s.PlayerIndex(id)
	if i < 0 {
		return nil, false
	}
	return s.Players[i], true
}

// CityOrder returns the city names in canonical board order.
func (s *GameState) CityOrder() []string {
	names := make([]string, 0, len(s.Cities))
	for name := range s.Cities {
		names = append(names, name)
	}
	board.Default().SortCanonical(names)
	return names
}

// TotalThreats counts threats on every city.
func (s *GameState) TotalThreats() int {
	total := 0
	for _, c := range s.Cities {
		if c != nil {
			total += len(c.Threats)
		}
	}
	return total
}

// Capital returns the name of the city holding the capital.
func (s *GameState) Capital() string {
	for _, name := range s.CityOrder() {
		if c := s.Cities[name]; c != nil && c.HasCapital {
			return name
		}
	}
	return board.Capital
}

// IsOver reports whether the game has reached a terminal status.
func (s *GameState) IsOver() bool {
	return s.GameStatus == StatusWon || s.GameStatus == StatusLost
}

func (s *GameState) log(msg string) {
	s.Messages = append(s.Messages, msg)
}

// LastMessage returns the most recent log entry.
func (s *GameState) LastMessage() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1]
}
