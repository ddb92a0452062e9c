package game

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/atilla-legacy/legacy-server-go/internal/board"
	"github.com/atilla-legacy/legacy-server-go/internal/cards"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
)

// NewInitialState deals a fresh game on the standard map. Card order and
// initial threat placement come from rng; a nil rng uses a random seed.
func NewInitialState(rng *rand.Rand, playerCount int, difficulty rules.Difficulty) (*GameState, error) {
	return NewInitialStateOn(board.Default(), rng, playerCount, difficulty)
}

// NewInitialStateOn deals a fresh game on g.
func NewInitialStateOn(g *board.Graph, rng *rand.Rand, playerCount int, difficulty rules.Difficulty) (*GameState, error) {
	if playerCount < rules.MinPlayers || playerCount > rules.MaxPlayers {
		return nil, fmt.Errorf("player count %d out of range %d..%d", playerCount, rules.MinPlayers, rules.MaxPlayers)
	}
	settings, err := rules.Settings(difficulty)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	names := g.Cities()
	cities := make(map[string]*City, len(names))
	for _, name := range names {
		cities[name] = &City{
			Name:       name,
			Region:     g.Region(name),
			Neighbors:  g.Neighbors(name),
			Threats:    []cards.ThreatType{},
			HasCapital: name == board.Capital,
		}
	}

	for i := 0; i < settings.InitialThreats; i++ {
		city := cities[names[rng.IntN(len(names))]]
		city.Threats = append(city.Threats, cards.ThreatTypes[rng.IntN(len(cards.ThreatTypes))])
	}

	players := make([]*Player, playerCount)
	for i := range players {
		role := rules.Roles[i%len(rules.Roles)]
		hand := make([]cards.Card, 0, len(role.StartHand))
		for j, name := range role.StartHand {
			hand = append(hand, cards.StartingCard(fmt.Sprintf("start-%d-%d", i, j), name))
		}
		players[i] = &Player{
			ID:               fmt.Sprintf("player-%d", i),
			Name:             string(role.Role),
			Role:             role.Role,
			CurrentCity:      board.Capital,
			Hand:             hand,
			ActionsRemaining: rules.ActionsPerTurn,
		}
	}

	return &GameState{
		Cities:            cities,
		Players:           players,
		ActivePlayerIndex: 0,
		ActionDeck:        cards.BuildActionDeck(rng, settings.StormCards),
		ActionDiscard:     []cards.Card{},
		ThreatDeck:        cards.BuildThreatDeck(rng, names, settings.CrisisCards),
		ThreatDiscard:     []cards.Card{},
		GameStatus:        StatusPlaying,
		TurnPhase:         rules.PhaseAction,
		Turn:              1,
		Difficulty:        difficulty,
		Messages:          []string{"Játék kezdődik! Nehézség: " + strings.ToUpper(string(difficulty))},
	}, nil
}
