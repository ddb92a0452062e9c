// Package sim drives unattended play: a rule-based planner picks the next
// action for the active player and an autoplayer feeds it to the engine on
// a fixed schedule.
package sim

import (
	"math/rand/v2"
	"sync"

	"github.com/atilla-legacy/legacy-server-go/internal/board"
	"github.com/atilla-legacy/legacy-server-go/internal/cards"
	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
)

// CriticalThreshold is the threat count at which a city needs a visit.
const CriticalThreshold = rules.OutbreakThreshold

// Planner chooses actions with a fixed priority cascade. Apart from the
// final random wander it is deterministic.
type Planner struct {
	graph *board.Graph

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlanner creates a planner on g. A nil rng uses a random seed.
func NewPlanner(g *board.Graph, rng *rand.Rand) *Planner {
	if g == nil {
		g = board.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Planner{graph: g, rng: rng}
}

// ChooseAction returns the next action for the active player. It returns nil
// only when the state has no active player; callers treat that as EndTurn.
func (p *Planner) ChooseAction(s *game.GameState) game.Action {
	if s == nil {
		return nil
	}
	player := s.ActivePlayer()
	if player == nil {
		return nil
	}
	if player.ActionsRemaining <= 0 {
		return game.EndTurn{}
	}

	here := s.Cities[player.CurrentCity]
	if here != nil {
		for i, t := range here.Threats {
			if ids, ok := payWith(t, player.Hand); ok {
				return game.ResolveThreat{City: player.CurrentCity, ThreatIndex: i, CardIDs: ids}
			}
		}
	}

	if l, ok := rules.LegacyAt(player.CurrentCity); ok &&
		!s.LegaciesCollected.Collected(l) && len(player.Hand) >= rules.LegacyHandSize {
		return game.ClaimLegacy{PlayerID: player.ID, LegacyType: l}
	}

	goals := []func(*game.GameState, *game.Player) []string{
		solvableCities,
		criticalCities,
		legacyCities,
	}
	for _, goal := range goals {
		if a := p.moveToward(player, goal(s, player)); a != nil {
			return a
		}
	}

	if here != nil && len(here.Threats) > 0 {
		return game.EndTurn{}
	}

	if a := p.moveToward(player, threatenedCities(s, player)); a != nil {
		return a
	}
	return p.wander(player)
}

// payWith returns the ids of the first matching cards in hand order that
// cover the requirement of t.
func payWith(t cards.ThreatType, hand []cards.Card) ([]string, bool) {
	info, ok := rules.Requirement(t)
	if !ok {
		return nil, false
	}
	ids := make([]string, 0, info.Amount)
	for _, c := range hand {
		if c.SubType == info.Counter {
			ids = append(ids, c.ID)
			if len(ids) == info.Amount {
				return ids, true
			}
		}
	}
	return nil, false
}

func (p *Planner) moveToward(player *game.Player, targets []string) game.Action {
	if len(targets) == 0 {
		return nil
	}
	step, ok := p.graph.StepToward(player.CurrentCity, targets, player.LastCity)
	if !ok {
		return nil
	}
	return game.MovePlayer{PlayerID: player.ID, Destination: step}
}

func (p *Planner) wander(player *game.Player) game.Action {
	neighbors := p.graph.Neighbors(player.CurrentCity)
	if len(neighbors) == 0 {
		return game.EndTurn{}
	}
	options := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		if n != player.LastCity {
			options = append(options, n)
		}
	}
	if len(options) == 0 {
		options = neighbors
	}

	p.mu.Lock()
	pick := options[p.rng.IntN(len(options))]
	p.mu.Unlock()
	return game.MovePlayer{PlayerID: player.ID, Destination: pick}
}

// otherCities returns the cities other than the player's that satisfy keep,
// in board order.
func otherCities(s *game.GameState, player *game.Player, keep func(*game.City) bool) []string {
	var out []string
	for _, name := range s.CityOrder() {
		c := s.Cities[name]
		if c == nil || name == player.CurrentCity {
			continue
		}
		if keep(c) {
			out = append(out, name)
		}
	}
	return out
}

func solvableCities(s *game.GameState, player *game.Player) []string {
	return otherCities(s, player, func(c *game.City) bool {
		for _, t := range c.Threats {
			if rules.CanResolve(t, player.Hand) {
				return true
			}
		}
		return false
	})
}

func criticalCities(s *game.GameState, player *game.Player) []string {
	return otherCities(s, player, func(c *game.City) bool {
		return len(c.Threats) > 0 && (len(c.Threats) >= CriticalThreshold || c.HasCapital)
	})
}

func legacyCities(s *game.GameState, player *game.Player) []string {
	var out []string
	for _, l := range rules.LegacyTypes {
		loc := rules.LegacyLocations[l]
		if !s.LegaciesCollected.Collected(l) && loc != player.CurrentCity {
			out = append(out, loc)
		}
	}
	return out
}

func threatenedCities(s *game.GameState, player *game.Player) []string {
	return otherCities(s, player, func(c *game.City) bool {
		return len(c.Threats) > 0
	})
}
