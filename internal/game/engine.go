package game

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/board"
	"github.com/atilla-legacy/legacy-server-go/internal/cards"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Engine applies actions to game states. Apply never mutates its input: it
// returns the same pointer when an action is ignored, and a fresh copy
// otherwise. Rejections are reported only through the message log.
type Engine struct {
	graph  *board.Graph
	logger *zap.Logger
	bus    *rules.EventBus

	mu      sync.Mutex // guards rng and pending
	rng     *rand.Rand
	pending []rules.Event
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for crisis effects.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEventBus publishes the events of every applied action to bus.
// Listeners run after the transition, outside the engine lock.
func WithEventBus(bus *rules.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithGraph replaces the standard map.
func WithGraph(g *board.Graph) Option {
	return func(e *Engine) { e.graph = g }
}

// NewEngine creates an engine on the standard map.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		graph:  board.Default(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

// Graph returns the map the engine plays on.
func (e *Engine) Graph() *board.Graph {
	return e.graph
}

// Apply returns the state that follows s after action a.
func (e *Engine) Apply(s *GameState, a Action) *GameState {
	if s == nil || a == nil {
		return s
	}

	next, events := e.apply(s, a)
	if e.bus != nil && next != s {
		e.bus.PublishBatch(events)
	}
	return next
}

func (e *Engine) apply(s *GameState, a Action) (*GameState, []rules.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil

	if load, ok := a.(LoadGame); ok {
		next := e.loadGame(s, load)
		if next != s {
			e.emit(next, rules.NewEvent(rules.EventLoaded, "", "", ""))
		}
		return next, e.pending
	}

	if s.GameStatus != StatusPlaying {
		e.logger.Debug("action ignored after game end",
			zap.String("action", string(a.Kind())),
			zap.String("status", string(s.GameStatus)),
		)
		return s, nil
	}

	var next *GameState
	switch act := a.(type) {
	case MovePlayer:
		next = e.movePlayer(s, act)
	case ResolveThreat:
		next = e.resolveThreat(s, act)
	case PlayCard:
		next = e.playCard(s, act)
	case EndTurn:
		next = e.endTurn(s)
	case ClaimLegacy:
		next = e.claimLegacy(s, act)
	case GiveCard:
		next = e.giveCard(s, act)
	case DrawCards:
		next = s
	default:
		next = s
	}

	if next == s {
		return s, nil
	}
	switch next.GameStatus {
	case StatusWon:
		e.emit(next, rules.Event{Type: rules.EventGameWon, Description: next.LastMessage()})
	case StatusLost:
		e.emit(next, rules.Event{Type: rules.EventGameLost, Description: next.LastMessage()})
	}

	e.logger.Debug("action applied",
		zap.String("action", string(a.Kind())),
		zap.Int("active_player", next.ActivePlayerIndex),
		zap.String("last_message", next.LastMessage()),
	)
	return next, e.pending
}

// emit queues evt for publication once the current action completes.
func (e *Engine) emit(s *GameState, evt rules.Event) {
	if e.bus == nil {
		return
	}
	evt.Turn = s.Turn
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	e.pending = append(e.pending, evt)
}

// reject returns a copy of s with msg appended to the log.
func (e *Engine) reject(s *GameState, msg string) *GameState {
	next := s.Clone()
	next.log(msg)
	var playerID string
	if p := s.ActivePlayer(); p != nil {
		playerID = p.ID
	}
	e.emit(next, rules.Event{Type: rules.EventActionRejected, PlayerID: playerID, Description: msg})
	return next
}

// actingPlayer resolves playerID to a seat. ok is false when the id is
// unknown; msg is set when the player exists but is not the active one.
func actingPlayer(s *GameState, playerID string) (idx int, msg string, ok bool) {
	idx = s.PlayerIndex(playerID)
	if idx < 0 {
		return -1, "", false
	}
	if idx != s.ActivePlayerIndex {
		return idx, fmt.Sprintf("%s nem következik, most nem cselekedhet.", s.Players[idx].Name), true
	}
	return idx, "", true
}

func (e *Engine) movePlayer(s *GameState, a MovePlayer) *GameState {
	idx, msg, ok := actingPlayer(s, a.PlayerID)
	if !ok {
		return s
	}
	if msg != "" {
		return e.reject(s, msg)
	}

	player := s.Players[idx]
	from := player.CurrentCity
	if !e.graph.IsNeighbor(from, a.Destination) {
		return e.reject(s, fmt.Sprintf("Nem léphetsz oda! %s nem szomszédos %s-val.", a.Destination, from))
	}
	if player.ActionsRemaining < 1 {
		return s
	}

	next := s.Clone()
	p := next.Players[idx]
	p.LastCity = from
	p.CurrentCity = a.Destination
	p.ActionsRemaining--
	next.log(fmt.Sprintf("%s átlépett ide: %s", p.Name, a.Destination))
	e.emit(next, rules.NewEvent(rules.EventPlayerMoved, p.ID, a.Destination, from))
	return next
}

func (e *Engine) resolveThreat(s *GameState, a ResolveThreat) *GameState {
	active := s.ActivePlayer()
	city := s.Cities[a.City]
	if active == nil || city == nil || a.ThreatIndex < 0 || a.ThreatIndex >= len(city.Threats) {
		return s
	}
	if active.CurrentCity != a.City {
		return s
	}

	threat := city.Threats[a.ThreatIndex]
	info, known := rules.Requirement(threat)
	if !known {
		return s
	}
	if active.ActionsRemaining < 1 {
		return e.reject(s, fmt.Sprintf("%s nem rendelkezik több akcióponttal.", active.Name))
	}

	wanted := make(map[string]bool, len(a.CardIDs))
	for _, id := range a.CardIDs {
		wanted[id] = true
	}

	var played, kept []cards.Card
	matching := 0
	for _, c := range active.Hand {
		if !wanted[c.ID] {
			kept = append(kept, c)
			continue
		}
		played = append(played, c)
		if c.SubType == info.Counter {
			matching++
		}
	}

	if matching < info.Amount {
		return e.reject(s, fmt.Sprintf("Nincs elég %s kártyád a fenyegetés elhárításához!", info.Counter))
	}

	next := s.Clone()
	nc := next.Cities[a.City]
	nc.Threats = append(nc.Threats[:a.ThreatIndex:a.ThreatIndex], nc.Threats[a.ThreatIndex+1:]...)

	p := next.ActivePlayer()
	if kept == nil {
		kept = []cards.Card{}
	}
	p.Hand = kept
	p.ActionsRemaining--
	next.ActionDiscard = append(next.ActionDiscard, played...)
	next.log(fmt.Sprintf("%s elhárította: %s (%s)", p.Name, threat, a.City))
	e.emit(next, rules.NewEventWithAmount(rules.EventThreatResolved, p.ID, a.City, string(threat), len(played)))
	return next
}

func (e *Engine) playCard(s *GameState, a PlayCard) *GameState {
	idx, msg, ok := actingPlayer(s, a.PlayerID)
	if !ok {
		return s
	}
	player := s.Players[idx]
	pos := player.HandIndex(a.CardID)
	if pos < 0 || player.Hand[pos].Type != cards.TypeBlessing {
		return s
	}
	if msg != "" {
		return e.reject(s, msg)
	}

	next := s.Clone()
	p := next.Players[idx]
	card := p.Hand[pos]
	p.Hand = append(p.Hand[:pos:pos], p.Hand[pos+1:]...)
	next.ActionDiscard = append(next.ActionDiscard, card)
	next.log(fmt.Sprintf("%s kijátszotta: %s", p.Name, card.Name))
	e.emit(next, rules.NewEvent(rules.EventBlessingPlayed, p.ID, p.CurrentCity, string(card.BlessingType)))

	e.applyBlessing(next, card.BlessingType)
	return next
}

func (e *Engine) claimLegacy(s *GameState, a ClaimLegacy) *GameState {
	idx, msg, ok := actingPlayer(s, a.PlayerID)
	if !ok {
		return s
	}
	location, known := rules.LegacyLocations[a.LegacyType]
	if !known {
		return s
	}
	if msg != "" {
		return e.reject(s, msg)
	}

	player := s.Players[idx]
	name := rules.LegacyName(a.LegacyType)
	switch {
	case s.LegaciesCollected.Collected(a.LegacyType):
		return e.reject(s, fmt.Sprintf("%s már a birtokotokban van.", name))
	case player.CurrentCity != location:
		return e.reject(s, fmt.Sprintf("%s csak itt szerezhető meg: %s.", name, location))
	case len(player.Hand) < rules.LegacyHandSize:
		return e.reject(s, fmt.Sprintf("%s megszerzéséhez legalább %d kártya kell a kezedben.", name, rules.LegacyHandSize))
	case player.ActionsRemaining < 1:
		return e.reject(s, fmt.Sprintf("%s nem rendelkezik több akcióponttal.", player.Name))
	}

	next := s.Clone()
	next.LegaciesCollected.Mark(a.LegacyType)
	next.Players[idx].ActionsRemaining--
	e.emit(next, rules.NewEvent(rules.EventLegacyClaimed, player.ID, location, name))

	if next.LegaciesCollected.All() {
		next.GameStatus = StatusWon
		next.log("MINDEN SZENT ÖRÖKSÉGET MEGSZEREZTETEK! GYŐZELEM!")
	} else {
		next.log(fmt.Sprintf("MEGSZEREZTÉTEK: %s!", name))
	}
	return next
}

func (e *Engine) giveCard(s *GameState, a GiveCard) *GameState {
	idx, msg, ok := actingPlayer(s, a.PlayerID)
	if !ok {
		return s
	}
	target := s.PlayerIndex(a.TargetPlayerID)
	if target < 0 || target == idx {
		return s
	}
	if msg != "" {
		return e.reject(s, msg)
	}

	giver := s.Players[idx]
	receiver := s.Players[target]
	if giver.ActionsRemaining < 1 {
		return s
	}
	if !rules.CanGiveRemotely(giver.Role) && giver.CurrentCity != receiver.CurrentCity {
		return e.reject(s, "Csak egy városban lévő játékosnak adhatsz át kártyát! (Kivéve Réka)")
	}
	pos := giver.HandIndex(a.CardID)
	if pos < 0 {
		return s
	}

	next := s.Clone()
	g := next.Players[idx]
	r := next.Players[target]
	card := g.Hand[pos]
	g.Hand = append(g.Hand[:pos:pos], g.Hand[pos+1:]...)
	g.ActionsRemaining--
	r.Hand = append(r.Hand, card)
	next.log(fmt.Sprintf("%s átadott egy kártyát (%s) neki: %s", g.Name, card.Name, r.Name))
	evt := rules.NewEvent(rules.EventCardGiven, g.ID, g.CurrentCity, card.ID)
	evt.Description = r.ID
	e.emit(next, evt)
	return next
}

func (e *Engine) loadGame(s *GameState, a LoadGame) *GameState {
	if a.Snapshot == nil {
		return s
	}
	next := a.Snapshot.Clone()
	next.log("Játék sikeresen betöltve!")
	e.logger.Info("game state loaded",
		zap.Int("players", len(next.Players)),
		zap.String("status", string(next.GameStatus)),
	)
	return next
}
