package game

import (
	"fmt"

	"github.com/atilla-legacy/legacy-server-go/internal/cards"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// endTurn runs the end-of-turn sequence on a copy of s. Steps run in
// rules.EndTurnSequence order; a loss at the loss check does not stop the
// remaining steps, matching the board game's bookkeeping.
func (e *Engine) endTurn(s *GameState) *GameState {
	next := s.Clone()
	ending := next.ActivePlayer()
	if ending == nil {
		return s
	}

	for _, step := range rules.EndTurnSequence {
		next.TurnPhase = step.Phase()
		switch step {
		case rules.StepReplenish:
			e.replenish(next)
		case rules.StepThreatDraw:
			e.drawThreats(next)
		case rules.StepFestival:
			e.festival(next)
		case rules.StepLossCheck:
			checkThreatCeiling(next)
		case rules.StepPassiveReduction:
			e.passiveReduction(next)
		case rules.StepAdvance:
			next.ActivePlayerIndex = rules.NextPlayerIndex(next.ActivePlayerIndex, len(next.Players))
		}
	}
	e.emit(next, rules.NewEvent(rules.EventTurnEnded, ending.ID, ending.CurrentCity, ""))
	next.Turn++

	e.logger.Debug("turn ended",
		zap.Int("turn", next.Turn),
		zap.Int("storms", next.StormCount),
		zap.Int("threats", next.TotalThreats()),
		zap.String("status", string(next.GameStatus)),
	)
	return next
}

// drawActionCards moves up to n cards from the action deck for player. Storm
// cards are counted and discarded; the rest are returned.
func (e *Engine) drawActionCards(s *GameState, player *Player, n int) []cards.Card {
	if n > len(s.ActionDeck) {
		n = len(s.ActionDeck)
	}
	drawn := s.ActionDeck[:n]
	s.ActionDeck = cloneSlice(s.ActionDeck[n:])

	kept := make([]cards.Card, 0, n)
	for _, c := range drawn {
		if c.Type == cards.TypeStorm {
			s.StormCount++
			s.ActionDiscard = append(s.ActionDiscard, c)
			e.emit(s, rules.NewEventWithAmount(rules.EventStormDrawn, player.ID, "", c.ID, s.StormCount))
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) > 0 {
		e.emit(s, rules.NewEventWithAmount(rules.EventCardsDrawn, player.ID, "", "", len(kept)))
	}
	return kept
}

func (e *Engine) replenish(s *GameState) {
	p := s.ActivePlayer()
	if len(s.ActionDeck) == 0 && s.GameStatus == StatusPlaying {
		s.GameStatus = StatusLost
		s.log("Elfogyott a pakli! A birodalom erőforrásai kimerültek.")
	}
	p.Hand = append(p.Hand, e.drawActionCards(s, p, rules.CardsPerTurn)...)
	p.ActionsRemaining = rules.ActionsPerTurn
	p.SpecialAbilityUsed = false
}

func (e *Engine) drawThreats(s *GameState) {
	n := rules.ThreatDrawCount(s.StormCount)
	if n > len(s.ThreatDeck) {
		n = len(s.ThreatDeck)
	}
	drawn := s.ThreatDeck[:n]
	s.ThreatDeck = cloneSlice(s.ThreatDeck[n:])

	for _, c := range drawn {
		s.ThreatDiscard = append(s.ThreatDiscard, c)
		switch c.Type {
		case cards.TypeCrisis:
			s.log(fmt.Sprintf("VÁLSÁG: %s! %s", c.Name, c.Description))
			e.emit(s, rules.NewEvent(rules.EventCrisisDrawn, "", "", string(c.CrisisType)))
			e.applyCrisis(s, c.CrisisType)
		case cards.TypeThreat:
			e.placeThreat(s, c)
		}
	}
}

func (e *Engine) placeThreat(s *GameState, c cards.Card) {
	city := s.Cities[c.TargetCity]
	if city == nil || c.ThreatType == "" || city.IsLost {
		return
	}
	city.Threats = append(city.Threats, c.ThreatType)
	s.log(fmt.Sprintf("Új fenyegetés: %s itt: %s", c.ThreatType, city.Name))
	e.emit(s, rules.NewEventWithAmount(rules.EventThreatPlaced, "", city.Name, string(c.ThreatType), len(city.Threats)))

	if len(city.Threats) >= rules.OutbreakThreshold {
		s.OutbreakCount++
		s.log(fmt.Sprintf("LÁZADÁS KITÖRT: %s!", city.Name))
		e.emit(s, rules.NewEventWithAmount(rules.EventOutbreak, "", city.Name, "", s.OutbreakCount))
	}
}

func (e *Engine) applyCrisis(s *GameState, t cards.CrisisType) {
	names := s.CityOrder()
	if len(names) == 0 {
		return
	}

	switch t {
	case cards.CrisisBirodalomFelbomlasa:
		picks := 3 + e.rng.IntN(3)
		for i := 0; i < picks; i++ {
			city := s.Cities[names[e.rng.IntN(len(names))]]
			if city != nil && !city.IsLost {
				city.Threats = append(city.Threats, cards.ThreatBelviszaly)
				e.emit(s, rules.NewEventWithAmount(rules.EventThreatPlaced, "", city.Name, string(cards.ThreatBelviszaly), len(city.Threats)))
			}
		}
	case cards.CrisisNagyEhinseg:
		for i := 0; i < 2; i++ {
			if city := s.Cities[names[e.rng.IntN(len(names))]]; city != nil {
				city.Threats = append(city.Threats, cards.ThreatRosszTermes)
				e.emit(s, rules.NewEventWithAmount(rules.EventThreatPlaced, "", city.Name, string(cards.ThreatRosszTermes), len(city.Threats)))
			}
		}
	case cards.CrisisFeketeHalal:
		// announced only
	}
}

func (e *Engine) festival(s *GameState) {
	if len(s.Players) == 0 {
		return
	}
	first := s.Players[0].CurrentCity
	for _, p := range s.Players[1:] {
		if p.CurrentCity != first {
			return
		}
	}
	s.log("NIMRÓD ÜNNEPE! Az ősök megáldanak titeket.")
	e.emit(s, rules.NewEvent(rules.EventFestival, "", first, ""))
	for _, p := range s.Players {
		p.ActionsRemaining++
	}
}

func checkThreatCeiling(s *GameState) {
	if s.TotalThreats() < rules.MaxThreatsOnBoard {
		return
	}
	if s.GameStatus == StatusPlaying {
		s.GameStatus = StatusLost
	}
	s.log("A birodalom összeomlott a fenyegetések súlya alatt!")
}

// passiveReduction removes the newest threat from every occupied city once
// per round, when the last seat ends its turn.
func (e *Engine) passiveReduction(s *GameState) {
	if !rules.IsRoundEnd(s.ActivePlayerIndex, len(s.Players)) {
		return
	}
	occupied := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		occupied[p.CurrentCity] = true
	}

	reduced := 0
	for _, name := range s.CityOrder() {
		city := s.Cities[name]
		if city != nil && occupied[name] && len(city.Threats) > 0 {
			city.Threats = city.Threats[:len(city.Threats)-1]
			reduced++
		}
	}
	if reduced > 0 {
		s.log(fmt.Sprintf("A hősök jelenléte %d fenyegetést hárított el a kör végén.", reduced))
		e.emit(s, rules.NewEventWithAmount(rules.EventThreatsReduced, "", "", "", reduced))
	}
}

// applyBlessing runs the effect of a played Blessing on s in place.
func (e *Engine) applyBlessing(s *GameState, t cards.BlessingType) {
	switch t {
	case cards.BlessingNimrodAldasa:
		removed := 0
		for _, name := range s.CityOrder() {
			if removed >= rules.BlessingPurgeCount {
				break
			}
			city := s.Cities[name]
			if city != nil && len(city.Threats) > 0 {
				city.Threats = city.Threats[:len(city.Threats)-1]
				removed++
			}
		}
	case cards.BlessingUstengriKegyelme:
		for _, p := range s.Players {
			p.Hand = append(p.Hand, e.drawActionCards(s, p, rules.BlessingDrawCount)...)
		}
	case cards.BlessingTaltosGyogyitas:
		for _, city := range s.Cities {
			if city == nil {
				continue
			}
			kept := make([]cards.ThreatType, 0, len(city.Threats))
			for _, t := range city.Threats {
				if t != cards.ThreatJarvany {
					kept = append(kept, t)
				}
			}
			city.Threats = kept
		}
	case cards.BlessingTurulLatomasa, cards.BlessingOsokTanacsa:
		// no board effect yet
	}
}
