package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/atilla-legacy/legacy-server-go/internal/board"
	"github.com/atilla-legacy/legacy-server-go/internal/cards"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(WithRand(testRand()), WithLogger(zaptest.NewLogger(t)))
}

// newTestState deals a beginner game and clears every random element the
// test does not set up itself.
func newTestState(t *testing.T, players int) *GameState {
	t.Helper()
	s, err := NewInitialState(testRand(), players, rules.Beginner)
	require.NoError(t, err)
	for _, c := range s.Cities {
		c.Threats = []cards.ThreatType{}
	}
	s.Messages = nil
	return s
}

func actionCard(id string, st cards.SubType) cards.Card {
	return cards.Card{ID: id, Name: string(st) + " Kártya", Type: cards.TypeAction, SubType: st}
}

func threatCard(id, city string, tt cards.ThreatType) cards.Card {
	return cards.Card{ID: id, Name: "Fenyegetés", Type: cards.TypeThreat, TargetCity: city, ThreatType: tt}
}

func checksumOf(t *testing.T, s *GameState) string {
	t.Helper()
	sum, err := Checksum(s)
	require.NoError(t, err)
	return sum.Hash
}

func TestBeginnerTwoPlayerStart(t *testing.T) {
	s, err := NewInitialState(testRand(), 2, rules.Beginner)
	require.NoError(t, err)

	assert.Empty(t, s.Cities[board.Capital].Threats)
	assert.Equal(t, 0, s.StormCount)
	assert.Equal(t, 0, s.TotalThreats())
	assert.Equal(t, StatusPlaying, s.GameStatus)
	assert.Equal(t, rules.PhaseAction, s.TurnPhase)
	assert.Equal(t, 0, s.ActivePlayerIndex)
	assert.True(t, s.Cities[board.Capital].HasCapital)
	assert.Len(t, s.Cities, len(board.Default().Cities()))
	assert.Equal(t, []string{"Játék kezdődik! Nehézség: BEGINNER"}, s.Messages)

	require.Len(t, s.Players, 2)
	for i, p := range s.Players {
		assert.Equal(t, fmt.Sprintf("player-%d", i), p.ID)
		assert.Equal(t, rules.Roles[i].Role, p.Role)
		assert.Equal(t, board.Capital, p.CurrentCity)
		assert.Equal(t, rules.ActionsPerTurn, p.ActionsRemaining)
		assert.Len(t, p.Hand, 2)
	}
	assert.Equal(t, cards.SubTypeLovas, s.Players[0].Hand[0].SubType)

	assert.Len(t, s.ActionDeck, cards.ActionCardCount+2+len(cards.Blessings))
	assert.Len(t, s.ThreatDeck, cards.ThreatCardCount+1)
}

func TestInitialThreatsFollowDifficulty(t *testing.T) {
	s, err := NewInitialState(testRand(), 4, rules.Legendary)
	require.NoError(t, err)
	assert.Equal(t, 8, s.TotalThreats())
	assert.Len(t, s.ThreatDeck, cards.ThreatCardCount+3)
}

func TestNewInitialStateRejectsBadInput(t *testing.T) {
	_, err := NewInitialState(testRand(), 1, rules.Normal)
	assert.Error(t, err)
	_, err = NewInitialState(testRand(), 7, rules.Normal)
	assert.Error(t, err)
	_, err = NewInitialState(testRand(), 3, "impossible")
	assert.Error(t, err)
}

func TestMoveToNeighbor(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	before := checksumOf(t, s)

	next := e.Apply(s, MovePlayer{PlayerID: "player-0", Destination: "Buda"})

	p := next.Players[0]
	assert.Equal(t, "Buda", p.CurrentCity)
	assert.Equal(t, board.Capital, p.LastCity)
	assert.Equal(t, rules.ActionsPerTurn-1, p.ActionsRemaining)
	assert.Equal(t, "Ellák átlépett ide: Buda", next.LastMessage())

	assert.Equal(t, before, checksumOf(t, s), "input state must not change")
	assert.Equal(t, board.Capital, s.Players[0].CurrentCity)
}

func TestMoveToNonNeighborRejected(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)

	next := e.Apply(s, MovePlayer{PlayerID: "player-0", Destination: "Kasgár"})

	require.NotSame(t, s, next)
	assert.Equal(t, "Nem léphetsz oda! Kasgár nem szomszédos Etil-val.", next.LastMessage())
	for i := range s.Players {
		assert.Equal(t, s.Players[i].CurrentCity, next.Players[i].CurrentCity)
		assert.Equal(t, s.Players[i].ActionsRemaining, next.Players[i].ActionsRemaining)
	}
}

func TestMoveWithoutActionPointsIsIgnored(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[0].ActionsRemaining = 0

	next := e.Apply(s, MovePlayer{PlayerID: "player-0", Destination: "Buda"})
	assert.Same(t, s, next)
}

func TestUnknownReferencesLeaveStateIdentical(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)

	assert.Same(t, s, e.Apply(s, MovePlayer{PlayerID: "nobody", Destination: "Buda"}))
	assert.Same(t, s, e.Apply(s, ResolveThreat{City: "Atlantisz", ThreatIndex: 0}))
	assert.Same(t, s, e.Apply(s, GiveCard{PlayerID: "player-0", TargetPlayerID: "nobody", CardID: "start-0-0"}))
	assert.Same(t, s, e.Apply(s, PlayCard{PlayerID: "player-0", CardID: "missing"}))
	assert.Same(t, s, e.Apply(s, DrawCards{PlayerID: "player-0", Count: 2}))
	assert.Same(t, s, e.Apply(s, ClaimLegacy{PlayerID: "player-0", LegacyType: "crown"}))
}

func TestInactivePlayerCannotAct(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)

	next := e.Apply(s, MovePlayer{PlayerID: "player-1", Destination: "Buda"})
	assert.Equal(t, board.Capital, next.Players[1].CurrentCity)
	assert.Contains(t, next.LastMessage(), "nem következik")
}

func TestResolveJarvanyWithThreeHealingCards(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Cities[board.Capital].Threats = []cards.ThreatType{cards.ThreatJarvany}
	s.Players[0].Hand = []cards.Card{
		actionCard("h1", cards.SubTypeGyogyitas),
		actionCard("h2", cards.SubTypeGyogyitas),
		actionCard("h3", cards.SubTypeGyogyitas),
	}
	discarded := len(s.ActionDiscard)

	next := e.Apply(s, ResolveThreat{City: board.Capital, ThreatIndex: 0, CardIDs: []string{"h1", "h2", "h3"}})

	assert.Empty(t, next.Cities[board.Capital].Threats)
	assert.Empty(t, next.Players[0].Hand)
	assert.Len(t, next.ActionDiscard, discarded+3)
	assert.Equal(t, rules.ActionsPerTurn-1, next.Players[0].ActionsRemaining)
	assert.Equal(t, "Ellák elhárította: Járvány (Etil)", next.LastMessage())

	assert.Len(t, s.Players[0].Hand, 3, "input hand must be untouched")
}

func TestResolveWithTooFewCardsChangesNothing(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Cities[board.Capital].Threats = []cards.ThreatType{cards.ThreatJarvany}
	s.Players[0].Hand = []cards.Card{
		actionCard("h1", cards.SubTypeGyogyitas),
		actionCard("h2", cards.SubTypeGyogyitas),
		actionCard("x1", cards.SubTypeHarci),
	}

	next := e.Apply(s, ResolveThreat{City: board.Capital, ThreatIndex: 0, CardIDs: []string{"h1", "h2", "x1"}})

	assert.Equal(t, []cards.ThreatType{cards.ThreatJarvany}, next.Cities[board.Capital].Threats)
	assert.Len(t, next.Players[0].Hand, 3)
	assert.Empty(t, next.ActionDiscard)
	assert.Equal(t, "Nincs elég Gyógyítás kártyád a fenyegetés elhárításához!", next.LastMessage())
}

func TestResolveDiscardsEverySuppliedCard(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Cities[board.Capital].Threats = []cards.ThreatType{
		cards.ThreatRablobanda, cards.ThreatRosszTermes, cards.ThreatBelviszaly,
	}
	s.Players[0].Hand = []cards.Card{
		actionCard("k1", cards.SubTypeKereskedelem),
		actionCard("x1", cards.SubTypeHarci),
		actionCard("k2", cards.SubTypeKereskedelem),
		actionCard("keep", cards.SubTypeLovas),
	}

	next := e.Apply(s, ResolveThreat{City: board.Capital, ThreatIndex: 1, CardIDs: []string{"k1", "x1", "k2"}})

	assert.Equal(t, []cards.ThreatType{cards.ThreatRablobanda, cards.ThreatBelviszaly}, next.Cities[board.Capital].Threats)
	assert.Equal(t, []string{"keep"}, cards.IDs(next.Players[0].Hand))
	assert.ElementsMatch(t, []string{"k1", "x1", "k2"}, cards.IDs(next.ActionDiscard))
}

func TestResolveRequiresPresenceAndActionPoints(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Cities["Buda"].Threats = []cards.ThreatType{cards.ThreatRosszTermes}
	s.Players[0].Hand = []cards.Card{
		actionCard("k1", cards.SubTypeKereskedelem),
		actionCard("k2", cards.SubTypeKereskedelem),
	}
	action := ResolveThreat{City: "Buda", ThreatIndex: 0, CardIDs: []string{"k1", "k2"}}

	assert.Same(t, s, e.Apply(s, action), "player is not in Buda")

	s.Players[0].CurrentCity = "Buda"
	s.Players[0].ActionsRemaining = 0
	next := e.Apply(s, action)
	assert.Len(t, next.Cities["Buda"].Threats, 1)
	assert.Len(t, next.Players[0].Hand, 2)
	assert.Contains(t, next.LastMessage(), "akcióponttal")

	assert.Same(t, s, e.Apply(s, ResolveThreat{City: "Buda", ThreatIndex: 3, CardIDs: []string{"k1"}}))
}

func TestGiveCardAcrossCitiesRejected(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[1].CurrentCity = "Buda"

	next := e.Apply(s, GiveCard{PlayerID: "player-0", TargetPlayerID: "player-1", CardID: "start-0-0"})

	assert.Equal(t, cards.IDs(s.Players[0].Hand), cards.IDs(next.Players[0].Hand))
	assert.Equal(t, cards.IDs(s.Players[1].Hand), cards.IDs(next.Players[1].Hand))
	assert.Equal(t, rules.ActionsPerTurn, next.Players[0].ActionsRemaining)
	assert.Equal(t, "Csak egy városban lévő játékosnak adhatsz át kártyát! (Kivéve Réka)", next.LastMessage())
}

func TestGiveCardInSameCity(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)

	next := e.Apply(s, GiveCard{PlayerID: "player-0", TargetPlayerID: "player-1", CardID: "start-0-0"})

	assert.Equal(t, []string{"start-0-1"}, cards.IDs(next.Players[0].Hand))
	assert.Equal(t, []string{"start-1-0", "start-1-1", "start-0-0"}, cards.IDs(next.Players[1].Hand))
	assert.Equal(t, rules.ActionsPerTurn-1, next.Players[0].ActionsRemaining)
	assert.Equal(t, rules.ActionsPerTurn, next.Players[1].ActionsRemaining)
}

func TestRekaGivesRemotely(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 4)
	s.ActivePlayerIndex = 3
	require.Equal(t, rules.RoleReka, s.Players[3].Role)
	s.Players[0].CurrentCity = "Kubán"

	next := e.Apply(s, GiveCard{PlayerID: "player-3", TargetPlayerID: "player-0", CardID: "start-3-1"})

	assert.Equal(t, []string{"start-3-0"}, cards.IDs(next.Players[3].Hand))
	assert.Contains(t, cards.IDs(next.Players[0].Hand), "start-3-1")
}

func TestGiveCardWithoutPointsOrCardIsIgnored(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)

	assert.Same(t, s, e.Apply(s, GiveCard{PlayerID: "player-0", TargetPlayerID: "player-1", CardID: "nope"}))

	s.Players[0].ActionsRemaining = 0
	assert.Same(t, s, e.Apply(s, GiveCard{PlayerID: "player-0", TargetPlayerID: "player-1", CardID: "start-0-0"}))
}

func fillHand(p *Player, n int) {
	for i := len(p.Hand); i < n; i++ {
		p.Hand = append(p.Hand, actionCard(fmt.Sprintf("filler-%d", i), cards.SubTypeStrategia))
	}
}

func TestClaimingAllFourLegaciesWins(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	fillHand(s.Players[0], rules.LegacyHandSize)

	for i, l := range rules.LegacyTypes {
		require.Equal(t, StatusPlaying, s.GameStatus, "won before claim %d", i+1)
		s = s.Clone()
		s.Players[0].CurrentCity = rules.LegacyLocations[l]

		s = e.Apply(s, ClaimLegacy{PlayerID: "player-0", LegacyType: l})
		assert.True(t, s.LegaciesCollected.Collected(l))
	}

	assert.Equal(t, StatusWon, s.GameStatus)
	assert.Equal(t, 0, s.Players[0].ActionsRemaining)
	assert.Equal(t, "MINDEN SZENT ÖRÖKSÉGET MEGSZEREZTETEK! GYŐZELEM!", s.LastMessage())
}

func TestClaimLegacyChecksPreconditions(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	claim := ClaimLegacy{PlayerID: "player-0", LegacyType: rules.LegacySeal}

	next := e.Apply(s, claim)
	assert.False(t, next.LegaciesCollected.Seal, "wrong city")

	s.Players[0].CurrentCity = "Kubán"
	next = e.Apply(s, claim)
	assert.False(t, next.LegaciesCollected.Seal, "hand too small")

	fillHand(s.Players[0], rules.LegacyHandSize)
	s.Players[0].ActionsRemaining = 0
	next = e.Apply(s, claim)
	assert.False(t, next.LegaciesCollected.Seal, "no action points")

	s.Players[0].ActionsRemaining = 2
	next = e.Apply(s, claim)
	require.True(t, next.LegaciesCollected.Seal)
	assert.Equal(t, "MEGSZEREZTÉTEK: Turulpecsét!", next.LastMessage())

	again := e.Apply(next, claim)
	assert.Equal(t, 1, again.Players[0].ActionsRemaining)
	assert.Contains(t, again.LastMessage(), "birtokotokban")
}

func TestEndTurnCyclesActivePlayer(t *testing.T) {
	for _, n := range []int{2, 3, 6} {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			e := newTestEngine(t)
			s := newTestState(t, n)

			for i := 1; i <= n; i++ {
				s = e.Apply(s, EndTurn{})
				require.Equal(t, StatusPlaying, s.GameStatus)
				assert.Equal(t, i%n, s.ActivePlayerIndex)
				assert.Equal(t, rules.PhaseAction, s.TurnPhase)
			}
			assert.Equal(t, 0, s.ActivePlayerIndex)
			assert.Equal(t, 1+n, s.Turn)
		})
	}
}

func TestEndTurnReplenishesActivePlayer(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[0].ActionsRemaining = 0
	s.Players[0].SpecialAbilityUsed = true
	s.Players[1].CurrentCity = "Buda"
	s.ActionDeck = []cards.Card{
		{ID: "storm-0", Name: "Vihar", Type: cards.TypeStorm},
		actionCard("a1", cards.SubTypeHarci),
		actionCard("a2", cards.SubTypeLovas),
	}
	s.ThreatDeck = []cards.Card{threatCard("t1", "Kobdo", cards.ThreatRablobanda)}

	next := e.Apply(s, EndTurn{})

	p := next.Players[0]
	assert.Equal(t, rules.ActionsPerTurn, p.ActionsRemaining)
	assert.False(t, p.SpecialAbilityUsed)
	assert.Equal(t, []string{"start-0-0", "start-0-1", "a1"}, cards.IDs(p.Hand))
	assert.Equal(t, 1, next.StormCount)
	assert.Equal(t, []string{"storm-0"}, cards.IDs(next.ActionDiscard))
	assert.Equal(t, []string{"a2"}, cards.IDs(next.ActionDeck))

	assert.Equal(t, []cards.ThreatType{cards.ThreatRablobanda}, next.Cities["Kobdo"].Threats)
	assert.Equal(t, []string{"t1"}, cards.IDs(next.ThreatDiscard))
	assert.Empty(t, next.ThreatDeck)
	assert.Equal(t, 1, next.ActivePlayerIndex)
}

func TestEndTurnDrawsMoreThreatsWithStorms(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[1].CurrentCity = "Buda"
	s.StormCount = rules.StormsPerEscalation * 2
	s.ThreatDeck = []cards.Card{
		threatCard("t1", "Kobdo", cards.ThreatRablobanda),
		threatCard("t2", "Kobdo", cards.ThreatJarvany),
		threatCard("t3", "Kobdo", cards.ThreatBelviszaly),
		threatCard("t4", "Kobdo", cards.ThreatRosszTermes),
	}

	next := e.Apply(s, EndTurn{})

	assert.Len(t, next.Cities["Kobdo"].Threats, 3)
	assert.Equal(t, 1, next.OutbreakCount)
	assert.Contains(t, next.Messages, "LÁZADÁS KITÖRT: Kobdo!")
	assert.Equal(t, []string{"t4"}, cards.IDs(next.ThreatDeck))
}

func TestThreatOnLostCityIsDropped(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[1].CurrentCity = "Buda"
	s.Cities["Kobdo"].IsLost = true
	s.ThreatDeck = []cards.Card{threatCard("t1", "Kobdo", cards.ThreatRablobanda)}

	next := e.Apply(s, EndTurn{})
	assert.Empty(t, next.Cities["Kobdo"].Threats)
	assert.Equal(t, []string{"t1"}, cards.IDs(next.ThreatDiscard))
}

func TestThreatCeilingLosesAndFreezesState(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[1].CurrentCity = "Buda"
	for i := 0; i < rules.MaxThreatsOnBoard-1; i++ {
		s.Cities["Kasgár"].Threats = append(s.Cities["Kasgár"].Threats, cards.ThreatRablobanda)
	}
	s.ThreatDeck = []cards.Card{
		threatCard("t1", "Ordosz", cards.ThreatJarvany),
		threatCard("t2", "Ordosz", cards.ThreatJarvany),
	}

	lost := e.Apply(s, EndTurn{})
	require.Equal(t, StatusLost, lost.GameStatus)
	assert.Contains(t, lost.Messages, "A birodalom összeomlott a fenyegetések súlya alatt!")

	assert.Same(t, lost, e.Apply(lost, EndTurn{}))
	assert.Same(t, lost, e.Apply(lost, MovePlayer{PlayerID: lost.ActivePlayer().ID, Destination: "Buda"}))
}

func TestCrisisBreakupAddsUnrest(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[1].CurrentCity = "Buda"
	s.ThreatDeck = []cards.Card{{
		ID: "crisis-0", Name: string(cards.CrisisBirodalomFelbomlasa), Type: cards.TypeCrisis,
		Description: "x", CrisisType: cards.CrisisBirodalomFelbomlasa,
	}}

	next := e.Apply(s, EndTurn{})

	unrest := 0
	for _, c := range next.Cities {
		for _, th := range c.Threats {
			require.Equal(t, cards.ThreatBelviszaly, th)
			unrest++
		}
	}
	assert.GreaterOrEqual(t, unrest, 3)
	assert.LessOrEqual(t, unrest, 5)
	assert.Contains(t, next.Messages, "VÁLSÁG: Birodalom felbomlása! x")
	assert.Equal(t, []string{"crisis-0"}, cards.IDs(next.ThreatDiscard))
}

func TestCrisisFamineAddsBadHarvests(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[1].CurrentCity = "Buda"
	s.ThreatDeck = []cards.Card{{ID: "crisis-0", Name: "n", Type: cards.TypeCrisis, CrisisType: cards.CrisisNagyEhinseg}}

	next := e.Apply(s, EndTurn{})
	assert.Equal(t, 2, next.TotalThreats())
}

func TestFestivalGrantsBonusPoint(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 3)
	s.Players[1].ActionsRemaining = 2
	s.ThreatDeck = nil

	next := e.Apply(s, EndTurn{})

	assert.Contains(t, next.Messages, "NIMRÓD ÜNNEPE! Az ősök megáldanak titeket.")
	assert.Equal(t, rules.ActionsPerTurn+1, next.Players[0].ActionsRemaining)
	assert.Equal(t, 3, next.Players[1].ActionsRemaining)
	assert.Equal(t, rules.ActionsPerTurn+1, next.Players[2].ActionsRemaining)
}

func TestPassiveReductionOnlyAtRoundEnd(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.Players[1].CurrentCity = "Buda"
	s.Cities[board.Capital].Threats = []cards.ThreatType{cards.ThreatJarvany, cards.ThreatRablobanda}
	s.Cities["Buda"].Threats = []cards.ThreatType{cards.ThreatNomadTamadas}
	s.ThreatDeck = nil

	mid := e.Apply(s, EndTurn{})
	assert.Len(t, mid.Cities[board.Capital].Threats, 2)
	assert.Len(t, mid.Cities["Buda"].Threats, 1)

	end := e.Apply(mid, EndTurn{})
	assert.Equal(t, []cards.ThreatType{cards.ThreatJarvany}, end.Cities[board.Capital].Threats)
	assert.Empty(t, end.Cities["Buda"].Threats)
	assert.Contains(t, end.Messages, "A hősök jelenléte 2 fenyegetést hárított el a kör végén.")
	assert.Equal(t, 0, end.ActivePlayerIndex)
}

func TestEmptyActionDeckLoses(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	s.ActionDeck = []cards.Card{}
	s.ThreatDeck = nil

	next := e.Apply(s, EndTurn{})
	assert.Equal(t, StatusLost, next.GameStatus)
}

func blessing(id string, bt cards.BlessingType) cards.Card {
	return cards.Card{ID: id, Name: string(bt), Type: cards.TypeBlessing, BlessingType: bt}
}

func TestBlessingEffects(t *testing.T) {
	t.Run("Nimród áldása removes two threats", func(t *testing.T) {
		e := newTestEngine(t)
		s := newTestState(t, 2)
		s.Cities["Dnyeszter"].Threats = []cards.ThreatType{cards.ThreatJarvany, cards.ThreatRablobanda}
		s.Cities["Kolozsvár"].Threats = []cards.ThreatType{cards.ThreatBelviszaly}
		s.Cities["Várhely"].Threats = []cards.ThreatType{cards.ThreatBelviszaly}
		s.Players[0].Hand = append(s.Players[0].Hand, blessing("b", cards.BlessingNimrodAldasa))

		next := e.Apply(s, PlayCard{PlayerID: "player-0", CardID: "b"})

		assert.Equal(t, []cards.ThreatType{cards.ThreatJarvany}, next.Cities["Dnyeszter"].Threats)
		assert.Empty(t, next.Cities["Kolozsvár"].Threats)
		assert.Len(t, next.Cities["Várhely"].Threats, 1)
		assert.Equal(t, []string{"b"}, cards.IDs(next.ActionDiscard))
		assert.Equal(t, rules.ActionsPerTurn, next.Players[0].ActionsRemaining)
	})

	t.Run("Üstengri kegyelme deals two to everyone", func(t *testing.T) {
		e := newTestEngine(t)
		s := newTestState(t, 2)
		s.ActionDeck = []cards.Card{
			actionCard("a1", cards.SubTypeHarci), actionCard("a2", cards.SubTypeHarci),
			actionCard("a3", cards.SubTypeHarci), actionCard("a4", cards.SubTypeHarci),
			actionCard("a5", cards.SubTypeHarci),
		}
		s.Players[0].Hand = []cards.Card{blessing("b", cards.BlessingUstengriKegyelme)}

		next := e.Apply(s, PlayCard{PlayerID: "player-0", CardID: "b"})

		assert.Equal(t, []string{"a1", "a2"}, cards.IDs(next.Players[0].Hand))
		assert.Equal(t, []string{"start-1-0", "start-1-1", "a3", "a4"}, cards.IDs(next.Players[1].Hand))
		assert.Equal(t, []string{"a5"}, cards.IDs(next.ActionDeck))
	})

	t.Run("Üstengri kegyelme counts drawn storms", func(t *testing.T) {
		e := newTestEngine(t)
		s := newTestState(t, 2)
		s.ActionDeck = []cards.Card{
			actionCard("a1", cards.SubTypeHarci),
			{ID: "storm-0", Name: "Vihar", Type: cards.TypeStorm},
			actionCard("a2", cards.SubTypeHarci), actionCard("a3", cards.SubTypeHarci),
		}
		s.Players[0].Hand = []cards.Card{blessing("b", cards.BlessingUstengriKegyelme)}

		next := e.Apply(s, PlayCard{PlayerID: "player-0", CardID: "b"})

		assert.Equal(t, []string{"a1"}, cards.IDs(next.Players[0].Hand))
		assert.Equal(t, []string{"start-1-0", "start-1-1", "a2", "a3"}, cards.IDs(next.Players[1].Hand))
		assert.Equal(t, 1, next.StormCount)
		assert.Equal(t, []string{"b", "storm-0"}, cards.IDs(next.ActionDiscard))
		assert.Empty(t, next.ActionDeck)
	})

	t.Run("Táltos gyógyítás purges epidemics", func(t *testing.T) {
		e := newTestEngine(t)
		s := newTestState(t, 2)
		s.Cities["Buda"].Threats = []cards.ThreatType{cards.ThreatJarvany, cards.ThreatRablobanda, cards.ThreatJarvany}
		s.Cities["Kubán"].Threats = []cards.ThreatType{cards.ThreatJarvany}
		s.Players[0].Hand = []cards.Card{blessing("b", cards.BlessingTaltosGyogyitas)}

		next := e.Apply(s, PlayCard{PlayerID: "player-0", CardID: "b"})

		assert.Equal(t, []cards.ThreatType{cards.ThreatRablobanda}, next.Cities["Buda"].Threats)
		assert.Empty(t, next.Cities["Kubán"].Threats)
	})

	t.Run("Turul látomása is consumed without effect", func(t *testing.T) {
		e := newTestEngine(t)
		s := newTestState(t, 2)
		s.Players[0].Hand = []cards.Card{blessing("b", cards.BlessingTurulLatomasa)}
		deck := cards.IDs(s.ThreatDeck)

		next := e.Apply(s, PlayCard{PlayerID: "player-0", CardID: "b"})

		assert.Empty(t, next.Players[0].Hand)
		assert.Equal(t, deck, cards.IDs(next.ThreatDeck))
		assert.Equal(t, "Ellák kijátszotta: Turul látomása", next.LastMessage())
	})
}

func TestPlayCardIgnoresActionCards(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	assert.Same(t, s, e.Apply(s, PlayCard{PlayerID: "player-0", CardID: "start-0-0"}))
}

func TestLoadGameReplacesState(t *testing.T) {
	e := newTestEngine(t)
	s := newTestState(t, 2)
	other := newTestState(t, 4)
	other.GameStatus = StatusWon
	other.Messages = []string{"régi"}

	next := e.Apply(s, LoadGame{Snapshot: other})

	assert.Len(t, next.Players, 4)
	assert.Equal(t, StatusWon, next.GameStatus)
	assert.Equal(t, []string{"régi", "Játék sikeresen betöltve!"}, next.Messages)
	assert.Equal(t, []string{"régi"}, other.Messages)

	reloaded := e.Apply(next, LoadGame{Snapshot: s})
	assert.Equal(t, StatusPlaying, reloaded.GameStatus, "load works from a finished game")
}

func TestApplyNeverMutatesInput(t *testing.T) {
	e := newTestEngine(t)
	s, err := NewInitialState(testRand(), 4, rules.Master)
	require.NoError(t, err)

	actions := []Action{
		MovePlayer{PlayerID: "player-0", Destination: "Don"},
		MovePlayer{PlayerID: "player-0", Destination: "Kubán"},
		GiveCard{PlayerID: "player-0", TargetPlayerID: "player-1", CardID: "start-0-0"},
		EndTurn{},
		EndTurn{},
		EndTurn{},
		EndTurn{},
	}
	for _, a := range actions {
		before := checksumOf(t, s)
		next := e.Apply(s, a)
		assert.Equal(t, before, checksumOf(t, s), "%s mutated its input", a.Kind())
		s = next
	}
}
