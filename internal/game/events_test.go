package game

import (
	"testing"

	"github.com/atilla-legacy/legacy-server-go/internal/cards"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRecordingEngine(t *testing.T) (*Engine, *[]rules.Event) {
	t.Helper()
	bus := rules.NewEventBus()
	var events []rules.Event
	bus.Subscribe(func(evt rules.Event) { events = append(events, evt) })
	e := NewEngine(WithRand(testRand()), WithLogger(zaptest.NewLogger(t)), WithEventBus(bus))
	return e, &events
}

func eventTypes(events []rules.Event) []rules.EventType {
	types := make([]rules.EventType, len(events))
	for i, evt := range events {
		types[i] = evt.Type
	}
	return types
}

func TestMovePublishesPlayerMoved(t *testing.T) {
	e, events := newRecordingEngine(t)
	s := newTestState(t, 2)

	e.Apply(s, MovePlayer{PlayerID: "player-0", Destination: "Buda"})

	require.Len(t, *events, 1)
	evt := (*events)[0]
	assert.Equal(t, rules.EventPlayerMoved, evt.Type)
	assert.Equal(t, "player-0", evt.PlayerID)
	assert.Equal(t, "Buda", evt.City)
	assert.Equal(t, "Etil", evt.Subject)
	assert.Equal(t, s.Turn, evt.Turn)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestIgnoredActionsPublishNothing(t *testing.T) {
	e, events := newRecordingEngine(t)
	s := newTestState(t, 2)

	assert.Same(t, s, e.Apply(s, MovePlayer{PlayerID: "ghost", Destination: "Buda"}))
	assert.Same(t, s, e.Apply(s, DrawCards{}))
	assert.Empty(t, *events)

	e.Apply(s, MovePlayer{PlayerID: "player-0", Destination: "Kasgár"})
	require.Len(t, *events, 1)
	assert.Equal(t, rules.EventActionRejected, (*events)[0].Type)
	assert.Equal(t, "Nem léphetsz oda! Kasgár nem szomszédos Etil-val.", (*events)[0].Description)
}

func TestEndTurnPublishesSequenceInOrder(t *testing.T) {
	e, events := newRecordingEngine(t)
	s := newTestState(t, 2)
	s.Players[1].CurrentCity = "Buda"
	s.Cities["Kobdo"].Threats = []cards.ThreatType{cards.ThreatJarvany, cards.ThreatJarvany}
	s.ActionDeck = []cards.Card{
		{ID: "storm-0", Name: "Vihar", Type: cards.TypeStorm},
		actionCard("a1", cards.SubTypeHarci),
		actionCard("a2", cards.SubTypeLovas),
	}
	s.ThreatDeck = []cards.Card{threatCard("t1", "Kobdo", cards.ThreatRablobanda)}

	e.Apply(s, EndTurn{})

	assert.Equal(t, []rules.EventType{
		rules.EventStormDrawn,
		rules.EventCardsDrawn,
		rules.EventThreatPlaced,
		rules.EventOutbreak,
		rules.EventTurnEnded,
	}, eventTypes(*events))

	placed := (*events)[2]
	assert.Equal(t, "Kobdo", placed.City)
	assert.Equal(t, string(cards.ThreatRablobanda), placed.Subject)
	assert.Equal(t, 3, placed.Amount)
	assert.Equal(t, "player-0", (*events)[4].PlayerID)
	assert.Equal(t, s.Turn, (*events)[4].Turn)
}

func TestTerminalTransitionsPublishOutcome(t *testing.T) {
	e, events := newRecordingEngine(t)
	s := newTestState(t, 2)
	s.ActionDeck = nil

	lost := e.Apply(s, EndTurn{})
	require.Equal(t, StatusLost, lost.GameStatus)
	last := (*events)[len(*events)-1]
	assert.Equal(t, rules.EventGameLost, last.Type)
	assert.True(t, last.Type.IsTerminal())

	*events = nil
	assert.Same(t, lost, e.Apply(lost, EndTurn{}))
	assert.Empty(t, *events, "nothing happens after the game ends")
}

func TestClaimAndGivePublishEvents(t *testing.T) {
	e, events := newRecordingEngine(t)
	s := newTestState(t, 2)
	fillHand(s.Players[0], rules.LegacyHandSize)
	s.Players[0].CurrentCity = rules.LegacyLocations[rules.LegacyTypes[0]]

	s = e.Apply(s, ClaimLegacy{PlayerID: "player-0", LegacyType: rules.LegacyTypes[0]})
	s.Players[1].CurrentCity = s.Players[0].CurrentCity
	e.Apply(s, GiveCard{PlayerID: "player-0", TargetPlayerID: "player-1", CardID: "start-0-0"})

	require.Equal(t, []rules.EventType{rules.EventLegacyClaimed, rules.EventCardGiven}, eventTypes(*events))
	assert.Equal(t, rules.LegacyName(rules.LegacyTypes[0]), (*events)[0].Subject)
	assert.Equal(t, "start-0-0", (*events)[1].Subject)
	assert.Equal(t, "player-1", (*events)[1].Description)
}

func TestListenersMayApplyOnTheSameEngine(t *testing.T) {
	bus := rules.NewEventBus()
	e := NewEngine(WithRand(testRand()), WithEventBus(bus))
	other := newTestState(t, 2)

	var nested *GameState
	bus.SubscribeTyped(rules.EventPlayerMoved, func(rules.Event) {
		if nested == nil {
			nested = e.Apply(other, EndTurn{})
		}
	})

	e.Apply(newTestState(t, 2), MovePlayer{PlayerID: "player-0", Destination: "Buda"})
	require.NotNil(t, nested, "listener ran outside the engine lock")
	assert.Equal(t, 1, nested.ActivePlayerIndex)
}
