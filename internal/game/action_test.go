package game

import (
	"encoding/json"
	"testing"

	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalActionEnvelope(t *testing.T) {
	a, err := UnmarshalAction([]byte(`{"type":"MOVE_PLAYER","payload":{"playerId":"player-1","destination":"Buda"}}`))
	require.NoError(t, err)
	assert.Equal(t, MovePlayer{PlayerID: "player-1", Destination: "Buda"}, a)

	a, err = UnmarshalAction([]byte(`{"type":"RESOLVE_THREAT","payload":{"city":"Etil","threatIndex":2,"cardIds":["a","b"]}}`))
	require.NoError(t, err)
	assert.Equal(t, ResolveThreat{City: "Etil", ThreatIndex: 2, CardIDs: []string{"a", "b"}}, a)

	a, err = UnmarshalAction([]byte(`{"type":"CLAIM_LEGACY","payload":{"playerId":"player-0","legacyType":"bow"}}`))
	require.NoError(t, err)
	assert.Equal(t, ClaimLegacy{PlayerID: "player-0", LegacyType: rules.LegacyBow}, a)

	a, err = UnmarshalAction([]byte(`{"type":"END_TURN"}`))
	require.NoError(t, err)
	assert.Equal(t, EndTurn{}, a)
}

func TestMarshalActionUsesWireTags(t *testing.T) {
	data, err := MarshalAction(GiveCard{PlayerID: "p0", TargetPlayerID: "p1", CardID: "c"})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "GIVE_CARD", doc["type"])
	assert.Equal(t, map[string]any{"playerId": "p0", "targetPlayerId": "p1", "cardId": "c"}, doc["payload"])

	data, err = MarshalAction(EndTurn{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"END_TURN"}`, string(data))
}

func TestUnmarshalActionErrors(t *testing.T) {
	_, err := UnmarshalAction([]byte(`{"type":"CAST_SPELL","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = UnmarshalAction([]byte(`{"type":"MOVE_PLAYER"}`))
	assert.Error(t, err)

	_, err = UnmarshalAction([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadGameActionValidatesSnapshot(t *testing.T) {
	_, err := UnmarshalAction([]byte(`{"type":"LOAD_GAME","payload":{"players":[]}}`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	s := dealt(t)
	data, err := MarshalAction(LoadGame{Snapshot: s})
	require.NoError(t, err)

	a, err := UnmarshalAction(data)
	require.NoError(t, err)
	load, ok := a.(LoadGame)
	require.True(t, ok)
	assert.Equal(t, checksumOf(t, s), checksumOf(t, load.Snapshot))
}
