package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
)

// Kind is the wire tag of an action.
type Kind string

const (
	KindMovePlayer    Kind = "MOVE_PLAYER"
	KindPlayCard      Kind = "PLAY_CARD"
	KindDrawCards     Kind = "DRAW_CARDS"
	KindEndTurn       Kind = "END_TURN"
	KindClaimLegacy   Kind = "CLAIM_LEGACY"
	KindResolveThreat Kind = "RESOLVE_THREAT"
	KindGiveCard      Kind = "GIVE_CARD"
	KindLoadGame      Kind = "LOAD_GAME"
)

// Action is a command for the engine. The set of implementations is closed;
// the unexported marker keeps other packages from adding variants.
type Action interface {
	Kind() Kind
	sealed()
}

// MovePlayer moves a player to an adjacent city.
type MovePlayer struct {
	PlayerID    string `json:"playerId"`
	Destination string `json:"destination"`
}

// PlayCard plays a Blessing card from a player's hand.
type PlayCard struct {
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId"`
}

// DrawCards is part of the protocol; the engine ignores it.
type DrawCards struct {
	PlayerID string `json:"playerId"`
	Count    int    `json:"count"`
}

// EndTurn runs the end-of-turn sequence for the active player.
type EndTurn struct{}

// ClaimLegacy claims a legacy for the team.
type ClaimLegacy struct {
	PlayerID   string           `json:"playerId"`
	LegacyType rules.LegacyType `json:"legacyType"`
}

// ResolveThreat pays off one threat in the active player's city.
type ResolveThreat struct {
	City        string   `json:"city"`
	ThreatIndex int      `json:"threatIndex"`
	CardIDs     []string `json:"cardIds"`
}

// GiveCard hands a card to another player.
type GiveCard struct {
	PlayerID       string `json:"playerId"`
	TargetPlayerID string `json:"targetPlayerId"`
	CardID         string `json:"cardId"`
}

// LoadGame replaces the whole state with a snapshot.
type LoadGame struct {
	Snapshot *GameState
}

func (MovePlayer) Kind() Kind    { return KindMovePlayer }
func (PlayCard) Kind() Kind      { return KindPlayCard }
func (DrawCards) Kind() Kind     { return KindDrawCards }
func (EndTurn) Kind() Kind       { return KindEndTurn }
func (ClaimLegacy) Kind() Kind   { return KindClaimLegacy }
func (ResolveThreat) Kind() Kind { return KindResolveThreat }
func (GiveCard) Kind() Kind      { return KindGiveCard }
func (LoadGame) Kind() Kind      { return KindLoadGame }

func (MovePlayer) sealed()    {}
func (PlayCard) sealed()      {}
func (DrawCards) sealed()     {}
func (EndTurn) sealed()       {}
func (ClaimLegacy) sealed()   {}
func (ResolveThreat) sealed() {}
func (GiveCard) sealed()      {}
func (LoadGame) sealed()      {}

// ErrUnknownAction is returned when a wire envelope carries an unknown tag.
var ErrUnknownAction = errors.New("unknown action type")

type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalAction encodes an action as {"type": ..., "payload": ...}.
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("nil action")
	}

	var payload any
	switch act := a.(type) {
	case EndTurn:
		return json.Marshal(envelope{Type: KindEndTurn})
	case LoadGame:
		payload = act.Snapshot
	default:
		payload = act
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", a.Kind(), err)
	}
	return json.Marshal(envelope{Type: a.Kind(), Payload: raw})
}

// UnmarshalAction decodes a wire envelope. LOAD_GAME payloads go through the
// snapshot validator before an action is built.
func UnmarshalAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}

	switch env.Type {
	case KindEndTurn:
		return EndTurn{}, nil
	case KindMovePlayer:
		return decodePayload[MovePlayer](env)
	case KindPlayCard:
		return decodePayload[PlayCard](env)
	case KindDrawCards:
		return decodePayload[DrawCards](env)
	case KindClaimLegacy:
		return decodePayload[ClaimLegacy](env)
	case KindResolveThreat:
		return decodePayload[ResolveThreat](env)
	case KindGiveCard:
		return decodePayload[GiveCard](env)
	case KindLoadGame:
		snapshot, err := DecodeSnapshot(env.Payload, FormatJSON)
		if err != nil {
			return nil, err
		}
		return LoadGame{Snapshot: snapshot}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
}

func decodePayload[T Action](env envelope) (Action, error) {
	var v T
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%s: missing payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return v, nil
}
