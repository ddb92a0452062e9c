package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SnapshotVersion is written into every save file.
const SnapshotVersion = 1

// Format selects the document encoding of a snapshot.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q", s)
	}
}

// ErrInvalidSnapshot is wrapped by every structural rejection of a loaded
// document.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// requiredFields must be present at the top level of a loadable document.
var requiredFields = []string{"players", "cities", "gameStatus", "activePlayerIndex", "legaciesCollected"}

// EncodeSnapshot serializes the whole aggregate.
func EncodeSnapshot(s *GameState, f Format) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("encode snapshot: nil state")
	}
	switch f {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatYAML:
		return yaml.Marshal(s)
	default:
		return nil, fmt.Errorf("encode snapshot: unknown format %q", f)
	}
}

// DecodeSnapshot parses and validates a snapshot document. Documents missing
// a required field or with the wrong gross shape are rejected with an error
// wrapping ErrInvalidSnapshot.
func DecodeSnapshot(data []byte, f Format) (*GameState, error) {
	var raw map[string]any
	var unmarshal func([]byte, any) error

	switch f {
	case FormatJSON:
		unmarshal = json.Unmarshal
	case FormatYAML:
		unmarshal = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("decode snapshot: unknown format %q", f)
	}

	if err := unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := checkShape(raw); err != nil {
		return nil, err
	}

	var s GameState
	if err := unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := checkState(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func checkShape(raw map[string]any) error {
	if raw == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidSnapshot)
	}
	var missing []string
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields %s", ErrInvalidSnapshot, strings.Join(missing, ", "))
	}
	if _, ok := raw["players"].([]any); !ok {
		return fmt.Errorf("%w: players must be a list", ErrInvalidSnapshot)
	}
	if _, ok := raw["cities"].(map[string]any); !ok {
		return fmt.Errorf("%w: cities must be a mapping", ErrInvalidSnapshot)
	}
	return nil
}

func checkState(s *GameState) error {
	if len(s.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrInvalidSnapshot)
	}
	for i, p := range s.Players {
		if p == nil {
			return fmt.Errorf("%w: player %d is empty", ErrInvalidSnapshot, i)
		}
	}
	for name, c := range s.Cities {
		if c == nil {
			return fmt.Errorf("%w: city %s is empty", ErrInvalidSnapshot, name)
		}
	}
	if s.ActivePlayerIndex < 0 || s.ActivePlayerIndex >= len(s.Players) {
		return fmt.Errorf("%w: active player index %d out of range", ErrInvalidSnapshot, s.ActivePlayerIndex)
	}
	switch s.GameStatus {
	case StatusPlaying, StatusWon, StatusLost:
	default:
		return fmt.Errorf("%w: unknown game status %q", ErrInvalidSnapshot, s.GameStatus)
	}
	return nil
}

// SerializationChecksum identifies a state independent of when it was taken.
type SerializationChecksum struct {
	Hash    string
	Version int
}

// Checksum hashes the canonical JSON form of s. encoding/json writes map
// keys sorted, and nil and empty lists are treated alike, so a state hashes
// the same after a JSON or YAML round trip.
func Checksum(s *GameState) (*SerializationChecksum, error) {
	data, err := json.Marshal(canonical(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	sum := sha256.Sum256(data)
	return &SerializationChecksum{
		Hash:    hex.EncodeToString(sum[:]),
		Version: SnapshotVersion,
	}, nil
}

func canonical(s *GameState) *GameState {
	c := s.Clone()
	if c == nil {
		return nil
	}
	for _, city := range c.Cities {
		if city == nil {
			continue
		}
		city.Neighbors = nonNil(city.Neighbors)
		city.Threats = nonNil(city.Threats)
	}
	for _, p := range c.Players {
		if p != nil {
			p.Hand = nonNil(p.Hand)
		}
	}
	c.ActionDeck = nonNil(c.ActionDeck)
	c.ActionDiscard = nonNil(c.ActionDiscard)
	c.ThreatDeck = nonNil(c.ThreatDeck)
	c.ThreatDiscard = nonNil(c.ThreatDiscard)
	c.Messages = nonNil(c.Messages)
	return c
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// SaveFile is the on-disk and in-database envelope around a snapshot.
type SaveFile struct {
	Version  int        `json:"version" yaml:"version"`
	Checksum string     `json:"checksum" yaml:"checksum"`
	SavedAt  time.Time  `json:"savedAt" yaml:"savedAt"`
	State    *GameState `json:"state" yaml:"state"`
}

// NewSaveFile wraps s with its checksum.
func NewSaveFile(s *GameState, now time.Time) (*SaveFile, error) {
	sum, err := Checksum(s)
	if err != nil {
		return nil, err
	}
	return &SaveFile{
		Version:  SnapshotVersion,
		Checksum: sum.Hash,
		SavedAt:  now.UTC(),
		State:    s,
	}, nil
}

// Verify recomputes the checksum of the wrapped state.
func (f *SaveFile) Verify() error {
	if f.State == nil {
		return fmt.Errorf("%w: save file has no state", ErrInvalidSnapshot)
	}
	if f.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported save version %d", ErrInvalidSnapshot, f.Version)
	}
	sum, err := Checksum(f.State)
	if err != nil {
		return err
	}
	if sum.Hash != f.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidSnapshot)
	}
	return nil
}

// EncodeSaveFile serializes a save envelope.
func EncodeSaveFile(f *SaveFile, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(f, "", "  ")
	case FormatYAML:
		return yaml.Marshal(f)
	default:
		return nil, fmt.Errorf("encode save: unknown format %q", format)
	}
}

// DecodeSaveFile parses a save envelope, validates the embedded snapshot and
// verifies its checksum.
func DecodeSaveFile(data []byte, format Format) (*SaveFile, error) {
	var env struct {
		Version  int       `json:"version" yaml:"version"`
		Checksum string    `json:"checksum" yaml:"checksum"`
		SavedAt  time.Time `json:"savedAt" yaml:"savedAt"`
	}
	var state []byte

	switch format {
	case FormatJSON:
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		state = doc["state"]
	case FormatYAML:
		var doc struct {
			State yaml.Node `yaml:"state"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if doc.State.Kind != 0 {
			out, err := yaml.Marshal(&doc.State)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
			}
			state = out
		}
	default:
		return nil, fmt.Errorf("decode save: unknown format %q", format)
	}

	if len(state) == 0 {
		return nil, fmt.Errorf("%w: save file has no state", ErrInvalidSnapshot)
	}
	s, err := DecodeSnapshot(state, format)
	if err != nil {
		return nil, err
	}

	f := &SaveFile{Version: env.Version, Checksum: env.Checksum, SavedAt: env.SavedAt, State: s}
	if err := f.Verify(); err != nil {
		return nil, err
	}
	return f, nil
}
