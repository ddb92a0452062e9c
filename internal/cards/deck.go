package cards

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Deck sizes
const (
	ActionCardCount = 60
	ThreatCardCount = 40
)

// BuildActionDeck returns a shuffled action deck: typed action cards cycling
// through every sub-type, storms Storm cards and one card per Blessing.
func BuildActionDeck(rng *rand.Rand, storms int) []Card {
	deck := make([]Card, 0, ActionCardCount+storms+len(Blessings))

	for i := 0; i < ActionCardCount; i++ {
		st := ActionSubTypes[i%len(ActionSubTypes)]
		deck = append(deck, Card{
			ID:          fmt.Sprintf("action-%d", i),
			Name:        fmt.Sprintf("%s Kártya", st),
			Type:        TypeAction,
			Description: fmt.Sprintf("Használható %s típusú fenyegetések ellen.", st),
			SubType:     st,
		})
	}

	for i := 0; i < storms; i++ {
		deck = append(deck, Card{
			ID:          fmt.Sprintf("storm-%d", i),
			Name:        "Vihar",
			Type:        TypeStorm,
			Description: "Eszkaláció! Új fenyegetések jelennek meg.",
		})
	}

	for i, b := range Blessings {
		deck = append(deck, Card{
			ID:           fmt.Sprintf("blessing-%d", i),
			Name:         string(b.Type),
			Type:         TypeBlessing,
			Description:  b.Description,
			BlessingType: b.Type,
		})
	}

	Shuffle(rng, deck)
	return deck
}

// BuildThreatDeck returns a shuffled threat deck: city-targeted threats
// cycling through every threat type and every city, plus crises Crisis cards.
func BuildThreatDeck(rng *rand.Rand, cities []string, crises int) []Card {
	deck := make([]Card, 0, ThreatCardCount+crises)

	if len(cities) > 0 {
		for i := 0; i < ThreatCardCount; i++ {
			deck = append(deck, Card{
				ID:          fmt.Sprintf("threat-%d", i),
				Name:        "Fenyegetés",
				Type:        TypeThreat,
				Description: "Új veszély a birodalomban.",
				TargetCity:  cities[i%len(cities)],
				ThreatType:  ThreatTypes[i%len(ThreatTypes)],
			})
		}
	}

	for i := 0; i < crises; i++ {
		c := Crises[i%len(Crises)]
		deck = append(deck, Card{
			ID:          fmt.Sprintf("crisis-%d", i),
			Name:        string(c.Type),
			Type:        TypeCrisis,
			Description: c.Description,
			CrisisType:  c.Type,
		})
	}

	Shuffle(rng, deck)
	return deck
}

// Shuffle permutes cards uniformly in place (Fisher–Yates).
func Shuffle(rng *rand.Rand, cs []Card) {
	swap := func(i, j int) { cs[i], cs[j] = cs[j], cs[i] }
	if rng == nil {
		rand.Shuffle(len(cs), swap)
		return
	}
	rng.Shuffle(len(cs), swap)
}

// startingSubTypes maps name fragments of role starting cards to sub-types.
// Checked in order; the first match wins.
var startingSubTypes = []struct {
	fragment string
	subType  SubType
}{
	{"Lovas", SubTypeLovas},
	{"szertartás", SubTypeSzertartas},
	{"Kereskedelem", SubTypeKereskedelem},
	{"Gyógyító", SubTypeGyogyitas},
	{"Tanácsadás", SubTypeDiplomacia},
	{"védelem", SubTypeVedelmi},
	{"Stratégia", SubTypeStrategia},
}

// StartingCard builds a role starting card, deriving its sub-type from the
// card name. Names that match nothing count as Harci.
func StartingCard(id, name string) Card {
	st := SubTypeHarci
	for _, m := range startingSubTypes {
		if strings.Contains(name, m.fragment) {
			st = m.subType
			break
		}
	}
	return Card{
		ID:          id,
		Name:        name,
		Type:        TypeAction,
		Description: fmt.Sprintf("Kezdő kártya (%s)", st),
		SubType:     st,
	}
}
