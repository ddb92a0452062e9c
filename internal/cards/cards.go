package cards

import "fmt"

// Type is the coarse category of a card.
type Type string

const (
	TypeAction   Type = "Action"
	TypeThreat   Type = "Threat"
	TypeStorm    Type = "Storm"
	TypeBlessing Type = "Blessing"
	TypeCrisis   Type = "Crisis"
)

// SubType is the currency an Action card pays threats with.
type SubType string

const (
	SubTypeHarci        SubType = "Harci"
	SubTypeVedelmi      SubType = "Védelmi"
	SubTypeKereskedelem SubType = "Kereskedelem"
	SubTypeGyogyitas    SubType = "Gyógyítás"
	SubTypeDiplomacia   SubType = "Diplomácia"
	SubTypeLovas        SubType = "Lovas"
	SubTypeSzertartas   SubType = "Szertartás"
	SubTypeStrategia    SubType = "Stratégia"
)

// ActionSubTypes lists sub-types in deck-building order.
var ActionSubTypes = []SubType{
	SubTypeHarci, SubTypeVedelmi, SubTypeKereskedelem, SubTypeGyogyitas,
	SubTypeDiplomacia, SubTypeLovas, SubTypeSzertartas, SubTypeStrategia,
}

// ThreatType identifies what a threat is; the rules table maps it to a counter.
type ThreatType string

const (
	ThreatRosszTermes     ThreatType = "Rossz termés"
	ThreatRablobanda      ThreatType = "Rablóbanda"
	ThreatJarvany         ThreatType = "Járvány"
	ThreatBelviszaly      ThreatType = "Belviszály"
	ThreatNomadTamadas    ThreatType = "Nomád támadás"
	ThreatRomaiIntrika    ThreatType = "Római intrika"
	ThreatGermanFelkeles  ThreatType = "Germán felkelés"
	ThreatPerzsaPortyazok ThreatType = "Perzsa portyázók"
)

// ThreatTypes lists threat types in deck-building order.
var ThreatTypes = []ThreatType{
	ThreatRosszTermes, ThreatRablobanda, ThreatJarvany, ThreatBelviszaly,
	ThreatNomadTamadas, ThreatRomaiIntrika, ThreatGermanFelkeles, ThreatPerzsaPortyazok,
}

// CrisisType discriminates Crisis cards.
type CrisisType string

const (
	CrisisNagyEhinseg         CrisisType = "Nagy éhínség"
	CrisisFeketeHalal         CrisisType = "Fekete halál"
	CrisisBirodalomFelbomlasa CrisisType = "Birodalom felbomlása"
)

// BlessingType discriminates Blessing cards.
type BlessingType string

const (
	BlessingNimrodAldasa     BlessingType = "Nimród áldása"
	BlessingTurulLatomasa    BlessingType = "Turul látomása"
	BlessingUstengriKegyelme BlessingType = "Üstengri kegyelme"
	BlessingOsokTanacsa      BlessingType = "Ősök tanácsa"
	BlessingTaltosGyogyitas  BlessingType = "Táltos gyógyítás"
)

// Crisis describes a crisis card template.
type Crisis struct {
	Type        CrisisType
	Description string
}

// Crises are the crisis templates, cycled when building the threat deck.
var Crises = []Crisis{
	{CrisisNagyEhinseg, "2 tartományban azonnal megjelenik egy Rossz termés."},
	{CrisisFeketeHalal, "Húzz 3 további Fenyegetést azonnal."},
	{CrisisBirodalomFelbomlasa, "Minden tartományban +1 Fenyegetés."},
}

// Blessing describes a blessing card template.
type Blessing struct {
	Type        BlessingType
	Description string
}

// Blessings are the blessing templates; the action deck holds one of each.
var Blessings = []Blessing{
	{BlessingNimrodAldasa, "Eltávolíthatsz 2 Fenyegetést azonnal."},
	{BlessingTurulLatomasa, "Nézd meg a következő 5 Fenyegetés kártyát, 2-t tegyél a pakli aljára."},
	{BlessingUstengriKegyelme, "Minden játékos húz 2 kártyát."},
	{BlessingOsokTanacsa, "1 elveszett tartomány visszaszerzése ingyen."},
	{BlessingTaltosGyogyitas, "Minden Járvány eltávolítása a tábláról."},
}

// Card is a single card. Exactly one of the kind-specific fields is set,
// matching Type; Storm cards carry none.
type Card struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Type         Type         `json:"type" yaml:"type"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	SubType      SubType      `json:"subType,omitempty" yaml:"subType,omitempty"`
	TargetCity   string       `json:"targetCity,omitempty" yaml:"targetCity,omitempty"`
	ThreatType   ThreatType   `json:"threatType,omitempty" yaml:"threatType,omitempty"`
	CrisisType   CrisisType   `json:"crisisType,omitempty" yaml:"crisisType,omitempty"`
	BlessingType BlessingType `json:"blessingType,omitempty" yaml:"blessingType,omitempty"`
}

// Validate checks that the populated fields match the card type.
func (c Card) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("card has no id")
	}
	action := c.SubType != ""
	threat := c.TargetCity != "" || c.ThreatType != ""
	crisis := c.CrisisType != ""
	blessing := c.BlessingType != ""

	var want bool
	switch c.Type {
	case TypeAction:
		want = action && !threat && !crisis && !blessing
	case TypeThreat:
		want = c.TargetCity != "" && c.ThreatType != "" && !action && !crisis && !blessing
	case TypeCrisis:
		want = crisis && !action && !threat && !blessing
	case TypeBlessing:
		want = blessing && !action && !threat && !crisis
	case TypeStorm:
		want = !action && !threat && !crisis && !blessing
	default:
		return fmt.Errorf("card %s: unknown type %q", c.ID, c.Type)
	}
	if !want {
		return fmt.Errorf("card %s: fields do not match type %s", c.ID, c.Type)
	}
	return nil
}

// IDs returns the ids of the given cards in order.
func IDs(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

// CountSubType counts the cards with the given sub-type.
func CountSubType(cs []Card, st SubType) int {
	n := 0
	for _, c := range cs {
		if c.SubType == st {
			n++
		}
	}
	return n
}
