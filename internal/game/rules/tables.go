package rules

import (
	"fmt"

	"github.com/atilla-legacy/legacy-server-go/internal/board"
	"github.com/atilla-legacy/legacy-server-go/internal/cards"
)

// Board-wide limits and per-turn allowances.
const (
	MaxThreatsOnBoard   = 30
	OutbreakThreshold   = 3
	ActionsPerTurn      = 4
	CardsPerTurn        = 2
	StormsPerEscalation = 4
	LegacyHandSize      = 5
	BlessingDrawCount   = 2
	BlessingPurgeCount  = 2
	MinPlayers          = 2
	MaxPlayers          = 6
)

// ThreatCategory separates threats born inside the empire from raids.
type ThreatCategory string

const (
	Internal ThreatCategory = "Internal"
	External ThreatCategory = "External"
)

// ThreatInfo is what it takes to resolve a threat.
type ThreatInfo struct {
	Category ThreatCategory
	Counter  cards.SubType
	Amount   int
}

// Threats maps every threat type to its counter requirement.
var Threats = map[cards.ThreatType]ThreatInfo{
	cards.ThreatRosszTermes:     {Internal, cards.SubTypeKereskedelem, 2},
	cards.ThreatRablobanda:      {Internal, cards.SubTypeHarci, 2},
	cards.ThreatJarvany:         {Internal, cards.SubTypeGyogyitas, 3},
	cards.ThreatBelviszaly:      {Internal, cards.SubTypeDiplomacia, 4},
	cards.ThreatNomadTamadas:    {External, cards.SubTypeVedelmi, 3},
	cards.ThreatRomaiIntrika:    {External, cards.SubTypeDiplomacia, 3},
	cards.ThreatGermanFelkeles:  {External, cards.SubTypeHarci, 4},
	cards.ThreatPerzsaPortyazok: {External, cards.SubTypeLovas, 3},
}

// Requirement returns the counter sub-type and card count for a threat.
func Requirement(t cards.ThreatType) (ThreatInfo, bool) {
	info, ok := Threats[t]
	return info, ok
}

// CanResolve reports whether hand holds enough matching cards for the threat.
func CanResolve(t cards.ThreatType, hand []cards.Card) bool {
	info, ok := Threats[t]
	if !ok {
		return false
	}
	return cards.CountSubType(hand, info.Counter) >= info.Amount
}

// LegacyType names one of the four artifacts.
type LegacyType string

const (
	LegacySword   LegacyType = "sword"
	LegacySeal    LegacyType = "seal"
	LegacyBow     LegacyType = "bow"
	LegacyChalice LegacyType = "chalice"
)

// LegacyTypes lists the legacies in a fixed order.
var LegacyTypes = []LegacyType{LegacySword, LegacySeal, LegacyBow, LegacyChalice}

// LegacyLocations maps each legacy to the city where it can be claimed.
var LegacyLocations = map[LegacyType]string{
	LegacySword:   "Szombathely",
	LegacySeal:    "Kubán",
	LegacyBow:     "Dnyeszter",
	LegacyChalice: "Partiskum",
}

var legacyNames = map[LegacyType]string{
	LegacySword:   "Atilla Kardja",
	LegacySeal:    "Turulpecsét",
	LegacyBow:     "Arany Íj",
	LegacyChalice: "Táltos Kehely",
}

// LegacyName returns the display name of a legacy.
func LegacyName(l LegacyType) string {
	if name, ok := legacyNames[l]; ok {
		return name
	}
	return string(l)
}

// LegacyAt returns the legacy claimable in city, if any.
func LegacyAt(city string) (LegacyType, bool) {
	for _, l := range LegacyTypes {
		if LegacyLocations[l] == city {
			return l, true
		}
	}
	return "", false
}

// Difficulty selects deck composition and starting threats.
type Difficulty string

const (
	Beginner  Difficulty = "beginner"
	Normal    Difficulty = "normal"
	Master    Difficulty = "master"
	Legendary Difficulty = "legendary"
)

// DifficultySettings parameterize a new game.
type DifficultySettings struct {
	StormCards     int
	InitialThreats int
	CrisisCards    int
}

var difficulties = map[Difficulty]DifficultySettings{
	Beginner:  {StormCards: 2, InitialThreats: 0, CrisisCards: 1},
	Normal:    {StormCards: 3, InitialThreats: 2, CrisisCards: 1},
	Master:    {StormCards: 4, InitialThreats: 4, CrisisCards: 2},
	Legendary: {StormCards: 6, InitialThreats: 8, CrisisCards: 3},
}

// Settings returns the table entry for a difficulty.
func Settings(d Difficulty) (DifficultySettings, error) {
	s, ok := difficulties[d]
	if !ok {
		return DifficultySettings{}, fmt.Errorf("unknown difficulty %q", d)
	}
	return s, nil
}

// Role is one of the six heroes.
type Role string

const (
	RoleEllak      Role = "Ellák"
	RoleAranka     Role = "Aranka"
	RoleBajan      Role = "Baján"
	RoleReka       Role = "Réka"
	RoleDengizik   Role = "Dengizik"
	RoleOnegeszius Role = "Onegeszius"
)

// RoleInfo is the flavor and starting hand of a role. Abilities are
// narrative except where the engine checks the role explicitly.
type RoleInfo struct {
	Role      Role
	Title     string
	Ability   string
	StartHand []string
}

// Roles are assigned to seats in this order.
var Roles = []RoleInfo{
	{RoleEllak, "Atilla legidősebb fia", "Körönként egyszer ingyen mozoghat egy szomszédos városba.", []string{"Lovasroham", "Lovasroham"}},
	{RoleAranka, "A Táltos Gyógyító", "Gyógyítás kártyái dupla erővel számítanak.", []string{"Gyógyító rítus", "Gyógyító rítus"}},
	{RoleBajan, "A Bölcs Tanácsos", "Diplomácia kártyáit bármilyen fenyegetés ellen felhasználhatja.", []string{"Kereskedelem", "Kereskedelem"}},
	{RoleReka, "A Történetmesélő", "Kártyákat adhat át más játékosoknak távolról is.", []string{"Tanácsadás", "Tanácsadás"}},
	{RoleDengizik, "A Harcedzett Vezér", "Védelmi kártyái dupla erővel számítanak.", []string{"Határvédelem", "Határvédelem"}},
	{RoleOnegeszius, "A Harcos Költő", "Láthatja a pakli tetején lévő 2 kártyát.", []string{"Stratégiai terv", "Stratégiai terv"}},
}

// CanGiveRemotely reports whether the role may hand cards to players in
// other cities.
func CanGiveRemotely(r Role) bool {
	return r == RoleReka
}

// CapitalCity is where every player starts.
const CapitalCity = board.Capital
