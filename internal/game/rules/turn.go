package rules

import "fmt"

// Phase is the coarse turn phase recorded on the game state.
type Phase string

const (
	PhaseAction    Phase = "action"
	PhaseThreat    Phase = "threat"
	PhaseReplenish Phase = "replenish"
)

// Step is one stage of the end-of-turn transition.
type Step int

const (
	StepReplenish Step = iota
	StepThreatDraw
	StepFestival
	StepLossCheck
	StepPassiveReduction
	StepAdvance
)

var stepNames = map[Step]string{
	StepReplenish:        "REPLENISH",
	StepThreatDraw:       "THREAT_DRAW",
	StepFestival:         "FESTIVAL",
	StepLossCheck:        "LOSS_CHECK",
	StepPassiveReduction: "PASSIVE_REDUCTION",
	StepAdvance:          "ADVANCE",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// Phase returns the turn phase a step belongs to.
func (s Step) Phase() Phase {
	switch s {
	case StepReplenish:
		return PhaseReplenish
	case StepThreatDraw, StepFestival, StepLossCheck, StepPassiveReduction:
		return PhaseThreat
	default:
		return PhaseAction
	}
}

// EndTurnSequence is the fixed order in which the end-of-turn steps run.
var EndTurnSequence = []Step{
	StepReplenish,
	StepThreatDraw,
	StepFestival,
	StepLossCheck,
	StepPassiveReduction,
	StepAdvance,
}

// ThreatDrawCount is how many threat cards an end of turn reveals for the
// given storm level.
func ThreatDrawCount(storms int) int {
	if storms < 0 {
		storms = 0
	}
	return 1 + storms/StormsPerEscalation
}

// NextPlayerIndex advances the active seat cyclically.
func NextPlayerIndex(current, players int) int {
	if players <= 0 {
		return 0
	}
	return (current + 1) % players
}

// IsRoundEnd reports whether the seat is the last one in turn order.
func IsRoundEnd(current, players int) bool {
	return current == players-1
}
