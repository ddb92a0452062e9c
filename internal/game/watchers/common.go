// Package watchers holds event watchers that accumulate per-game statistics.
package watchers

import (
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
)

// Keys of the standard watchers.
const (
	KeyThreatsResolved = "ThreatsResolvedWatcher"
	KeyOutbreaks       = "OutbreaksWatcher"
	KeyCrises          = "CrisesWatcher"
	KeyCardsGiven      = "CardsGivenWatcher"
	KeyRejections      = "RejectionsWatcher"
)

// ThreatsResolvedWatcher counts resolved threats by player and threat type.
type ThreatsResolvedWatcher struct {
	*rules.BaseWatcher
	byPlayer map[string]int
	byThreat map[string]int
	cards    int
}

// NewThreatsResolvedWatcher creates a new threats resolved watcher.
func NewThreatsResolvedWatcher() *ThreatsResolvedWatcher {
	w := &ThreatsResolvedWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame),
		byPlayer:    make(map[string]int),
		byThreat:    make(map[string]int),
	}
	w.SetKey(KeyThreatsResolved)
	return w
}

// Watch implements the Watcher interface.
func (w *ThreatsResolvedWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventThreatResolved {
		return
	}
	w.byPlayer[event.PlayerID]++
	w.byThreat[event.Subject]++
	w.cards += event.Amount
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *ThreatsResolvedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.byPlayer = make(map[string]int)
	w.byThreat = make(map[string]int)
	w.cards = 0
}

// GetCount returns the number of threats the player resolved.
func (w *ThreatsResolvedWatcher) GetCount(playerID string) int {
	return w.byPlayer[playerID]
}

// ByThreat returns resolutions per threat type.
func (w *ThreatsResolvedWatcher) ByThreat() map[string]int {
	return copyCounts(w.byThreat)
}

// Total returns the number of threats resolved by everyone.
func (w *ThreatsResolvedWatcher) Total() int {
	total := 0
	for _, n := range w.byPlayer {
		total += n
	}
	return total
}

// CardsSpent returns the number of cards discarded to resolve threats.
func (w *ThreatsResolvedWatcher) CardsSpent() int {
	return w.cards
}

// Copy creates a copy of this watcher.
func (w *ThreatsResolvedWatcher) Copy() rules.Watcher {
	c := NewThreatsResolvedWatcher()
	c.SetCondition(w.ConditionMet())
	c.byPlayer = copyCounts(w.byPlayer)
	c.byThreat = copyCounts(w.byThreat)
	c.cards = w.cards
	return c
}

// OutbreaksWatcher tracks where threats pile up and where outbreaks happen.
// Its condition is met once any city breaks out.
type OutbreaksWatcher struct {
	*rules.BaseWatcher
	outbreaks map[string]int
	placed    map[string]int
}

// NewOutbreaksWatcher creates a new outbreaks watcher.
func NewOutbreaksWatcher() *OutbreaksWatcher {
	w := &OutbreaksWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame),
		outbreaks:   make(map[string]int),
		placed:      make(map[string]int),
	}
	w.SetKey(KeyOutbreaks)
	return w
}

// Watch implements the Watcher interface.
func (w *OutbreaksWatcher) Watch(event rules.Event) {
	switch event.Type {
	case rules.EventThreatPlaced:
		w.placed[event.City]++
	case rules.EventOutbreak:
		w.outbreaks[event.City]++
		w.SetCondition(true)
	}
}

// Reset clears the watcher's state.
func (w *OutbreaksWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.outbreaks = make(map[string]int)
	w.placed = make(map[string]int)
}

// Outbreaks returns outbreaks per city.
func (w *OutbreaksWatcher) Outbreaks() map[string]int {
	return copyCounts(w.outbreaks)
}

// Placed returns threats placed per city, crisis effects included.
func (w *OutbreaksWatcher) Placed() map[string]int {
	return copyCounts(w.placed)
}

// Copy creates a copy of this watcher.
func (w *OutbreaksWatcher) Copy() rules.Watcher {
	c := NewOutbreaksWatcher()
	c.SetCondition(w.ConditionMet())
	c.outbreaks = copyCounts(w.outbreaks)
	c.placed = copyCounts(w.placed)
	return c
}

// CrisesWatcher counts crisis cards and storms.
type CrisesWatcher struct {
	*rules.BaseWatcher
	crises map[string]int
	storms int
}

// NewCrisesWatcher creates a new crises watcher.
func NewCrisesWatcher() *CrisesWatcher {
	w := &CrisesWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame),
		crises:      make(map[string]int),
	}
	w.SetKey(KeyCrises)
	return w
}

// Watch implements the Watcher interface.
func (w *CrisesWatcher) Watch(event rules.Event) {
	switch event.Type {
	case rules.EventCrisisDrawn:
		w.crises[event.Subject]++
		w.SetCondition(true)
	case rules.EventStormDrawn:
		w.storms++
	}
}

// Reset clears the watcher's state.
func (w *CrisesWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.crises = make(map[string]int)
	w.storms = 0
}

// Crises returns drawn crisis cards by crisis type.
func (w *CrisesWatcher) Crises() map[string]int {
	return copyCounts(w.crises)
}

// Storms returns the number of storm cards drawn.
func (w *CrisesWatcher) Storms() int {
	return w.storms
}

// Copy creates a copy of this watcher.
func (w *CrisesWatcher) Copy() rules.Watcher {
	c := NewCrisesWatcher()
	c.SetCondition(w.ConditionMet())
	c.crises = copyCounts(w.crises)
	c.storms = w.storms
	return c
}

// CardsGivenWatcher tracks cards handed over by one player.
type CardsGivenWatcher struct {
	*rules.BaseWatcher
	given []string
}

// NewCardsGivenWatcher creates a watcher for the cards playerID gives away.
func NewCardsGivenWatcher(playerID string) *CardsGivenWatcher {
	w := &CardsGivenWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopePlayer),
	}
	w.SetPlayerID(playerID)
	return w
}

// Watch implements the Watcher interface.
func (w *CardsGivenWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCardGiven || event.PlayerID != w.GetPlayerID() {
		return
	}
	w.given = append(w.given, event.Subject)
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CardsGivenWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.given = nil
}

// GetCount returns the number of cards given away.
func (w *CardsGivenWatcher) GetCount() int {
	return len(w.given)
}

// Given returns the given card ids in order.
func (w *CardsGivenWatcher) Given() []string {
	return append([]string(nil), w.given...)
}

// Copy creates a copy of this watcher.
func (w *CardsGivenWatcher) Copy() rules.Watcher {
	c := NewCardsGivenWatcher(w.GetPlayerID())
	c.SetKey(w.GetKey())
	c.SetCondition(w.ConditionMet())
	c.given = w.Given()
	return c
}

// RejectionsWatcher counts soft rejections, which should stay at zero for
// the autoplay planner.
type RejectionsWatcher struct {
	*rules.BaseWatcher
	count int
	last  string
}

// NewRejectionsWatcher creates a new rejections watcher.
func NewRejectionsWatcher() *RejectionsWatcher {
	w := &RejectionsWatcher{BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame)}
	w.SetKey(KeyRejections)
	return w
}

// Watch implements the Watcher interface.
func (w *RejectionsWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventActionRejected {
		return
	}
	w.count++
	w.last = event.Description
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *RejectionsWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.count = 0
	w.last = ""
}

// GetCount returns the number of rejected actions.
func (w *RejectionsWatcher) GetCount() int {
	return w.count
}

// Last returns the most recent rejection message.
func (w *RejectionsWatcher) Last() string {
	return w.last
}

// Copy creates a copy of this watcher.
func (w *RejectionsWatcher) Copy() rules.Watcher {
	c := NewRejectionsWatcher()
	c.SetCondition(w.ConditionMet())
	c.count = w.count
	c.last = w.last
	return c
}

// NewGameRegistry returns a registry holding the standard game-scope
// watchers.
func NewGameRegistry() *rules.WatcherRegistry {
	r := rules.NewWatcherRegistry()
	r.AddWatcher(NewThreatsResolvedWatcher())
	r.AddWatcher(NewOutbreaksWatcher())
	r.AddWatcher(NewCrisesWatcher())
	r.AddWatcher(NewRejectionsWatcher())
	return r
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
