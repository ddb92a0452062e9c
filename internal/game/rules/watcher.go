package rules

import (
	"sync"
)

// WatcherScope defines the scope of a watcher's tracking.
type WatcherScope int

const (
	// WatcherScopeGame tracks events for the entire game.
	WatcherScopeGame WatcherScope = iota
	// WatcherScopePlayer tracks events for a single seat.
	WatcherScopePlayer
	// WatcherScopeCity tracks events for a single city.
	WatcherScopeCity
)

// String returns the string representation of the watcher scope.
func (ws WatcherScope) String() string {
	switch ws {
	case WatcherScopeGame:
		return "GAME"
	case WatcherScopePlayer:
		return "PLAYER"
	case WatcherScopeCity:
		return "CITY"
	default:
		return "UNKNOWN"
	}
}

// Watcher observes game events and accumulates statistics or conditions.
type Watcher interface {
	// Watch is called for every published event; watchers filter internally.
	Watch(event Event)

	// Reset clears the watcher's accumulated state.
	Reset()

	// ConditionMet returns true if the condition this watcher tracks has been met.
	ConditionMet() bool

	// GetScope returns the scope of this watcher.
	GetScope() WatcherScope

	// GetKey returns a unique key for this watcher instance.
	GetKey() string

	// Copy creates a deep copy of this watcher.
	Copy() Watcher
}

// BaseWatcher provides the bookkeeping shared by all watchers.
type BaseWatcher struct {
	scope     WatcherScope
	playerID  string
	city      string
	condition bool
	key       string
}

// NewBaseWatcher creates a new base watcher with the specified scope.
func NewBaseWatcher(scope WatcherScope) *BaseWatcher {
	return &BaseWatcher{scope: scope}
}

// GetScope returns the watcher's scope.
func (bw *BaseWatcher) GetScope() WatcherScope {
	return bw.scope
}

// SetPlayerID sets the watched seat (for PLAYER scope watchers).
func (bw *BaseWatcher) SetPlayerID(id string) {
	bw.playerID = id
}

// GetPlayerID returns the watched seat.
func (bw *BaseWatcher) GetPlayerID() string {
	return bw.playerID
}

// SetCity sets the watched city (for CITY scope watchers).
func (bw *BaseWatcher) SetCity(name string) {
	bw.city = name
}

// GetCity returns the watched city.
func (bw *BaseWatcher) GetCity() string {
	return bw.city
}

// ConditionMet returns whether the condition has been met.
func (bw *BaseWatcher) ConditionMet() bool {
	return bw.condition
}

// SetCondition sets the condition flag.
func (bw *BaseWatcher) SetCondition(condition bool) {
	bw.condition = condition
}

// Reset clears the condition.
func (bw *BaseWatcher) Reset() {
	bw.condition = false
}

// GetKey returns the unique key for this watcher.
func (bw *BaseWatcher) GetKey() string {
	return bw.key
}

// SetKey sets the unique key for this watcher.
func (bw *BaseWatcher) SetKey(key string) {
	bw.key = key
}

// WatcherRegistry manages a set of watchers fed from one event bus.
type WatcherRegistry struct {
	mu       sync.RWMutex
	watchers map[string]Watcher
	byScope  map[WatcherScope][]Watcher
}

// NewWatcherRegistry creates a new watcher registry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{
		watchers: make(map[string]Watcher),
		byScope:  make(map[WatcherScope][]Watcher),
	}
}

// AddWatcher adds a watcher to the registry. A watcher without a key is
// keyed by its scope and scoped id.
func (wr *WatcherRegistry) AddWatcher(watcher Watcher) {
	if watcher == nil {
		return
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	key := watcher.GetKey()
	if key == "" {
		key = generateKey(watcher)
		if setter, ok := watcher.(interface{ SetKey(string) }); ok {
			setter.SetKey(key)
		}
	}

	if old, ok := wr.watchers[key]; ok {
		wr.dropFromScope(old, key)
	}
	wr.watchers[key] = watcher
	scope := watcher.GetScope()
	wr.byScope[scope] = append(wr.byScope[scope], watcher)
}

// RemoveWatcher removes a watcher from the registry.
func (wr *WatcherRegistry) RemoveWatcher(key string) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	watcher, ok := wr.watchers[key]
	if !ok {
		return
	}
	delete(wr.watchers, key)
	wr.dropFromScope(watcher, key)
}

func (wr *WatcherRegistry) dropFromScope(watcher Watcher, key string) {
	scope := watcher.GetScope()
	watchers := wr.byScope[scope]
	for i, w := range watchers {
		if w.GetKey() == key {
			wr.byScope[scope] = append(watchers[:i:i], watchers[i+1:]...)
			return
		}
	}
}

// GetWatcher retrieves a watcher by key.
func (wr *WatcherRegistry) GetWatcher(key string) Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return wr.watchers[key]
}

// GetWatchersByScope returns all watchers for a given scope.
func (wr *WatcherRegistry) GetWatchersByScope(scope WatcherScope) []Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	watchers := wr.byScope[scope]
	result := make([]Watcher, len(watchers))
	copy(result, watchers)
	return result
}

// ResetWatchers resets all watchers.
func (wr *WatcherRegistry) ResetWatchers() {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	for _, watcher := range wr.watchers {
		watcher.Reset()
	}
}

// NotifyWatchers notifies all watchers of an event. Watchers see one event
// at a time even when several games publish concurrently.
func (wr *WatcherRegistry) NotifyWatchers(event Event) {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	for _, watcher := range wr.watchers {
		watcher.Watch(event)
	}
}

// Attach subscribes the registry to bus and returns the subscription handle.
func (wr *WatcherRegistry) Attach(bus *EventBus) int {
	return bus.Subscribe(wr.NotifyWatchers)
}

func generateKey(watcher Watcher) string {
	scope := watcher.GetScope()
	switch scope {
	case WatcherScopePlayer:
		if getter, ok := watcher.(interface{ GetPlayerID() string }); ok && getter.GetPlayerID() != "" {
			return getter.GetPlayerID() + "_" + scope.String()
		}
	case WatcherScopeCity:
		if getter, ok := watcher.(interface{ GetCity() string }); ok && getter.GetCity() != "" {
			return getter.GetCity() + "_" + scope.String()
		}
	}
	return scope.String()
}
