package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a game event.
type EventType string

const (
	// Player actions
	EventPlayerMoved    EventType = "PLAYER_MOVED"
	EventThreatResolved EventType = "THREAT_RESOLVED"
	EventBlessingPlayed EventType = "BLESSING_PLAYED"
	EventCardGiven      EventType = "CARD_GIVEN"
	EventLegacyClaimed  EventType = "LEGACY_CLAIMED"
	EventActionRejected EventType = "ACTION_REJECTED"

	// End-of-turn sequence
	EventCardsDrawn     EventType = "CARDS_DRAWN"
	EventStormDrawn     EventType = "STORM_DRAWN"
	EventCrisisDrawn    EventType = "CRISIS_DRAWN"
	EventThreatPlaced   EventType = "THREAT_PLACED"
	EventOutbreak       EventType = "OUTBREAK"
	EventFestival       EventType = "FESTIVAL"
	EventThreatsReduced EventType = "THREATS_REDUCED"
	EventTurnEnded      EventType = "TURN_ENDED"

	// Game outcome
	EventGameWon  EventType = "GAME_WON"
	EventGameLost EventType = "GAME_LOST"
	EventLoaded   EventType = "GAME_LOADED"
)

// IsTerminal reports whether the event ends the game.
func (et EventType) IsTerminal() bool {
	return et == EventGameWon || et == EventGameLost
}

// Event is a state change other subsystems may react to. Events are
// published after the state transition that produced them is complete.
type Event struct {
	Type        EventType
	PlayerID    string // acting or affected player, if any
	City        string
	Subject     string // card id, threat type, legacy or crisis name
	Amount      int
	Turn        int
	Description string
	Timestamp   time.Time
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
// Listeners run on the publishing goroutine and must not call back into the
// engine that published the event.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		listener.Callback(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, playerID, city, subject string) Event {
	return Event{
		Type:      eventType,
		PlayerID:  playerID,
		City:      city,
		Subject:   subject,
		Timestamp: time.Now(),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, playerID, city, subject string, amount int) Event {
	evt := NewEvent(eventType, playerID, city, subject)
	evt.Amount = amount
	return evt
}
