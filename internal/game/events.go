package game

import (
	"slices"
	"sync"
	"time"

	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/rules"
)

// EventType identifies an event
type EventType string

const (
	EventTypePhaseChanged   EventType = "phase_changed"
	EventTypeRoundStarted   EventType = "round_started"
	EventTypeBidDeclared    EventType = "bid_declared"
	EventTypeCardPlayed     EventType = "card_played"
	EventTypeTrickCompleted EventType = "trick_completed"
	EventTypeRoundScored    EventType = "round_scored"
	EventTypeGameOver       EventType = "game_over"
	EventTypeGameReset      EventType = "game_reset"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is published after a transition commits. Snapshot returns a copy of
// the state as of the end of that transition.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Snapshot() GameState
}

// eventMeta is shared by every event a single transition produces; the
// engine fills in the state once the transition commits.
type eventMeta struct {
	at    time.Time
	state GameState
}

type baseEvent struct {
	meta *eventMeta
}

func (b baseEvent) Timestamp() time.Time { return b.meta.at }
func (b baseEvent) Snapshot() GameState  { return b.meta.state.Clone() }

// PhaseChangedEvent is published on every phase transition
type PhaseChangedEvent struct {
	baseEvent
	From Phase
	To   Phase
}

func (e PhaseChangedEvent) Type() EventType { return EventTypePhaseChanged }

// RoundStartedEvent is published once hands are dealt
type RoundStartedEvent struct {
	baseEvent
	Round         int
	CardsPerRound int
	Trump         cards.Card
	DealerID      string
}

func (e RoundStartedEvent) Type() EventType { return EventTypeRoundStarted }

// BidDeclaredEvent is published for each accepted bid
type BidDeclaredEvent struct {
	baseEvent
	PlayerID  string
	Count     int
	Reasoning string
}

func (e BidDeclaredEvent) Type() EventType { return EventTypeBidDeclared }

// CardPlayedEvent is published for each accepted card
type CardPlayedEvent struct {
	baseEvent
	PlayerID  string
	Card      cards.Card
	Reasoning string
}

func (e CardPlayedEvent) Type() EventType { return EventTypeCardPlayed }

// TrickCompletedEvent is published when a full trick is resolved
type TrickCompletedEvent struct {
	baseEvent
	WinnerID string
	Plays    []rules.Play
}

func (e TrickCompletedEvent) Type() EventType { return EventTypeTrickCompleted }

// RoundScoredEvent is published when a round's points are added
type RoundScoredEvent struct {
	baseEvent
	History RoundHistory
}

func (e RoundScoredEvent) Type() EventType { return EventTypeRoundScored }

// GameOverEvent is published after the last round
type GameOverEvent struct {
	baseEvent
	Winner Player
}

func (e GameOverEvent) Type() EventType { return EventTypeGameOver }

// GameResetEvent is published by ResetGame
type GameResetEvent struct {
	baseEvent
}

func (e GameResetEvent) Type() EventType { return EventTypeGameReset }

// EventSubscriber can subscribe to game events. OnEvent runs on the goroutine
// that committed the transition while the engine holds its publish lock, so
// it must not call any Engine method, readers such as Snapshot and Phase
// included. Use the snapshot carried by the event, or hand the event to
// another goroutine.
type EventSubscriber interface {
	OnEvent(event Event)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event Event)
}

// SimpleEventBus is an in-memory event bus delivering synchronously
type SimpleEventBus struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if i := slices.Index(bus.subscribers, subscriber); i >= 0 {
		bus.subscribers = slices.Delete(bus.subscribers, i, i+1)
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event Event) {
	bus.mu.RLock()
	subs := slices.Clone(bus.subscribers)
	bus.mu.RUnlock()

	for _, subscriber := range subs {
		subscriber.OnEvent(event)
	}
}

// SubscriberFunc adapts a function to EventSubscriber. Subscribe and
// Unsubscribe compare subscribers by identity, so keep the pointer.
type SubscriberFunc struct {
	fn func(Event)
}

// NewSubscriberFunc wraps fn
func NewSubscriberFunc(fn func(Event)) *SubscriberFunc {
	return &SubscriberFunc{fn: fn}
}

func (s *SubscriberFunc) OnEvent(event Event) { s.fn(event) }

// ChannelSubscriber forwards events to a buffered channel. When the buffer is
// full the event is dropped rather than blocking the engine.
type ChannelSubscriber struct {
	ch      chan Event
	dropped int
	mu      sync.Mutex
}

// NewChannelSubscriber creates a subscriber with the given buffer size
func NewChannelSubscriber(buffer int) *ChannelSubscriber {
	return &ChannelSubscriber{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the channel
func (c *ChannelSubscriber) Events() <-chan Event {
	return c.ch
}

// Dropped returns how many events did not fit in the buffer
func (c *ChannelSubscriber) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *ChannelSubscriber) OnEvent(event Event) {
	select {
	case c.ch <- event:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
}
