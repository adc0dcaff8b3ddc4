// Package tenbus is the typed publish/subscribe bus the simulation engines
// use to notify collaborators of state changes. Delivery is at-least-once:
// handlers run concurrently and a panic or error in one handler never blocks
// or corrupts another subscriber.
package tenbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duskmere/tension-engine/backend/pkg/logger"
)

// Stable topic names published by the tension core.
const (
	TopicTensionLevelChanged     = "tension:level_changed"
	TopicTensionMajorChange      = "tension:major_change"
	TopicConflictTriggered       = "tension:conflict_triggered"
	TopicRevoltOccurred          = "revolt_occurred"
	TopicFactionWarDeclared      = "faction_war_declared"
	TopicFactionAllianceFormed   = "faction_alliance_formed"
	TopicFactionPeaceOpportunity = "faction_peace_opportunity"
)

// Event is a single published message.
type Event interface {
	Topic() string
	Timestamp() time.Time
	Data() interface{}
}

// EventHandler processes a published event. A returned error is logged but
// never propagated back to the publisher.
type EventHandler func(ctx context.Context, event Event) error

// BaseEvent is the concrete Event every publisher in this module constructs.
type BaseEvent struct {
	EventTopic string
	EventTime  time.Time
	EventData  interface{}
}

func (e BaseEvent) Topic() string        { return e.EventTopic }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }
func (e BaseEvent) Data() interface{}    { return e.EventData }

// Bus is the publish/subscribe surface the engines depend on.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(topic string, handler EventHandler) error
}

// InMemoryBus fans out published events to subscribed handlers, each running
// in its own goroutine so a slow or failing handler never blocks Publish.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	log      *logger.Logger
}

// NewInMemoryBus returns an empty bus. log may be nil.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{handlers: make(map[string][]EventHandler), log: log}
}

// Publish hands event to every handler subscribed to its topic. An unknown
// topic with no subscribers is a silent no-op, per the bus contract.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.Topic()]
	b.mu.RUnlock()

	for _, h := range handlers {
		go b.run(ctx, event, h)
	}
	return nil
}

func (b *InMemoryBus) run(ctx context.Context, event Event, handler EventHandler) {
	defer b.recoverPanic(ctx, event)

	if err := handler(ctx, event); err != nil {
		b.logError(ctx, event, err)
	}
}

func (b *InMemoryBus) recoverPanic(ctx context.Context, event Event) {
	if r := recover(); r != nil {
		if b.log != nil {
			b.log.WithContext(ctx).Error().
				Interface("panic", r).
				Str("topic", event.Topic()).
				Msg("event handler panic")
		}
	}
}

func (b *InMemoryBus) logError(ctx context.Context, event Event, err error) {
	if b.log != nil {
		b.log.WithContext(ctx).Error().
			Err(err).
			Str("topic", event.Topic()).
			Msg("event handler error")
	}
}

// Subscribe registers handler for topic.
func (b *InMemoryBus) Subscribe(topic string, handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("tenbus: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// NewEvent constructs a BaseEvent for topic carrying data, stamped at now.
func NewEvent(topic string, now time.Time, data interface{}) Event {
	return BaseEvent{EventTopic: topic, EventTime: now, EventData: data}
}

// TensionLevelChanged is the payload for TopicTensionLevelChanged.
type TensionLevelChanged struct {
	RegionID     string
	POIID        string
	TensionLevel float64
}

// TensionMajorChange is the payload for TopicTensionMajorChange.
type TensionMajorChange struct {
	RegionID       string
	POIID          string
	TensionLevel   float64
	ChangeMagnitude float64
}

// ConflictTriggered is the payload for TopicConflictTriggered.
type ConflictTriggered struct {
	RegionID         string
	ConflictType     string
	Severity         float64
	InvolvedFactions []string
}

// FactionRelationshipChanged is the payload shared by the faction-crossing
// topics (war declared, alliance formed, peace opportunity).
type FactionRelationshipChanged struct {
	FactionAID   string
	FactionBID   string
	TensionLevel int
	Timestamp    time.Time
}
