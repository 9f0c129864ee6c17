// Package bus provides a typed publish/subscribe bus for cross-component
// notifications. Each subscriber runs in its own goroutine per event, so a
// broken or slow handler cannot block the others.
package bus

import (
	"log"
	"sync"
	"time"
)

// Topic identifies an event stream.
type Topic string

const (
	// TopicAgentSpawned fires when the registry creates an instance.
	TopicAgentSpawned Topic = "agent.spawned"
	// TopicAgentTerminated fires when an instance is removed from tracking.
	TopicAgentTerminated Topic = "agent.terminated"
	// TopicAgentUnhealthy fires when a health check flags an instance.
	TopicAgentUnhealthy Topic = "agent.unhealthy"
	// TopicPlanCreated fires when a full execution plan is produced.
	TopicPlanCreated Topic = "plan.created"
)

// Event is a single notification.
type Event struct {
	// Topic is the stream this event belongs to.
	Topic Topic
	// AgentID identifies the agent involved, if any.
	AgentID string
	// AgentType is the agent's registered type, if any.
	AgentType string
	// Message is a human-readable summary.
	Message string
	// Payload carries topic-specific data.
	Payload any
	// Timestamp is when the event was published.
	Timestamp time.Time
}

// Handler processes one event.
type Handler func(Event)

// Bus fans events out to topic subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]Handler
	wg   sync.WaitGroup
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]Handler)}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic Topic, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

// Publish delivers an event to every subscriber of its topic.
// Each handler runs in its own goroutine; panics are captured and logged
// so one failing subscriber never affects the rest.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[event.Topic]))
	copy(handlers, b.subs[event.Topic])
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[bus] handler for %s panicked: %v", event.Topic, r)
				}
			}()
			h(event)
		}()
	}
}

// Wait blocks until all in-flight handler goroutines finish.
// Intended for shutdown and tests.
func (b *Bus) Wait() {
	b.wg.Wait()
}
