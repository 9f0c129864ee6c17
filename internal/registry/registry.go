// Package registry manages agent types and live agent instances.
// It stores a factory per registered type, enforces per-type instance caps,
// and runs periodic health checks over all instances.
package registry

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/taskforge/internal/agent"
	"github.com/ShayCichocki/taskforge/internal/bus"
)

// Common registry errors.
var (
	// ErrUnknownType indicates the agent type was never registered.
	ErrUnknownType = errors.New("unknown agent type")
	// ErrTypeCapReached indicates the per-type instance cap is exhausted.
	ErrTypeCapReached = errors.New("instance cap reached for agent type")
	// ErrAgentNotFound indicates the requested instance does not exist.
	ErrAgentNotFound = errors.New("agent not found")
)

// Factory builds one agent instance of a registered type.
// The id is assigned by the registry; config carries caller parameters.
type Factory func(id string, config map[string]any) (agent.Agent, error)

// registration stores everything known about one agent type.
type registration struct {
	factory      Factory
	capabilities []string
}

// SpawnSpec describes one instance for SpawnMultiple.
type SpawnSpec struct {
	// Type is the registered agent type.
	Type string
	// ID is the instance id; empty means generate one.
	ID string
	// Config is passed through to the factory.
	Config map[string]any
}

// Stats summarizes the registry's current population.
type Stats struct {
	// RegisteredTypes lists the known agent type names.
	RegisteredTypes []string
	// TotalAgents is the number of live instances.
	TotalAgents int
	// ByType maps type name to live instance count.
	ByType map[string]int
}

// Config contains registry construction options.
type Config struct {
	// MaxInstancesPerType caps live instances of each type. Zero means 10.
	MaxInstancesPerType int
	// DefaultTimeout is the execution timeout used for stuck detection.
	// Zero means agent.DefaultTimeout.
	DefaultTimeout time.Duration
	// ErrorThreshold marks an instance unhealthy above this error count.
	// Zero means 5.
	ErrorThreshold int
	// HealthInterval is the health monitor period. Zero means 30s.
	HealthInterval time.Duration
	// Events receives spawn/terminate/health notifications. Optional.
	Events *bus.Bus
}

// Registry tracks agent types and their live instances.
// The registry is the only writer to its tracking maps; each agent
// instance owns its own state exclusively.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*registration
	agents map[string]agent.Agent
	byType map[string]map[string]agent.Agent

	maxPerType     int
	defaultTimeout time.Duration
	errorThreshold int
	healthInterval time.Duration
	events         *bus.Bus

	healthStop chan struct{}
	healthOnce sync.Once
}

// New creates a registry with the given configuration.
func New(cfg Config) *Registry {
	maxPerType := cfg.MaxInstancesPerType
	if maxPerType <= 0 {
		maxPerType = 10
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = agent.DefaultTimeout
	}
	threshold := cfg.ErrorThreshold
	if threshold <= 0 {
		threshold = 5
	}
	interval := cfg.HealthInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Registry{
		types:          make(map[string]*registration),
		agents:         make(map[string]agent.Agent),
		byType:         make(map[string]map[string]agent.Agent),
		maxPerType:     maxPerType,
		defaultTimeout: timeout,
		errorThreshold: threshold,
		healthInterval: interval,
		events:         cfg.Events,
	}
}

// Register stores a factory for an agent type.
// Re-registering an existing type overwrites it and logs a warning.
func (r *Registry) Register(typeName string, factory Factory, capabilities ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[typeName]; exists {
		log.Printf("[registry] warning: overwriting registration for type %s", typeName)
	}
	r.types[typeName] = &registration{
		factory:      factory,
		capabilities: append([]string(nil), capabilities...),
	}
}

// Capabilities returns the capability set registered for a type.
func (r *Registry) Capabilities(typeName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.types[typeName]
	if !ok {
		return nil
	}
	return append([]string(nil), reg.capabilities...)
}

// Spawn creates and tracks one instance of a registered type.
func (r *Registry) Spawn(typeName string, config map[string]any) (agent.Agent, error) {
	return r.spawnWithID(typeName, "", config)
}

// spawnWithID creates an instance with the given id, generating one if empty.
func (r *Registry) spawnWithID(typeName, id string, config map[string]any) (agent.Agent, error) {
	r.mu.Lock()
	reg, ok := r.types[typeName]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	if len(r.byType[typeName]) >= r.maxPerType {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s (cap %d)", ErrTypeCapReached, typeName, r.maxPerType)
	}
	// Reserve a slot under the lock so concurrent spawns cannot exceed the cap.
	if id == "" {
		id = uuid.New().String()
	}
	if r.byType[typeName] == nil {
		r.byType[typeName] = make(map[string]agent.Agent)
	}
	r.byType[typeName][id] = nil
	r.mu.Unlock()

	instance, err := reg.factory(id, config)
	if err != nil {
		r.mu.Lock()
		delete(r.byType[typeName], id)
		r.mu.Unlock()
		return nil, fmt.Errorf("factory for %s: %w", typeName, err)
	}

	r.mu.Lock()
	r.agents[id] = instance
	r.byType[typeName][id] = instance
	r.mu.Unlock()

	r.publish(bus.Event{Topic: bus.TopicAgentSpawned, AgentID: id, AgentType: typeName,
		Message: fmt.Sprintf("spawned %s agent %s", typeName, id)})

	return instance, nil
}

// SpawnMultiple spawns instances concurrently and tolerates partial failure:
// every successful instance is returned, failures are logged and dropped.
func (r *Registry) SpawnMultiple(specs []SpawnSpec) []agent.Agent {
	results := make([]agent.Agent, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec SpawnSpec) {
			defer wg.Done()
			instance, err := r.spawnWithID(spec.Type, spec.ID, spec.Config)
			if err != nil {
				log.Printf("[registry] spawn %s failed: %v", spec.Type, err)
				return
			}
			results[i] = instance
		}(i, spec)
	}
	wg.Wait()

	spawned := make([]agent.Agent, 0, len(specs))
	for _, instance := range results {
		if instance != nil {
			spawned = append(spawned, instance)
		}
	}
	return spawned
}

// Get returns a live instance by id.
func (r *Registry) Get(id string) (agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.agents[id]
	if !ok || instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return instance, nil
}

// TerminateAgent terminates one instance and removes it from tracking.
// Tracking removal never depends on a clean shutdown: terminate-hook
// errors are logged and swallowed.
func (r *Registry) TerminateAgent(id string) error {
	r.mu.Lock()
	instance, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	delete(r.agents, id)
	var typeName string
	for name, set := range r.byType {
		if _, member := set[id]; member {
			typeName = name
			delete(set, id)
			break
		}
	}
	r.mu.Unlock()

	if instance != nil {
		if err := instance.Terminate(); err != nil {
			log.Printf("[registry] terminate hook for %s failed: %v", id, err)
		}
	}

	r.publish(bus.Event{Topic: bus.TopicAgentTerminated, AgentID: id, AgentType: typeName,
		Message: fmt.Sprintf("terminated agent %s", id)})

	return nil
}

// TerminateByType terminates every live instance of a type.
// Returns the number of instances terminated.
func (r *Registry) TerminateByType(typeName string) int {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byType[typeName]))
	for id := range r.byType[typeName] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	count := 0
	for _, id := range ids {
		if err := r.TerminateAgent(id); err == nil {
			count++
		}
	}
	return count
}

// Unregister terminates all live instances of a type, then removes the
// registration itself.
func (r *Registry) Unregister(typeName string) error {
	r.mu.RLock()
	_, ok := r.types[typeName]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	r.TerminateByType(typeName)

	r.mu.Lock()
	delete(r.types, typeName)
	delete(r.byType, typeName)
	r.mu.Unlock()

	return nil
}

// GetStats returns a summary of the registry's population.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{ByType: make(map[string]int)}
	for name := range r.types {
		stats.RegisteredTypes = append(stats.RegisteredTypes, name)
	}
	for name, set := range r.byType {
		live := 0
		for _, instance := range set {
			if instance != nil {
				live++
			}
		}
		if live > 0 {
			stats.ByType[name] = live
		}
		stats.TotalAgents += live
	}
	return stats
}

// publish sends an event when a bus is configured.
func (r *Registry) publish(event bus.Event) {
	if r.events != nil {
		r.events.Publish(event)
	}
}
