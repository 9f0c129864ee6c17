package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayCichocki/taskforge/internal/agent"
	"github.com/ShayCichocki/taskforge/internal/bus"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

// coreFactory builds real execution cores with a trivial handler.
func coreFactory(typeName string) Factory {
	return func(id string, config map[string]any) (agent.Agent, error) {
		return agent.NewCore(agent.CoreConfig{
			ID:   id,
			Type: typeName,
			Handler: func(ctx context.Context, task *models.Task) (any, error) {
				return "ok", nil
			},
		}), nil
	}
}

func TestSpawnTracksInstance(t *testing.T) {
	r := New(Config{})
	r.Register("builder", coreFactory("builder"), "code", "test")

	instance, err := r.Spawn("builder", nil)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	snap := instance.Snapshot()
	if snap.ID == "" {
		t.Error("expected a generated instance id")
	}
	if snap.Type != "builder" {
		t.Errorf("expected type builder, got %s", snap.Type)
	}

	got, err := r.Get(snap.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != instance {
		t.Error("Get returned a different instance")
	}
}

func TestSpawnUnregisteredType(t *testing.T) {
	r := New(Config{})

	if _, err := r.Spawn("ghost", nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestSpawnRespectsCap(t *testing.T) {
	r := New(Config{MaxInstancesPerType: 2})
	r.Register("builder", coreFactory("builder"))

	for i := 0; i < 2; i++ {
		if _, err := r.Spawn("builder", nil); err != nil {
			t.Fatalf("spawn %d failed: %v", i, err)
		}
	}
	if _, err := r.Spawn("builder", nil); !errors.Is(err, ErrTypeCapReached) {
		t.Errorf("expected ErrTypeCapReached, got %v", err)
	}
}

func TestSpawnFactoryErrorReleasesSlot(t *testing.T) {
	r := New(Config{MaxInstancesPerType: 1})
	boom := errors.New("boom")
	fail := true
	r.Register("flaky", func(id string, config map[string]any) (agent.Agent, error) {
		if fail {
			return nil, boom
		}
		f := coreFactory("flaky")
		return f(id, config)
	})

	if _, err := r.Spawn("flaky", nil); !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}

	// The failed spawn must not consume the only slot.
	fail = false
	if _, err := r.Spawn("flaky", nil); err != nil {
		t.Fatalf("spawn after factory failure: %v", err)
	}
}

func TestSpawnMultiplePartialFailure(t *testing.T) {
	r := New(Config{})
	r.Register("builder", coreFactory("builder"))
	r.Register("tester", coreFactory("tester"))

	spawned := r.SpawnMultiple([]SpawnSpec{
		{Type: "builder"},
		{Type: "ghost"},
		{Type: "tester"},
	})
	if len(spawned) != 2 {
		t.Fatalf("expected 2 spawned agents, got %d", len(spawned))
	}

	stats := r.GetStats()
	if stats.TotalAgents != 2 {
		t.Errorf("expected 2 tracked agents, got %d", stats.TotalAgents)
	}
}

func TestTerminateAgentRemovesDespiteHookError(t *testing.T) {
	r := New(Config{})
	r.Register("builder", func(id string, config map[string]any) (agent.Agent, error) {
		return agent.NewCore(agent.CoreConfig{
			ID:   id,
			Type: "builder",
			Handler: func(ctx context.Context, task *models.Task) (any, error) {
				return nil, nil
			},
			Cleanup: func() error { return errors.New("cleanup failed") },
		}), nil
	})

	instance, err := r.Spawn("builder", nil)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	id := instance.Snapshot().ID

	if err := r.TerminateAgent(id); err != nil {
		t.Fatalf("TerminateAgent failed: %v", err)
	}
	if _, err := r.Get(id); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected agent removed from tracking, got %v", err)
	}
	if err := r.TerminateAgent(id); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound on double terminate, got %v", err)
	}
}

func TestTerminateByType(t *testing.T) {
	r := New(Config{})
	r.Register("builder", coreFactory("builder"))
	r.Register("tester", coreFactory("tester"))

	r.Spawn("builder", nil)
	r.Spawn("builder", nil)
	r.Spawn("tester", nil)

	if count := r.TerminateByType("builder"); count != 2 {
		t.Errorf("expected 2 terminated, got %d", count)
	}

	stats := r.GetStats()
	if stats.TotalAgents != 1 {
		t.Errorf("expected 1 remaining agent, got %d", stats.TotalAgents)
	}
	if stats.ByType["builder"] != 0 {
		t.Errorf("expected no builders, got %d", stats.ByType["builder"])
	}
}

func TestUnregisterTerminatesInstances(t *testing.T) {
	r := New(Config{})
	r.Register("builder", coreFactory("builder"))
	instance, _ := r.Spawn("builder", nil)

	if err := r.Unregister("builder"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	if instance.Snapshot().Status != models.AgentStatusTerminated {
		t.Error("expected live instance terminated on unregister")
	}
	if _, err := r.Spawn("builder", nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType after unregister, got %v", err)
	}
	if err := r.Unregister("builder"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType on double unregister, got %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	r := New(Config{})
	r.Register("builder", coreFactory("builder"), "code", "test")

	caps := r.Capabilities("builder")
	if len(caps) != 2 || caps[0] != "code" || caps[1] != "test" {
		t.Errorf("unexpected capabilities: %v", caps)
	}
	if caps := r.Capabilities("ghost"); caps != nil {
		t.Errorf("expected nil capabilities for unknown type, got %v", caps)
	}
}

// stubAgent reports a fixed state snapshot for health rule tests.
type stubAgent struct {
	state models.AgentState
}

func (s *stubAgent) Execute(ctx context.Context, task *models.Task) *models.AgentResult {
	return &models.AgentResult{TaskID: task.ID, Success: true}
}
func (s *stubAgent) Pause() error                { return nil }
func (s *stubAgent) Resume() error               { return nil }
func (s *stubAgent) Terminate() error            { return nil }
func (s *stubAgent) Snapshot() models.AgentState { return s.state }

func stubFactory(state models.AgentState) Factory {
	return func(id string, config map[string]any) (agent.Agent, error) {
		state.ID = id
		return &stubAgent{state: state}, nil
	}
}

func TestGetHealthRules(t *testing.T) {
	r := New(Config{DefaultTimeout: time.Second, ErrorThreshold: 5})

	r.Register("healthy", stubFactory(models.AgentState{
		Status: models.AgentStatusIdle, LastActivity: time.Now(),
	}))
	r.Register("erroring", stubFactory(models.AgentState{
		Status: models.AgentStatusIdle, LastActivity: time.Now(), ErrorCount: 6,
	}))
	r.Register("stuck", stubFactory(models.AgentState{
		Status: models.AgentStatusRunning, LastActivity: time.Now().Add(-time.Minute),
	}))

	r.Spawn("healthy", nil)
	r.Spawn("erroring", nil)
	r.Spawn("stuck", nil)

	unhealthy := map[string]bool{}
	for _, status := range r.GetHealth() {
		if !status.Healthy {
			unhealthy[status.Type] = true
		}
	}
	if unhealthy["healthy"] {
		t.Error("idle low-error agent flagged unhealthy")
	}
	if !unhealthy["erroring"] {
		t.Error("agent over error threshold not flagged")
	}
	if !unhealthy["stuck"] {
		t.Error("stuck running agent not flagged")
	}
}

func TestHealthMonitorPublishesEvents(t *testing.T) {
	events := bus.New()
	var flagged atomic.Int32
	events.Subscribe(bus.TopicAgentUnhealthy, func(bus.Event) {
		flagged.Add(1)
	})

	r := New(Config{
		DefaultTimeout: time.Millisecond,
		HealthInterval: 10 * time.Millisecond,
		Events:         events,
	})
	r.Register("stuck", stubFactory(models.AgentState{
		Status: models.AgentStatusRunning, LastActivity: time.Now().Add(-time.Minute),
	}))
	r.Spawn("stuck", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartHealthMonitor(ctx)
	defer r.StopHealthMonitor()

	deadline := time.Now().Add(time.Second)
	for flagged.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	events.Wait()
	if flagged.Load() == 0 {
		t.Fatal("health monitor never reported the stuck agent")
	}
}

func TestSpawnPublishesEvents(t *testing.T) {
	events := bus.New()
	var spawns, terminations atomic.Int32
	events.Subscribe(bus.TopicAgentSpawned, func(bus.Event) { spawns.Add(1) })
	events.Subscribe(bus.TopicAgentTerminated, func(bus.Event) { terminations.Add(1) })

	r := New(Config{Events: events})
	r.Register("builder", coreFactory("builder"))
	instance, _ := r.Spawn("builder", nil)
	r.TerminateAgent(instance.Snapshot().ID)

	events.Wait()
	if spawns.Load() != 1 {
		t.Errorf("expected 1 spawn event, got %d", spawns.Load())
	}
	if terminations.Load() != 1 {
		t.Errorf("expected 1 termination event, got %d", terminations.Load())
	}
}
