package registry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ShayCichocki/taskforge/internal/agent"
	"github.com/ShayCichocki/taskforge/internal/bus"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

// HealthStatus reports the health check result for one instance.
type HealthStatus struct {
	AgentID string   `json:"agentId"`
	Type    string   `json:"type"`
	Status  string   `json:"status"`
	Healthy bool     `json:"healthy"`
	Reasons []string `json:"reasons,omitempty"`
}

// GetHealth evaluates every live instance against the health rules.
// An instance is unhealthy when it has accumulated more errors than the
// configured threshold, or when it reports running but has shown no
// activity for longer than twice the default execution timeout.
func (r *Registry) GetHealth() []HealthStatus {
	r.mu.RLock()
	instances := make(map[string]agentEntry, len(r.agents))
	for id, instance := range r.agents {
		if instance == nil {
			continue
		}
		instances[id] = agentEntry{instance: instance, typeName: r.typeOfLocked(id)}
	}
	threshold := r.errorThreshold
	stuckAfter := 2 * r.defaultTimeout
	r.mu.RUnlock()

	now := time.Now()
	statuses := make([]HealthStatus, 0, len(instances))
	for id, entry := range instances {
		snap := entry.instance.Snapshot()

		status := HealthStatus{AgentID: id, Type: entry.typeName, Status: string(snap.Status), Healthy: true}
		if snap.ErrorCount > threshold {
			status.Healthy = false
			status.Reasons = append(status.Reasons,
				fmt.Sprintf("error count %d exceeds threshold %d", snap.ErrorCount, threshold))
		}
		if snap.Status == models.AgentStatusRunning && now.Sub(snap.LastActivity) > stuckAfter {
			status.Healthy = false
			status.Reasons = append(status.Reasons,
				fmt.Sprintf("running with no activity for %s", now.Sub(snap.LastActivity).Round(time.Second)))
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// StartHealthMonitor runs periodic health checks until the context is
// canceled or StopHealthMonitor is called. Unhealthy instances are logged
// and published on the event bus; the monitor never terminates them.
func (r *Registry) StartHealthMonitor(ctx context.Context) {
	r.mu.Lock()
	if r.healthStop != nil {
		r.mu.Unlock()
		return
	}
	r.healthStop = make(chan struct{})
	stop := r.healthStop
	interval := r.healthInterval
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				r.checkHealth()
			}
		}
	}()
}

// StopHealthMonitor stops the periodic health checks.
func (r *Registry) StopHealthMonitor() {
	r.healthOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.healthStop != nil {
			close(r.healthStop)
		}
	})
}

// checkHealth runs one health sweep and reports unhealthy instances.
func (r *Registry) checkHealth() {
	for _, status := range r.GetHealth() {
		if status.Healthy {
			continue
		}
		log.Printf("[registry] agent %s unhealthy: %v", status.AgentID, status.Reasons)
		r.publish(bus.Event{
			Topic:     bus.TopicAgentUnhealthy,
			AgentID:   status.AgentID,
			AgentType: status.Type,
			Message:   fmt.Sprintf("unhealthy: %v", status.Reasons),
		})
	}
}

type agentEntry struct {
	instance agent.Agent
	typeName string
}

// typeOfLocked resolves an instance id to its type. Caller holds r.mu.
func (r *Registry) typeOfLocked(id string) string {
	for name, set := range r.byType {
		if _, ok := set[id]; ok {
			return name
		}
	}
	return ""
}
