package goap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// Catalog is the on-disk action and goal definition format.
type Catalog struct {
	Actions []catalogAction `yaml:"actions"`
	Goals   []catalogGoal   `yaml:"goals"`
}

type catalogAction struct {
	ID            string         `yaml:"id"`
	Cost          float64        `yaml:"cost"`
	Preconditions map[string]any `yaml:"preconditions"`
	Effects       map[string]any `yaml:"effects"`
}

type catalogGoal struct {
	ID         string         `yaml:"id"`
	Conditions map[string]any `yaml:"conditions"`
	Priority   string         `yaml:"priority"`
}

// LoadCatalog reads an action/goal catalog from a YAML file and registers
// its contents with the planner.
func (p *Planner) LoadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	for _, a := range catalog.Actions {
		if a.ID == "" {
			return fmt.Errorf("catalog action without id")
		}
		cost := a.Cost
		if cost <= 0 {
			cost = 1
		}
		p.RegisterAction(&models.GOAPAction{
			ID:            a.ID,
			Cost:          cost,
			Preconditions: normalizeState(a.Preconditions),
			Effects:       normalizeState(a.Effects),
		})
	}
	for _, g := range catalog.Goals {
		if g.ID == "" {
			return fmt.Errorf("catalog goal without id")
		}
		p.RegisterGoal(&models.GOAPGoal{
			ID:         g.ID,
			Conditions: normalizeState(g.Conditions),
			Priority:   models.Priority(g.Priority),
		})
	}
	return nil
}

// LoadState reads a world state from a YAML file.
func LoadState(path string) (models.WorldState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return normalizeState(raw), nil
}

// normalizeState converts decoded YAML values to the planner's canonical
// forms: bools, float64 numbers, and string lists.
func normalizeState(raw map[string]any) models.WorldState {
	state := make(models.WorldState, len(raw))
	for key, value := range raw {
		state[key] = normalizeValue(value)
	}
	return state
}

func normalizeValue(value any) any {
	switch t := value.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case []any:
		list := make([]string, 0, len(t))
		for _, item := range t {
			list = append(list, fmt.Sprintf("%v", item))
		}
		return list
	default:
		return value
	}
}
