package planner

import (
	"github.com/ShayCichocki/taskforge/pkg/models"
)

// dfs coloring states for cycle detection.
const (
	white = iota
	gray
	black
)

// AnalyzeDependencies builds and analyzes the dependency graph of a
// subtask set. When cycles are present, ExecutionOrder is best effort
// (unprocessed nodes are appended in declaration order) and CriticalPath
// is computed on the acyclic projection; callers must check Cycles before
// trusting the ordering.
func (p *Planner) AnalyzeDependencies(subtasks []*models.Subtask) *models.DependencyGraph {
	graph := &models.DependencyGraph{
		Nodes: make(map[string]*models.Subtask, len(subtasks)),
	}

	order := make([]string, 0, len(subtasks))
	for _, sub := range subtasks {
		graph.Nodes[sub.ID] = sub
		order = append(order, sub.ID)
	}

	// adjacency: dependency -> dependents, in declaration order
	successors := make(map[string][]string, len(subtasks))
	predecessors := make(map[string][]string, len(subtasks))
	for _, sub := range subtasks {
		for _, dep := range sub.Dependencies {
			if _, known := graph.Nodes[dep]; !known {
				continue
			}
			graph.Edges = append(graph.Edges, models.Edge{
				From: dep,
				To:   sub.ID,
				Type: models.EdgeRequires,
			})
			successors[dep] = append(successors[dep], sub.ID)
			predecessors[sub.ID] = append(predecessors[sub.ID], dep)
		}
	}

	graph.Cycles = detectCycles(order, successors)
	graph.ExecutionOrder = topologicalOrder(order, successors, predecessors)
	graph.CriticalPath = criticalPath(graph, predecessors)
	graph.Parallelizable = parallelGroups(order, predecessors, graph.Cycles)

	return graph
}

// detectCycles runs a depth-first coloring walk. A back-edge to a gray
// node yields one cycle, recorded as the node sequence from that node
// forward along the current path.
func detectCycles(order []string, successors map[string][]string) [][]string {
	color := make(map[string]int, len(order))
	var cycles [][]string
	var path []string

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		path = append(path, node)

		for _, next := range successors[node] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				for i, id := range path {
					if id == next {
						cycles = append(cycles, append([]string(nil), path[i:]...))
						break
					}
				}
			}
		}

		path = path[:len(path)-1]
		color[node] = black
	}

	for _, node := range order {
		if color[node] == white {
			visit(node)
		}
	}
	return cycles
}

// topologicalOrder runs Kahn's algorithm on in-degree. Nodes trapped in
// cycles never reach in-degree zero; they are appended in declaration
// order after the queue drains.
func topologicalOrder(order []string, successors, predecessors map[string][]string) []string {
	inDegree := make(map[string]int, len(order))
	for _, node := range order {
		inDegree[node] = len(predecessors[node])
	}

	var queue []string
	for _, node := range order {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(order))
	processed := make(map[string]bool, len(order))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		processed[node] = true

		for _, next := range successors[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	for _, node := range order {
		if !processed[node] {
			result = append(result, node)
		}
	}
	return result
}

// criticalPath finds the maximum-total-duration path through the DAG
// using the topological order, where duration is each subtask's expected
// effort. Nodes trapped in cycles are excluded from consideration.
func criticalPath(graph *models.DependencyGraph, predecessors map[string][]string) []string {
	cyclic := make(map[string]bool)
	for _, cycle := range graph.Cycles {
		for _, node := range cycle {
			cyclic[node] = true
		}
	}

	dist := make(map[string]float64, len(graph.Nodes))
	parent := make(map[string]string, len(graph.Nodes))

	var endNode string
	best := -1.0
	for _, node := range graph.ExecutionOrder {
		if cyclic[node] {
			continue
		}
		sub := graph.Nodes[node]
		dist[node] = sub.Effort.Expected
		for _, pred := range predecessors[node] {
			if cyclic[pred] {
				continue
			}
			if through := dist[pred] + sub.Effort.Expected; through > dist[node] {
				dist[node] = through
				parent[node] = pred
			}
		}
		if dist[node] > best {
			best = dist[node]
			endNode = node
		}
	}

	if endNode == "" {
		return nil
	}
	var path []string
	for node := endNode; node != ""; node = parent[node] {
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// parallelGroups buckets nodes by earliest start (dependency depth) and
// keeps buckets with more than one member. Nodes trapped in cycles have
// no well-defined depth and are skipped.
func parallelGroups(order []string, predecessors map[string][]string, cycles [][]string) [][]string {
	cyclic := make(map[string]bool)
	for _, cycle := range cycles {
		for _, node := range cycle {
			cyclic[node] = true
		}
	}

	depths := dependencyDepths(order, predecessors, cyclic)

	maxDepth := -1
	for _, d := range depths {
		if d > maxDepth {
			maxDepth = d
		}
	}

	var groups [][]string
	for d := 0; d <= maxDepth; d++ {
		var group []string
		for _, node := range order {
			if depth, ok := depths[node]; ok && depth == d {
				group = append(group, node)
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

// dependencyDepths computes each node's depth: 0 with no dependencies,
// otherwise one more than its deepest dependency.
func dependencyDepths(order []string, predecessors map[string][]string, cyclic map[string]bool) map[string]int {
	depths := make(map[string]int, len(order))

	var depthOf func(node string) int
	depthOf = func(node string) int {
		if d, ok := depths[node]; ok {
			return d
		}
		depths[node] = 0 // guard against re-entry
		d := 0
		for _, pred := range predecessors[node] {
			if cyclic[pred] {
				continue
			}
			if pd := depthOf(pred) + 1; pd > d {
				d = pd
			}
		}
		depths[node] = d
		return d
	}

	for _, node := range order {
		if !cyclic[node] {
			depthOf(node)
		}
	}
	return depths
}
