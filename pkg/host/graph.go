package host

import (
	"fmt"
	"sort"
	"strings"
)

// TaskGraph is a validated, levelled view of a project's tasks. Tasks on the
// same level have no dependencies on each other.
type TaskGraph struct {
	// Levels lists task names per execution level, sorted within a level.
	Levels [][]string

	// Edges are the dependency edges of the graph.
	Edges []Edge

	levelOf map[string]int
}

// Level returns the execution level of a task, or -1 if unknown.
func (g *TaskGraph) Level(task string) int {
	level, ok := g.levelOf[task]
	if !ok {
		return -1
	}
	return level
}

// Graph validates the task dependencies and computes execution levels.
func (c *TaskContainer) Graph() (*TaskGraph, error) {
	if err := c.detectCycles(); err != nil {
		return nil, err
	}

	// Kahn's algorithm with level tracking.
	inDegree := make(map[string]int, len(c.tasks))
	dependents := make(map[string][]string, len(c.tasks))
	for _, name := range c.order {
		task := c.tasks[name]
		for _, dep := range task.dependsOn {
			if _, ok := c.tasks[dep]; !ok {
				return nil, NewPermanentError(
					fmt.Sprintf("task %s depends on non-existent task %s", name, dep), nil,
				).WithCode(ErrCodeValidation).WithProject(c.project)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	graph := &TaskGraph{
		Edges:   c.Edges(),
		levelOf: make(map[string]int, len(c.tasks)),
	}

	var current []string
	for _, name := range c.order {
		if inDegree[name] == 0 {
			current = append(current, name)
		}
	}

	processed := 0
	for len(current) > 0 {
		sort.Strings(current)
		for _, name := range current {
			graph.levelOf[name] = len(graph.Levels)
		}
		graph.Levels = append(graph.Levels, current)
		processed += len(current)

		var next []string
		for _, name := range current {
			for _, dependent := range dependents[name] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = next
	}

	if processed != len(c.tasks) {
		return nil, NewPermanentError("failed to order all tasks - possible cycle", nil).
			WithCode(ErrCodeValidation).WithProject(c.project)
	}

	return graph, nil
}

// detectCycles uses depth-first search to find circular dependencies.
func (c *TaskContainer) detectCycles() error {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(name string, path []string) []string
	visit = func(name string, path []string) []string {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		task, ok := c.tasks[name]
		if ok {
			for _, dep := range task.dependsOn {
				if !visited[dep] {
					if cycle := visit(dep, path); cycle != nil {
						return cycle
					}
				} else if onStack[dep] {
					for i, id := range path {
						if id == dep {
							return append(append([]string{}, path[i:]...), dep)
						}
					}
				}
			}
		}

		onStack[name] = false
		return nil
	}

	for _, name := range c.order {
		if visited[name] {
			continue
		}
		if cycle := visit(name, nil); cycle != nil {
			return NewPermanentError(
				fmt.Sprintf("circular task dependency detected: %s", strings.Join(cycle, " -> ")), nil,
			).WithCode(ErrCodeValidation).WithProject(c.project)
		}
	}
	return nil
}

// ToDOT renders the graph in DOT format. Edges point from a dependency to
// the task that needs it.
func (g *TaskGraph) ToDOT(name string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "digraph %q {\n", name)
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for level, tasks := range g.Levels {
		fmt.Fprintf(&sb, "  subgraph cluster_level_%d {\n", level)
		fmt.Fprintf(&sb, "    label=\"Level %d\";\n", level)
		sb.WriteString("    style=dashed;\n")
		for _, task := range tasks {
			fmt.Fprintf(&sb, "    %q;\n", task)
		}
		sb.WriteString("  }\n\n")
	}

	for _, edge := range g.Edges {
		fmt.Fprintf(&sb, "  %q -> %q;\n", edge.DependsOn, edge.Task)
	}

	sb.WriteString("}\n")
	return sb.String()
}
