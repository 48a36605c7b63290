package host

import (
	"fmt"
	"slices"
)

// Task is a named unit of work in a project's task graph.
type Task struct {
	// Name is unique within the project.
	Name string

	// Type identifies the kind of task (for example "wrapper" or "default").
	Type string

	// Group and Description are informational.
	Group       string
	Description string

	// Inputs carries string-valued task configuration.
	Inputs map[string]string

	dependsOn []string
}

// DependsOn returns the names of the tasks this task depends on, in the
// order the edges were added.
func (t *Task) DependsOn() []string {
	out := make([]string, len(t.dependsOn))
	copy(out, t.dependsOn)
	return out
}

// SetInput sets a task input.
func (t *Task) SetInput(key, value string) {
	if t.Inputs == nil {
		t.Inputs = make(map[string]string)
	}
	t.Inputs[key] = value
}

// TaskTypeDefault is the type of tasks registered without an explicit type.
const TaskTypeDefault = "default"

// TaskContainer owns the tasks of a project. Edges can be added but never
// removed.
type TaskContainer struct {
	project string
	tasks   map[string]*Task
	order   []string
}

func newTaskContainer(project string) *TaskContainer {
	return &TaskContainer{
		project: project,
		tasks:   make(map[string]*Task),
	}
}

// Register creates a new task. It fails if a task with the same name exists.
func (c *TaskContainer) Register(name, taskType string) (*Task, error) {
	if name == "" {
		return nil, NewPermanentError("task name is required", nil).
			WithCode(ErrCodeValidation).WithProject(c.project)
	}
	if _, exists := c.tasks[name]; exists {
		return nil, NewPermanentError(fmt.Sprintf("task %s already exists", name), nil).
			WithCode(ErrCodeDuplicate).WithProject(c.project)
	}
	if taskType == "" {
		taskType = TaskTypeDefault
	}
	task := &Task{Name: name, Type: taskType}
	c.tasks[name] = task
	c.order = append(c.order, name)
	return task, nil
}

// MaybeCreate returns the task called name, creating it if needed. An
// existing task of a different type is an error.
func (c *TaskContainer) MaybeCreate(name, taskType string) (*Task, error) {
	if taskType == "" {
		taskType = TaskTypeDefault
	}
	if task, exists := c.tasks[name]; exists {
		if task.Type != taskType {
			return nil, NewPermanentError(
				fmt.Sprintf("task %s already exists with type %s, requested %s", name, task.Type, taskType), nil,
			).WithCode(ErrCodeDuplicate).WithProject(c.project)
		}
		return task, nil
	}
	return c.Register(name, taskType)
}

// ByName returns the task called name.
func (c *TaskContainer) ByName(name string) (*Task, error) {
	task, ok := c.tasks[name]
	if !ok {
		return nil, &Error{
			Class:   ErrorClassPermanent,
			Code:    ErrCodeTaskNotFound,
			Message: fmt.Sprintf("task with name %q not found", name),
			Project: c.project,
		}
	}
	return task, nil
}

// Find returns the task called name, if present.
func (c *TaskContainer) Find(name string) (*Task, bool) {
	task, ok := c.tasks[name]
	return task, ok
}

// Names returns task names in creation order.
func (c *TaskContainer) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// DependsOn adds an edge making task depend on dependency. Both tasks must
// exist. Adding an existing edge is a no-op.
func (c *TaskContainer) DependsOn(task, dependency string) error {
	t, err := c.ByName(task)
	if err != nil {
		return err
	}
	if _, err := c.ByName(dependency); err != nil {
		return err
	}
	if task == dependency {
		return NewPermanentError(fmt.Sprintf("task %s cannot depend on itself", task), nil).
			WithCode(ErrCodeValidation).WithProject(c.project)
	}
	if slices.Contains(t.dependsOn, dependency) {
		return nil
	}
	t.dependsOn = append(t.dependsOn, dependency)
	return nil
}

// Edges returns every dependency edge as (task, dependency) pairs, in task
// creation order.
func (c *TaskContainer) Edges() []Edge {
	var edges []Edge
	for _, name := range c.order {
		for _, dep := range c.tasks[name].dependsOn {
			edges = append(edges, Edge{Task: name, DependsOn: dep})
		}
	}
	return edges
}

// Edge is a "Task depends on DependsOn" relation.
type Edge struct {
	Task      string `json:"task" yaml:"task"`
	DependsOn string `json:"depends_on" yaml:"depends_on"`
}
