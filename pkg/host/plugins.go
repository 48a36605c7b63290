package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Plugin contributes extensions, tasks and configuration to a project.
type Plugin interface {
	// ID is the identifier the plugin is applied by.
	ID() string

	// Apply configures the project. It runs at most once per project.
	Apply(ctx context.Context, p *Project) error
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc struct {
	Name string
	Fn   func(ctx context.Context, p *Project) error
}

// ID implements Plugin.
func (f PluginFunc) ID() string { return f.Name }

// Apply implements Plugin.
func (f PluginFunc) Apply(ctx context.Context, p *Project) error { return f.Fn(ctx, p) }

// PluginRegistry maps plugin ids to plugins known to the host.
type PluginRegistry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin. Ids must be unique.
func (r *PluginRegistry) Register(plugin Plugin) error {
	if plugin == nil || plugin.ID() == "" {
		return NewPermanentError("plugin id is required", nil).WithCode(ErrCodeValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[plugin.ID()]; exists {
		return NewPermanentError(fmt.Sprintf("plugin %s already registered", plugin.ID()), nil).
			WithCode(ErrCodeDuplicate)
	}
	r.plugins[plugin.ID()] = plugin
	return nil
}

// Lookup returns the plugin registered under id.
func (r *PluginRegistry) Lookup(id string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[id]
	if !ok {
		return nil, &Error{
			Class:   ErrorClassPermanent,
			Code:    ErrCodePluginNotFound,
			Message: fmt.Sprintf("plugin with id %q not found", id),
		}
	}
	return plugin, nil
}

// IDs returns the registered plugin ids, sorted.
func (r *PluginRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PluginManager applies plugins to a single project.
type PluginManager struct {
	project  *Project
	registry *PluginRegistry
	applied  map[string]bool
	order    []string
}

func newPluginManager(p *Project, registry *PluginRegistry) *PluginManager {
	return &PluginManager{
		project:  p,
		registry: registry,
		applied:  make(map[string]bool),
	}
}

// Apply applies the plugin with the given id. Applying an already applied
// plugin is a no-op. An unknown id is fatal.
func (m *PluginManager) Apply(ctx context.Context, id string) error {
	if m.applied[id] {
		return nil
	}

	plugin, err := m.registry.Lookup(id)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Project = m.project.Name
		}
		return err
	}

	// Marked before Apply so plugins applying each other do not recurse.
	m.applied[id] = true
	m.order = append(m.order, id)

	logger := m.project.Logger()
	logger.Debug().Str("plugin", id).Msg("Applying plugin")

	if err := plugin.Apply(ctx, m.project); err != nil {
		return NewPermanentError(fmt.Sprintf("failed to apply plugin %s", id), err).
			WithCode(ErrCodePluginFailed).WithProject(m.project.Name)
	}
	return nil
}

// HasPlugin reports whether id has been applied.
func (m *PluginManager) HasPlugin(id string) bool {
	return m.applied[id]
}

// Applied returns the applied plugin ids in application order.
func (m *PluginManager) Applied() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
