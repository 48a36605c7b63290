package host

import (
	"fmt"
	"reflect"
	"sort"
)

// ExtensionContainer holds the named, typed configuration objects registered
// by plugins on a project. Each name and each concrete type may be registered
// only once, so a lookup by type always yields the same instance.
type ExtensionContainer struct {
	project string
	byName  map[string]any
	byType  map[reflect.Type]string
	order   []string
}

func newExtensionContainer(project string) *ExtensionContainer {
	return &ExtensionContainer{
		project: project,
		byName:  make(map[string]any),
		byType:  make(map[reflect.Type]string),
	}
}

// Add registers ext under name. ext must be a non-nil pointer.
func (c *ExtensionContainer) Add(name string, ext any) error {
	if name == "" {
		return NewPermanentError("extension name is required", nil).
			WithCode(ErrCodeValidation).WithProject(c.project)
	}
	v := reflect.ValueOf(ext)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return NewPermanentError(fmt.Sprintf("extension %s must be a non-nil pointer, got %T", name, ext), nil).
			WithCode(ErrCodeValidation).WithProject(c.project)
	}
	if _, exists := c.byName[name]; exists {
		return NewPermanentError(fmt.Sprintf("extension %s already registered", name), nil).
			WithCode(ErrCodeDuplicate).WithProject(c.project)
	}
	t := v.Type()
	if other, exists := c.byType[t]; exists {
		return NewPermanentError(fmt.Sprintf("extension of type %s already registered as %s", t, other), nil).
			WithCode(ErrCodeDuplicate).WithProject(c.project)
	}

	c.byName[name] = ext
	c.byType[t] = name
	c.order = append(c.order, name)
	return nil
}

// ByName returns the extension registered under name.
func (c *ExtensionContainer) ByName(name string) (any, error) {
	ext, ok := c.byName[name]
	if !ok {
		return nil, &Error{
			Class:   ErrorClassPermanent,
			Code:    ErrCodeExtensionNotFound,
			Message: fmt.Sprintf("extension with name %q not found", name),
			Project: c.project,
		}
	}
	return ext, nil
}

// Names returns extension names in registration order.
func (c *ExtensionContainer) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Snapshot returns the registered extensions keyed by name. The values are
// the live instances.
func (c *ExtensionContainer) Snapshot() map[string]any {
	out := make(map[string]any, len(c.byName))
	for name, ext := range c.byName {
		out[name] = ext
	}
	return out
}

// Types returns the registered type names, sorted.
func (c *ExtensionContainer) Types() []string {
	out := make([]string, 0, len(c.byType))
	for t := range c.byType {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}

func (c *ExtensionContainer) lookup(t reflect.Type) (any, bool) {
	name, ok := c.byType[t]
	if !ok {
		return nil, false
	}
	return c.byName[name], true
}

// FindByType returns the extension of type T, or false if no plugin
// registered one. T is the pointer type that was passed to Add.
func FindByType[T any](c *ExtensionContainer) (T, bool) {
	var zero T
	ext, ok := c.lookup(reflect.TypeFor[T]())
	if !ok {
		return zero, false
	}
	return ext.(T), true
}

// ByType returns the extension of type T. A missing extension means the
// plugin owning it was never applied; the error wraps ErrExtensionNotFound.
func ByType[T any](c *ExtensionContainer) (T, error) {
	ext, ok := FindByType[T](c)
	if !ok {
		return ext, &Error{
			Class:   ErrorClassPermanent,
			Code:    ErrCodeExtensionNotFound,
			Message: fmt.Sprintf("extension of type %s not found", reflect.TypeFor[T]()),
			Project: c.project,
		}
	}
	return ext, nil
}

// Create registers a new zero-valued *T under name and returns it.
func Create[T any](c *ExtensionContainer, name string) (*T, error) {
	ext := new(T)
	if err := c.Add(name, ext); err != nil {
		return nil, err
	}
	return ext, nil
}
