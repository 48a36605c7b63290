package host

import (
	"fmt"
	"sort"
	"strings"
)

// ExtraProperties is the free-form property bag that build scripts and
// plugins use to exchange values.
type ExtraProperties struct {
	project string
	values  map[string]any
}

func newExtraProperties(project string) *ExtraProperties {
	return &ExtraProperties{project: project, values: make(map[string]any)}
}

// Set stores value under name, replacing any previous value.
func (p *ExtraProperties) Set(name string, value any) {
	p.values[name] = value
}

// Has reports whether name has been set.
func (p *ExtraProperties) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Get returns the value stored under name.
func (p *ExtraProperties) Get(name string) (any, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, &Error{
			Class:   ErrorClassPermanent,
			Code:    ErrCodePropertyNotFound,
			Message: fmt.Sprintf("extra property %q not found", name),
			Project: p.project,
		}
	}
	return v, nil
}

// NonBlankString returns the string stored under name. Missing, non-string
// and blank values are all errors.
func (p *ExtraProperties) NonBlankString(name string) (string, error) {
	v, err := p.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", NewPermanentError(fmt.Sprintf("property %s is not a string (%T)", name, v), nil).
			WithCode(ErrCodeValidation).WithProject(p.project)
	}
	if strings.TrimSpace(s) == "" {
		return "", NewPermanentError(fmt.Sprintf("property %s is empty", name), nil).
			WithCode(ErrCodePrecondition).WithProject(p.project)
	}
	return s, nil
}

// Names returns the property names, sorted.
func (p *ExtraProperties) Names() []string {
	out := make([]string, 0, len(p.values))
	for name := range p.values {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
