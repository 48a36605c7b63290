package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Host is the build platform a project is configured in.
type Host struct {
	version  string
	registry *PluginRegistry
	logger   zerolog.Logger
}

// NewHost creates a host reporting version and resolving plugins from
// registry.
func NewHost(version string, registry *PluginRegistry, logger zerolog.Logger) *Host {
	if registry == nil {
		registry = NewPluginRegistry()
	}
	return &Host{
		version:  version,
		registry: registry,
		logger:   logger.With().Str("component", "host").Logger(),
	}
}

// Version returns the host platform version.
func (h *Host) Version() string {
	return h.version
}

// Registry returns the plugin registry.
func (h *Host) Registry() *PluginRegistry {
	return h.registry
}

// ProjectOptions describe a project to create.
type ProjectOptions struct {
	// Name defaults to the base name of Dir.
	Name string

	// Dir is the project root. Required.
	Dir string

	// BuildDir defaults to <Dir>/build.
	BuildDir string

	// UserHome locates the local maven repository. Defaults to the
	// current user's home directory.
	UserHome string
}

type lifecycleState int

const (
	stateConfiguring lifecycleState = iota
	stateEvaluating
	stateEvaluated
)

// AfterEvaluateFunc is a callback run once in the evaluate phase.
type AfterEvaluateFunc func(ctx context.Context, p *Project) error

// Project is the unit of configuration. It is not safe for concurrent use;
// a configuration pass runs on one goroutine.
type Project struct {
	Name     string
	Dir      string
	BuildDir string

	host       *Host
	logger     zerolog.Logger
	extensions *ExtensionContainer
	tasks      *TaskContainer
	extra      *ExtraProperties
	repos      *RepositoryHandler
	plugins    *PluginManager

	afterEvaluate []AfterEvaluateFunc
	state         lifecycleState
}

// NewProject creates a project in the configuring phase.
func (h *Host) NewProject(opts ProjectOptions) (*Project, error) {
	if opts.Dir == "" {
		return nil, NewPermanentError("project directory is required", nil).WithCode(ErrCodeValidation)
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, NewPermanentError("failed to resolve project directory", err).WithCode(ErrCodeValidation)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(dir)
	}
	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = filepath.Join(dir, "build")
	} else if !filepath.IsAbs(buildDir) {
		buildDir = filepath.Join(dir, buildDir)
	}
	home := opts.UserHome
	if home == "" {
		home, err = os.UserHomeDir()
		if err != nil {
			return nil, NewEnvironmentError("failed to resolve user home", err).WithCode(ErrCodeValidation)
		}
	}

	p := &Project{
		Name:       name,
		Dir:        dir,
		BuildDir:   filepath.Clean(buildDir),
		host:       h,
		logger:     h.logger.With().Str("project", name).Logger(),
		extensions: newExtensionContainer(name),
		tasks:      newTaskContainer(name),
		extra:      newExtraProperties(name),
		repos:      newRepositoryHandler(home),
	}
	p.plugins = newPluginManager(p, h.registry)
	return p, nil
}

// Host returns the host the project lives in.
func (p *Project) Host() *Host { return p.host }

// Logger returns the project logger.
func (p *Project) Logger() *zerolog.Logger { return &p.logger }

// Extensions returns the extension container.
func (p *Project) Extensions() *ExtensionContainer { return p.extensions }

// Tasks returns the task container.
func (p *Project) Tasks() *TaskContainer { return p.tasks }

// Extra returns the extra properties.
func (p *Project) Extra() *ExtraProperties { return p.extra }

// Repositories returns the repository handler.
func (p *Project) Repositories() *RepositoryHandler { return p.repos }

// Plugins returns the plugin manager.
func (p *Project) Plugins() *PluginManager { return p.plugins }

// Apply applies the plugin with the given id.
func (p *Project) Apply(ctx context.Context, id string) error {
	return p.plugins.Apply(ctx, id)
}

// AfterEvaluate registers fn to run once in the evaluate phase, after every
// callback registered before it. Callbacks registered while evaluating run
// after the current ones.
func (p *Project) AfterEvaluate(fn AfterEvaluateFunc) error {
	if p.state == stateEvaluated {
		return NewPermanentError("cannot register an after-evaluate callback on an evaluated project", nil).
			WithCode(ErrCodeLifecycle).WithProject(p.Name)
	}
	p.afterEvaluate = append(p.afterEvaluate, fn)
	return nil
}

// Evaluated reports whether the evaluate phase completed.
func (p *Project) Evaluated() bool {
	return p.state == stateEvaluated
}

// Evaluate ends the configuring phase and runs the after-evaluate callbacks
// exactly once, in registration order. The first failing callback or a
// cancelled context aborts the phase. Evaluate can only be called once.
func (p *Project) Evaluate(ctx context.Context) error {
	if p.state != stateConfiguring {
		return NewPermanentError("project has already been evaluated", nil).
			WithCode(ErrCodeLifecycle).WithProject(p.Name)
	}
	p.state = stateEvaluating

	for i := 0; i < len(p.afterEvaluate); i++ {
		if err := ctx.Err(); err != nil {
			p.afterEvaluate = nil
			p.state = stateEvaluated
			return err
		}
		fn := p.afterEvaluate[i]
		p.afterEvaluate[i] = nil
		if err := fn(ctx, p); err != nil {
			p.state = stateEvaluated
			return NewPermanentError(fmt.Sprintf("after-evaluate callback %d failed", i+1), err).
				WithCode(ErrCodeCallbackFailed).WithProject(p.Name)
		}
	}

	p.afterEvaluate = nil
	p.state = stateEvaluated
	p.logger.Debug().Msg("Project evaluated")
	return nil
}
