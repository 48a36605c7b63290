package buildscript

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/openfroyo/projconf/pkg/host"
)

// DefaultTimeout bounds a build script when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Evaluator runs project build scripts.
type Evaluator struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// Result describes what a build script changed on the project.
type Result struct {
	// Properties are the extra properties set by the script, sorted.
	Properties []string `json:"properties"`

	// Applied are the plugin ids the script applied, in order.
	Applied []string `json:"applied,omitempty"`

	// Duration is the wall time of the evaluation.
	Duration time.Duration `json:"duration"`
}

// NewEvaluator creates an evaluator. A zero timeout selects DefaultTimeout.
func NewEvaluator(timeout time.Duration, logger zerolog.Logger) *Evaluator {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{
		timeout: timeout,
		logger:  logger.With().Str("component", "buildscript").Logger(),
	}
}

// EvaluateFile reads and evaluates the script at path.
func (e *Evaluator) EvaluateFile(ctx context.Context, project *host.Project, path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, host.NewPermanentError("failed to read build script", err).
			WithCode(host.ErrCodeValidation).WithProject(project.Name)
	}
	return e.Evaluate(ctx, project, path, src)
}

// Evaluate executes src against project. Every public global the script
// defines becomes an extra property of the project, so
//
//	pluginId = "payments-plugin"
//
// sets the property pluginId. Names starting with '_' and functions are
// not exported. The script sees a read-only project struct and may apply
// plugins with apply(id).
func (e *Evaluator) Evaluate(ctx context.Context, project *host.Project, filename string, src []byte) (*Result, error) {
	start := time.Now()

	evalCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := &Result{}
	thread := &starlark.Thread{
		Name: "projconf:" + project.Name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Info().Str("project", project.Name).Msg(msg)
		},
	}
	stop := context.AfterFunc(evalCtx, func() {
		thread.Cancel(evalCtx.Err().Error())
	})
	defer stop()

	predeclared := starlark.StringDict{
		"struct":     starlark.NewBuiltin("struct", starlarkstruct.Make),
		"project":    projectStruct(project),
		"apply":      starlark.NewBuiltin("apply", applyBuiltin(evalCtx, project, result)),
		"has_plugin": starlark.NewBuiltin("has_plugin", hasPluginBuiltin(project)),
	}

	globals, err := starlark.ExecFile(thread, filename, src, predeclared)
	if err != nil {
		if ctxErr := evalCtx.Err(); ctxErr != nil {
			return nil, host.NewPermanentError(fmt.Sprintf("build script %s cancelled after %v", filename, time.Since(start).Round(time.Millisecond)), ctxErr).
				WithCode(host.ErrCodeValidation).WithProject(project.Name)
		}
		return nil, host.NewPermanentError(fmt.Sprintf("build script %s failed", filename), err).
			WithCode(host.ErrCodeValidation).WithProject(project.Name)
	}

	for name, val := range globals {
		if name == "" || name[0] == '_' {
			continue
		}
		if _, ok := val.(starlark.Callable); ok {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			return nil, host.NewPermanentError(fmt.Sprintf("build script property %s", name), err).
				WithCode(host.ErrCodeValidation).WithProject(project.Name)
		}
		project.Extra().Set(name, goVal)
		result.Properties = append(result.Properties, name)
	}
	sort.Strings(result.Properties)
	result.Duration = time.Since(start)

	e.logger.Debug().
		Str("project", project.Name).
		Strs("properties", result.Properties).
		Strs("applied", result.Applied).
		Dur("duration", result.Duration).
		Msg("Build script evaluated")

	return result, nil
}

func projectStruct(p *host.Project) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlark.String("project"), starlark.StringDict{
		"name":         starlark.String(p.Name),
		"dir":          starlark.String(p.Dir),
		"build_dir":    starlark.String(p.BuildDir),
		"host_version": starlark.String(p.Host().Version()),
	})
}

type builtinFunc = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

// applyBuiltin implements apply(id).
func applyBuiltin(ctx context.Context, p *host.Project, result *Result) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var id string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "id", &id); err != nil {
			return nil, err
		}
		if err := p.Apply(ctx, id); err != nil {
			return nil, err
		}
		result.Applied = append(result.Applied, id)
		return starlark.None, nil
	}
}

// hasPluginBuiltin implements has_plugin(id).
func hasPluginBuiltin(p *host.Project) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var id string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "id", &id); err != nil {
			return nil, err
		}
		return starlark.Bool(p.Plugins().HasPlugin(id)), nil
	}
}
