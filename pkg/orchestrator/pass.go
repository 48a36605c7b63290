package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openfroyo/projconf/pkg/branch"
	"github.com/openfroyo/projconf/pkg/buildscript"
	"github.com/openfroyo/projconf/pkg/config"
	"github.com/openfroyo/projconf/pkg/configurator"
	"github.com/openfroyo/projconf/pkg/host"
	"github.com/openfroyo/projconf/pkg/plugins"
	"github.com/openfroyo/projconf/pkg/policy"
	"github.com/openfroyo/projconf/pkg/telemetry"
)

// Options describe one configuration pass.
type Options struct {
	// Dir is the project directory. Required.
	Dir string

	// Name, BuildDir and UserHome are passed to the project; see
	// host.ProjectOptions.
	Name     string
	BuildDir string
	UserHome string

	// HostVersion is the version the host reports.
	HostVersion string

	// Defaults are the organization literals. Nil means
	// config.DefaultDefaults().
	Defaults *config.Defaults

	// Lookup reads secrets. Nil reads the process environment.
	Lookup config.LookupFunc

	// Script is an optional Starlark build script evaluated before the
	// evaluate phase.
	Script        string
	ScriptTimeout time.Duration

	// Policy overrides the branch policy derived from Defaults.Branches.
	Policy branch.Policy

	// Repository is an optional pre-opened handle, closed by the caller.
	Repository *branch.Repository

	// Registry overrides the builtin plugin catalog.
	Registry *host.PluginRegistry

	// PluginIDs overrides DefaultPluginIDs.
	PluginIDs []string

	// Telemetry receives logs, spans, metrics and events. Nil means a
	// no-op instance.
	Telemetry *telemetry.Telemetry
}

// Report summarizes a completed pass.
type Report struct {
	PassID      string              `json:"pass_id"`
	Project     string              `json:"project"`
	Dir         string              `json:"dir"`
	HostVersion string              `json:"host_version"`
	Branch      branch.State        `json:"branch"`
	Applied     []string            `json:"applied"`
	Steps       []string            `json:"steps"`
	Script      *buildscript.Result `json:"script,omitempty"`
	Extensions  map[string]any      `json:"extensions"`
	Properties  []string            `json:"properties"`
	Edges       []host.Edge         `json:"edges"`
	Levels      [][]string          `json:"levels"`
	Duration    time.Duration       `json:"duration"`
	TraceID     string              `json:"trace_id,omitempty"`
	Events      []telemetry.Event   `json:"events,omitempty"`

	// Graph is the validated task graph.
	Graph *host.TaskGraph `json:"-"`
}

// Run performs one configuration pass: it creates the project, applies the
// project plugin, evaluates the build script, runs the evaluate phase and
// validates the task graph. Every failure aborts the pass.
func Run(ctx context.Context, opts Options) (report *Report, err error) {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.NewNopTelemetry()
	}
	defaults := opts.Defaults
	if defaults == nil {
		defaults = config.DefaultDefaults()
	}

	passID := uuid.New().String()
	timer := telemetry.NewTimer()
	logger := tel.Logger.NewComponentLogger("orchestrator").WithPassID(passID)

	ctx = tel.WithContext(ctx)
	ctx = logger.WithContext(ctx)
	ctx, span := tel.Tracer.StartPassSpan(ctx, passID, opts.Name)
	defer span.End()

	tel.Metrics.RecordPassStarted()
	tel.Events.Publish(telemetry.Event{Type: telemetry.EventTypePassStarted, PassID: passID, Subject: opts.Dir})

	defer func() {
		status := "success"
		eventType := telemetry.EventTypePassCompleted
		level := telemetry.EventLevelInfo
		message := "pass completed"
		if err != nil {
			status = "failure"
			eventType = telemetry.EventTypePassFailed
			level = telemetry.EventLevelError
			message = err.Error()
			tel.Metrics.RecordError(host.CodeOf(err))
			span.SetAttributes(telemetry.AttrErrorCode.String(host.CodeOf(err)))
			telemetry.RecordError(span, err)
			logger.WithError(err).Error("Configuration pass failed")
		} else {
			telemetry.RecordSuccess(span)
			logger.Infof("Configuration pass completed in %s", timer.Duration())
		}
		tel.Metrics.RecordPassCompleted(status, timer.Duration())
		tel.Events.Publish(telemetry.Event{Type: eventType, PassID: passID, Subject: opts.Dir, Message: message, Level: level})
		if report != nil {
			report.Events = tel.Events.EventsForPass(passID)
		}
	}()

	if err := defaults.Validate(); err != nil {
		return nil, host.NewPermanentError("invalid defaults", err).WithCode(host.ErrCodeValidation)
	}

	registry := opts.Registry
	if registry == nil {
		if registry, err = plugins.NewRegistry(); err != nil {
			return nil, err
		}
	}
	zlog := logger.Zerolog()
	h := host.NewHost(opts.HostVersion, registry, zlog)
	project, err := h.NewProject(host.ProjectOptions{
		Name:     opts.Name,
		Dir:      opts.Dir,
		BuildDir: opts.BuildDir,
		UserHome: opts.UserHome,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.AttrProject.String(project.Name))

	pol, err := ResolvePolicy(ctx, opts.Policy, defaults, zlog)
	if err != nil {
		return nil, err
	}

	conf := configurator.New(configurator.Options{
		Defaults:   defaults,
		Secrets:    config.SecretsFromEnvironment(opts.Lookup),
		Classifier: branch.NewClassifier(pol, zlog),
		Repository: opts.Repository,
		Telemetry:  tel,
		PassID:     passID,
	})
	pp := &ProjectPlugin{
		Defaults:     defaults,
		Configurator: conf,
		Telemetry:    tel,
		PassID:       passID,
		PluginIDs:    opts.PluginIDs,
	}
	if err := pp.Apply(ctx, project); err != nil {
		return nil, err
	}

	report = &Report{
		PassID:      passID,
		Project:     project.Name,
		Dir:         project.Dir,
		HostVersion: opts.HostVersion,
	}

	if opts.Script != "" {
		op := tel.StartOperation(ctx, "buildscript.evaluate")
		report.Script, err = buildscript.NewEvaluator(opts.ScriptTimeout, zlog).EvaluateFile(op.Ctx, project, opts.Script)
		op.End(err)
		if err != nil {
			return nil, err
		}
	}

	if err := project.Evaluate(ctx); err != nil {
		return nil, err
	}

	graph, err := project.Tasks().Graph()
	if err != nil {
		return nil, err
	}

	report.Branch, _ = conf.State()
	report.Applied = project.Plugins().Applied()
	report.Steps = conf.Executed()
	report.Extensions = project.Extensions().Snapshot()
	report.Properties = project.Extra().Names()
	report.Edges = graph.Edges
	report.Levels = graph.Levels
	report.Graph = graph
	report.Duration = timer.Duration()
	report.TraceID = telemetry.TraceID(ctx)

	span.SetAttributes(
		telemetry.AttrBranch.String(report.Branch.Branch),
		telemetry.AttrRelease.Bool(report.Branch.Release),
	)
	return report, nil
}

// ResolvePolicy picks the branch policy of a pass: an explicit policy, a
// Rego module named by the defaults, or the default patterns.
func ResolvePolicy(ctx context.Context, explicit branch.Policy, defaults *config.Defaults, logger zerolog.Logger) (branch.Policy, error) {
	if explicit != nil {
		return explicit, nil
	}
	if defaults.Branches.Policy != "" {
		p, err := policy.LoadBranchPolicy(ctx, defaults.Branches.Policy, logger)
		if err != nil {
			return nil, host.NewPermanentError("failed to load branch policy", err).WithCode(host.ErrCodeValidation)
		}
		return p, nil
	}
	p, err := branch.NewPatternPolicy(defaults.Branches.Release, defaults.Branches.Development)
	if err != nil {
		return nil, host.NewPermanentError("invalid branch patterns", err).WithCode(host.ErrCodeValidation)
	}
	return p, nil
}
