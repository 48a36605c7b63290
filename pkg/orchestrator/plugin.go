package orchestrator

import (
	"context"
	"errors"

	"github.com/openfroyo/projconf/pkg/config"
	"github.com/openfroyo/projconf/pkg/configurator"
	"github.com/openfroyo/projconf/pkg/host"
	"github.com/openfroyo/projconf/pkg/plugins"
	"github.com/openfroyo/projconf/pkg/telemetry"
)

// ProjectPluginID is the id of the project plugin.
const ProjectPluginID = "projconf.project"

// DefaultPluginIDs are the plugins applied after the publish step, in order.
var DefaultPluginIDs = []string{
	plugins.ModuleProjectPluginID,
	plugins.JavaArtifactPublishPluginID,
	plugins.ReleasePluginID,
	plugins.GitExpiredBranchPluginID,
	plugins.BuildMonitoringPluginID,
}

// ProjectPlugin applies the organization plugin set to a project and
// configures it.
type ProjectPlugin struct {
	// Defaults are the organization literals. Nil means
	// config.DefaultDefaults().
	Defaults *config.Defaults

	// Configurator configures the extensions. Nil means one built from
	// Defaults with no secrets.
	Configurator *configurator.Configurator

	// Telemetry receives plugin spans and events. Nil means a no-op
	// instance.
	Telemetry *telemetry.Telemetry

	// PassID tags plugin events.
	PassID string

	// PluginIDs overrides DefaultPluginIDs.
	PluginIDs []string
}

// ID implements host.Plugin.
func (pp *ProjectPlugin) ID() string { return ProjectPluginID }

// Apply checks the host version, applies the plugin-development plugin,
// declares the plugin repository, runs the publish step, applies the
// plugin list and finally configures every extension. The first failure
// aborts; plugins already applied stay applied.
func (pp *ProjectPlugin) Apply(ctx context.Context, p *host.Project) error {
	defaults := pp.Defaults
	if defaults == nil {
		defaults = config.DefaultDefaults()
	}
	tel := pp.Telemetry
	if tel == nil {
		tel = telemetry.NewNopTelemetry()
	}
	conf := pp.Configurator
	if conf == nil {
		conf = configurator.New(configurator.Options{Defaults: defaults, Telemetry: tel, PassID: pp.PassID})
	}
	ids := pp.PluginIDs
	if ids == nil {
		ids = DefaultPluginIDs
	}

	if err := CheckHostVersion(p.Host().Version(), defaults.MinHostVersion); err != nil {
		var he *host.Error
		if errors.As(err, &he) {
			he.Project = p.Name
		}
		return err
	}

	if err := pp.apply(ctx, tel, p, plugins.PluginDevelopmentPluginID); err != nil {
		return err
	}

	repo := p.Repositories().Maven(defaults.Repositories.Plugins)
	p.Logger().Debug().Str("url", repo.URL).Msg("Plugin repository declared")

	if err := conf.ConfigurePublish(ctx, p); err != nil {
		return err
	}

	for _, id := range ids {
		if err := pp.apply(ctx, tel, p, id); err != nil {
			return err
		}
	}

	return conf.Configure(ctx, p)
}

// apply applies one plugin inside its own span.
func (pp *ProjectPlugin) apply(ctx context.Context, tel *telemetry.Telemetry, p *host.Project, id string) error {
	ctx, span := tel.Tracer.StartPluginSpan(ctx, id)
	defer span.End()

	err := p.Apply(ctx, id)

	status := "success"
	level := telemetry.EventLevelInfo
	message := "plugin applied"
	if err != nil {
		status = "failure"
		level = telemetry.EventLevelError
		message = err.Error()
		span.SetAttributes(telemetry.AttrErrorCode.String(host.CodeOf(err)))
		telemetry.RecordError(span, err)
	} else {
		telemetry.RecordSuccess(span)
	}

	tel.Metrics.RecordPluginApplied(id, status)
	tel.Events.Publish(telemetry.Event{
		Type:    telemetry.EventTypePluginApplied,
		PassID:  pp.PassID,
		Subject: id,
		Message: message,
		Level:   level,
	})

	return err
}
