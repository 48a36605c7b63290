// Package host models the build platform that projconf configures.
//
// A Host owns a PluginRegistry and creates Projects. A Project carries an
// ExtensionContainer (typed configuration objects registered by plugins), a
// TaskContainer (named tasks and their dependency edges), ExtraProperties,
// declared repositories and the set of applied plugins.
//
// Configuration happens in two phases. In the configuring phase plugins are
// applied and extensions mutated. Evaluate then runs every callback
// registered with AfterEvaluate exactly once, in registration order, so a
// value set late by a build script can still be read by a plugin:
//
//	p, _ := h.NewProject(host.ProjectOptions{Dir: dir})
//	_ = p.Apply(ctx, "release")
//	_ = p.AfterEvaluate(func(ctx context.Context, p *host.Project) error {
//	    id, err := p.Extra().NonBlankString("pluginId")
//	    ...
//	})
//	err := p.Evaluate(ctx)
//
// Lookups that fail return *Error values; use errors.Is with the package
// sentinels (ErrExtensionNotFound, ErrTaskNotFound, ErrPluginNotFound) to
// classify them.
package host
