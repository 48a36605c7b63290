// Package orchestrator runs configuration passes.
//
// ProjectPlugin is the entry point applied to a project. It refuses hosts
// older than the configured minimum version, applies the plugin-development
// plugin, declares the plugin repository, pre-configures publishing, applies
// the organization plugins in order and hands over to the configurator.
//
// Run wraps a complete pass around it:
//
//	report, err := orchestrator.Run(ctx, orchestrator.Options{
//	    Dir:         ".",
//	    HostVersion: "6.7",
//	    Script:      "build.star",
//	})
//
// A pass is all-or-nothing. The first failure is returned as is; nothing is
// retried or rolled back.
package orchestrator
