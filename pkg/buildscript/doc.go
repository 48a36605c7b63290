// Package buildscript evaluates per-project Starlark build scripts.
//
// A build script runs after the project plugin has been applied and before
// the evaluate phase. It is how a project supplies values the
// organization defaults cannot know, most importantly its plugin id:
//
//	pluginId = "payments-" + project.name
//
//	apply("idea")
//
// apply is a no-op for plugins the project already has. Public globals
// become extra properties of the project. Scripts are bounded
// by a timeout and cancelled with their context.
package buildscript
