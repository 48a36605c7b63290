// Package configurator assigns organization defaults and environment
// secrets to the extensions registered by the applied plugins.
//
// Steps run in a fixed order: git-expired-branches, release, wrapper,
// architecture-test, java, check-dependencies, major-version-checker and
// idea. The publish step runs separately through ConfigurePublish, before
// the publish plugin is applied. Every step looks its extension up by type,
// so a missing plugin fails the pass instead of configuring a zero value.
//
// The release step classifies the checked-out branch and adds the
// build -> checkChangelog edge on every branch that is not eligible for a
// release. The classification is reused by the major version checker.
package configurator
