// Package config provides the organization defaults and environment secrets
// consumed by a configuration pass.
//
// # Overview
//
// Defaults are an explicit struct rather than compiled-in constants so they
// can be substituted in tests and overridden per installation. The built-in
// values come from DefaultDefaults; a defaults file may override any subset.
//
// # Features
//
//   - YAML defaults files, strict about unknown keys
//   - CUE defaults files, checked against the built-in #Defaults schema
//   - Struct-tag validation with go-playground/validator
//   - Error reporting with file locations and field paths
//   - Secrets read from the environment through an injectable lookup
//
// # Components
//
// Loader: Reads a defaults file and overlays it on the built-in defaults.
//
// SchemaRegistry: Manages CUE schemas for validation.
//
// Secrets: Credentials for mail, git, Bitbucket and Nexus. Blank values are
// passed through unchanged.
//
// # Usage Example
//
//	loader := config.NewLoader()
//	defaults, err := loader.Load("projconf.cue")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	secrets := config.SecretsFromEnvironment(nil)
//
// # Defaults File Format
//
//	mail: {
//	    host: "smtp.example.com"
//	    port: 587
//	}
//	majorVersionChecker: includeGroupIdPrefixes: ["com.example"]
//	branches: release: ["main", "release/*"]
package config
