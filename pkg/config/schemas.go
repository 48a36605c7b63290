package config

import (
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
)

// Schema names.
const (
	SchemaDefaults = "defaults"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry(ctx *cue.Context) *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}
	if err := sr.RegisterSchema(SchemaDefaults, "#Defaults", builtinDefaultsSchema); err != nil {
		panic(err)
	}
	return sr
}

// RegisterSchema compiles schema and registers the definition named def
// under name.
func (sr *SchemaRegistry) RegisterSchema(name, def, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	defVal := val.LookupPath(cue.ParsePath(def))
	if !defVal.Exists() {
		return fmt.Errorf("schema %s does not define %s", name, def)
	}

	sr.schemas[name] = defVal
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Validate unifies val with the named schema and returns the unified value.
func (sr *SchemaRegistry) Validate(name string, val cue.Value) (cue.Value, error) {
	schema, ok := sr.GetSchema(name)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", name)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, err
	}
	return unified, nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinDefaultsSchema = `
#URL: string & =~"^(https?|file)://"

#Defaults: {
	minHostVersion?: string & =~"^v?[0-9]+(\\.[0-9]+){0,2}$"

	repositories?: plugins?: #URL

	publish?: {
		groupId?:             string & =~"^[a-zA-Z0-9_.-]+$"
		artifactIdProperty?:  string & !=""
		automatedPublishing?: bool
	}

	mail?: {
		host?: string & !=""
		port?: int & >0 & <65536
	}

	git?: {
		username?: string & !=""
		email?:    string & =~"^[^@]+@[^@]+$"
	}

	release?: {
		tasks?: [...string]
		changelogRequired?:             bool
		addPullRequestLinkToChangelog?: bool
	}

	wrapper?: distributionUrl?: #URL

	architectureTest?: include?: [...string]

	java?: {
		repositories?: [...#URL]
		snapshotsRepositories?: [...#URL]
		snapshotsMavenLocal?: bool
	}

	checkDependencies?: {
		exclusionsRulesSources?: [...string]
		excludedConfigurations?: [...string]
	}

	majorVersionChecker?: includeGroupIdPrefixes?: [...string]

	idea?: {
		downloadSources?:         bool
		downloadJavadoc?:         bool
		inheritOutputDirs?:       bool
		delegateBuildRunActions?: bool
		excludeDirs?: [...string]
	}

	branches?: {
		release?: [...string]
		development?: [...string]
		policy?: string
	}
}
`
