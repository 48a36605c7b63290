package policy

// BranchesPackage is the Rego package a branch policy module must declare.
const BranchesPackage = "projconf.branches"

// DefaultBranchModule classifies branches against the pattern lists stored
// under data.projconf.patterns. Patterns use glob syntax with '/' as the
// separator.
const DefaultBranchModule = `package projconf.branches

import rego.v1

default release := false

default development := false

release if {
	some pattern in data.projconf.patterns.release
	glob.match(pattern, ["/"], input.branch)
}

development if {
	some pattern in data.projconf.patterns.development
	glob.match(pattern, ["/"], input.branch)
}
`

// patternData builds the store document consumed by DefaultBranchModule.
func patternData(release, development []string) map[string]interface{} {
	return map[string]interface{}{
		"projconf": map[string]interface{}{
			"patterns": map[string]interface{}{
				"release":     toInterfaces(release),
				"development": toInterfaces(development),
			},
		},
	}
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
