// Package policy classifies git branches with Rego policies evaluated by
// the Open Policy Agent.
//
// A branch policy is a Rego module in package projconf.branches that
// defines two boolean rules, release and development, over an input
// document of the form {"branch": "<name>"}:
//
//	package projconf.branches
//
//	import rego.v1
//
//	default release := false
//
//	release if input.branch == "master"
//
//	release if startswith(input.branch, "release/")
//
//	default development := false
//
//	development if startswith(input.branch, "feature/")
//
// BranchPolicy satisfies branch.Policy, so a compiled module can replace
// the glob pattern policy of the branch classifier:
//
//	p, err := policy.LoadBranchPolicy(ctx, "branches.rego", logger)
//	if err != nil {
//	    return err
//	}
//	classifier := branch.NewClassifier(p, logger)
//
// Without a custom module, NewPatternBranchPolicy evaluates the built-in
// module against release and development pattern lists held in an
// in-memory store.
package policy
