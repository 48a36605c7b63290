package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage"
	"github.com/open-policy-agent/opa/storage/inmem"
	"github.com/rs/zerolog"
)

// Rule names queried in BranchesPackage.
const (
	RuleRelease     = "release"
	RuleDevelopment = "development"
)

// BranchPolicy evaluates a compiled Rego module to classify branch names.
type BranchPolicy struct {
	name        string
	release     rego.PreparedEvalQuery
	development rego.PreparedEvalQuery
	logger      zerolog.Logger
}

// branchInput is the input document of a branch query.
type branchInput struct {
	Branch string `json:"branch"`
}

// NewBranchPolicy compiles module, which must declare package
// projconf.branches, and prepares the release and development queries.
func NewBranchPolicy(ctx context.Context, name, module string, logger zerolog.Logger) (*BranchPolicy, error) {
	return newBranchPolicy(ctx, name, module, nil, logger)
}

// NewPatternBranchPolicy evaluates the built-in module against the given
// glob patterns.
func NewPatternBranchPolicy(ctx context.Context, release, development []string, logger zerolog.Logger) (*BranchPolicy, error) {
	store := inmem.NewFromObject(patternData(release, development))
	return newBranchPolicy(ctx, "builtin.rego", DefaultBranchModule, store, logger)
}

func newBranchPolicy(ctx context.Context, name, module string, store storage.Store, logger zerolog.Logger) (*BranchPolicy, error) {
	parsed, err := ast.ParseModule(name, module)
	if err != nil {
		return nil, fmt.Errorf("failed to parse branch policy %s: %w", name, err)
	}
	if got := parsed.Package.Path.String(); got != "data."+BranchesPackage {
		return nil, fmt.Errorf("branch policy %s: package %s, expected %s", name, got, BranchesPackage)
	}

	p := &BranchPolicy{
		name:   name,
		logger: logger.With().Str("component", "branch-policy").Str("policy", name).Logger(),
	}

	if p.release, err = prepare(ctx, name, module, store, RuleRelease); err != nil {
		return nil, err
	}
	if p.development, err = prepare(ctx, name, module, store, RuleDevelopment); err != nil {
		return nil, err
	}

	p.logger.Debug().Msg("Branch policy compiled")
	return p, nil
}

func prepare(ctx context.Context, name, module string, store storage.Store, rule string) (rego.PreparedEvalQuery, error) {
	opts := []func(*rego.Rego){
		rego.Module(name, module),
		rego.Query(fmt.Sprintf("data.%s.%s", BranchesPackage, rule)),
	}
	if store != nil {
		opts = append(opts, rego.Store(store))
	}

	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("failed to prepare %s query of %s: %w", rule, name, err)
	}
	return query, nil
}

// Name returns the module name the policy was compiled from.
func (p *BranchPolicy) Name() string {
	return p.name
}

// IsRelease reports whether the release rule holds for branch.
func (p *BranchPolicy) IsRelease(ctx context.Context, branch string) (bool, error) {
	return p.eval(ctx, p.release, RuleRelease, branch)
}

// IsDevelopment reports whether the development rule holds for branch.
func (p *BranchPolicy) IsDevelopment(ctx context.Context, branch string) (bool, error) {
	return p.eval(ctx, p.development, RuleDevelopment, branch)
}

// eval runs a prepared rule query. An undefined rule evaluates to false; a
// non-boolean result is an error.
func (p *BranchPolicy) eval(ctx context.Context, query rego.PreparedEvalQuery, rule, branch string) (bool, error) {
	results, err := query.Eval(ctx, rego.EvalInput(branchInput{Branch: branch}))
	if err != nil {
		return false, fmt.Errorf("branch policy %s: %s evaluation failed: %w", p.name, rule, err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		p.logger.Debug().Str("rule", rule).Str("branch", branch).Msg("Rule undefined, treating as false")
		return false, nil
	}

	value, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("branch policy %s: %s must be a boolean, got %T", p.name, rule, results[0].Expressions[0].Value)
	}

	p.logger.Debug().Str("rule", rule).Str("branch", branch).Bool("result", value).Msg("Rule evaluated")
	return value, nil
}
