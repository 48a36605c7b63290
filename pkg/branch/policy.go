package branch

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"
)

// Policy decides what kind of branch a branch name denotes.
type Policy interface {
	// IsRelease reports whether releases may be cut from branch.
	IsRelease(ctx context.Context, branch string) (bool, error)

	// IsDevelopment reports whether branch is a development branch.
	IsDevelopment(ctx context.Context, branch string) (bool, error)
}

// PatternPolicy classifies branches by glob patterns. A pattern without
// wildcards matches the exact name; '*' does not cross '/'.
type PatternPolicy struct {
	release     []glob.Glob
	development []glob.Glob
}

// NewPatternPolicy compiles the release and development patterns.
func NewPatternPolicy(release, development []string) (*PatternPolicy, error) {
	rel, err := compileAll(release)
	if err != nil {
		return nil, fmt.Errorf("invalid release branch pattern: %w", err)
	}
	dev, err := compileAll(development)
	if err != nil {
		return nil, fmt.Errorf("invalid development branch pattern: %w", err)
	}
	return &PatternPolicy{release: rel, development: dev}, nil
}

// DefaultPolicy returns the organization default: master and release/*
// are release branches, feature/*, bugfix/* and dev are development
// branches.
func DefaultPolicy() *PatternPolicy {
	p, err := NewPatternPolicy(DefaultReleasePatterns, DefaultDevelopmentPatterns)
	if err != nil {
		panic(err)
	}
	return p
}

// Default branch patterns.
var (
	DefaultReleasePatterns     = []string{"master", "release/*"}
	DefaultDevelopmentPatterns = []string{"dev", "develop", "feature/*", "bugfix/*"}
)

// IsRelease implements Policy.
func (p *PatternPolicy) IsRelease(_ context.Context, branch string) (bool, error) {
	return matchAny(p.release, branch), nil
}

// IsDevelopment implements Policy.
func (p *PatternPolicy) IsDevelopment(_ context.Context, branch string) (bool, error) {
	return matchAny(p.development, branch), nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, branch string) bool {
	for _, g := range globs {
		if g.Match(branch) {
			return true
		}
	}
	return false
}
