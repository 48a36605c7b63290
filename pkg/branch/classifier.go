// Package branch determines whether the checked-out branch of a project is
// eligible for a release.
//
// The classifier is a pure query: it opens the repository, reads the current
// branch, evaluates it against a Policy and releases the handle on every
// exit path. There is no default answer; a repository that cannot be opened
// or a detached HEAD fails the query.
package branch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// State is the classification of the current branch.
type State struct {
	Branch      string `json:"branch" yaml:"branch"`
	Release     bool   `json:"release" yaml:"release"`
	Development bool   `json:"development" yaml:"development"`
}

// Classifier classifies the checked-out branch of a working copy.
type Classifier struct {
	policy Policy
	open   func(ctx context.Context, dir string) (*Repository, error)
	logger zerolog.Logger
}

// NewClassifier creates a classifier using policy. A nil policy means
// DefaultPolicy.
func NewClassifier(policy Policy, logger zerolog.Logger) *Classifier {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Classifier{
		policy: policy,
		open:   Open,
		logger: logger.With().Str("component", "branch-classifier").Logger(),
	}
}

// Option customizes a single Classify call.
type Option func(*classifyOptions)

type classifyOptions struct {
	repo *Repository
}

// WithRepository makes Classify query an already open handle instead of
// opening one at the given directory. The caller keeps ownership and must
// close it.
func WithRepository(repo *Repository) Option {
	return func(o *classifyOptions) {
		o.repo = repo
	}
}

// Classify returns the state of the branch checked out in dir.
func (c *Classifier) Classify(ctx context.Context, dir string, opts ...Option) (state State, err error) {
	var o classifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	repo := o.repo
	if repo == nil {
		repo, err = c.open(ctx, dir)
		if err != nil {
			return State{}, err
		}
		defer func() {
			if cerr := repo.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to release repository: %w", cerr)
			}
		}()
	}

	name, err := repo.CurrentBranch(ctx)
	if err != nil {
		return State{}, err
	}
	return c.ClassifyName(ctx, name)
}

// ClassifyName evaluates a branch name against the policy without touching
// a repository.
func (c *Classifier) ClassifyName(ctx context.Context, name string) (State, error) {
	release, err := c.policy.IsRelease(ctx, name)
	if err != nil {
		return State{}, fmt.Errorf("failed to evaluate release policy for %s: %w", name, err)
	}
	development, err := c.policy.IsDevelopment(ctx, name)
	if err != nil {
		return State{}, fmt.Errorf("failed to evaluate development policy for %s: %w", name, err)
	}

	state := State{Branch: name, Release: release, Development: development}
	c.logger.Debug().
		Str("branch", name).
		Bool("release", release).
		Bool("development", development).
		Msg("Branch classified")
	return state, nil
}

// IsCurrentBranchForRelease reports whether the branch checked out in dir
// is release-eligible.
func (c *Classifier) IsCurrentBranchForRelease(ctx context.Context, dir string, opts ...Option) (bool, error) {
	state, err := c.Classify(ctx, dir, opts...)
	if err != nil {
		return false, err
	}
	return state.Release, nil
}
