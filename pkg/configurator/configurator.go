package configurator

import (
	"context"
	"fmt"

	"github.com/openfroyo/projconf/pkg/branch"
	"github.com/openfroyo/projconf/pkg/config"
	"github.com/openfroyo/projconf/pkg/host"
	"github.com/openfroyo/projconf/pkg/telemetry"
)

// Step names, in execution order.
const (
	StepPublish             = "publish"
	StepGitExpiredBranches  = "git-expired-branches"
	StepRelease             = "release"
	StepWrapper             = "wrapper"
	StepArchitectureTest    = "architecture-test"
	StepJava                = "java"
	StepCheckDependencies   = "check-dependencies"
	StepMajorVersionChecker = "major-version-checker"
	StepIdea                = "idea"
)

// Options configure a Configurator.
type Options struct {
	// Defaults are the organization literals. Nil means
	// config.DefaultDefaults().
	Defaults *config.Defaults

	// Secrets are the credentials of this pass.
	Secrets config.Secrets

	// Classifier answers branch queries. Nil means a classifier with the
	// default pattern policy.
	Classifier *branch.Classifier

	// Repository is an optional pre-opened handle. The configurator does
	// not close it.
	Repository *branch.Repository

	// Telemetry receives step spans, metrics and events. Nil means a no-op
	// instance.
	Telemetry *telemetry.Telemetry

	// PassID tags events and logs.
	PassID string
}

// Configurator fills the extensions registered by the applied plugins.
// A Configurator serves one pass; the branch is classified at most once.
type Configurator struct {
	defaults   *config.Defaults
	secrets    config.Secrets
	classifier *branch.Classifier
	repo       *branch.Repository
	tel        *telemetry.Telemetry
	passID     string

	state    *branch.State
	executed []string
}

type step struct {
	name string
	fn   func(ctx context.Context, p *host.Project) error
}

// New creates a configurator.
func New(opts Options) *Configurator {
	c := &Configurator{
		defaults:   opts.Defaults,
		secrets:    opts.Secrets,
		classifier: opts.Classifier,
		repo:       opts.Repository,
		tel:        opts.Telemetry,
		passID:     opts.PassID,
	}
	if c.defaults == nil {
		c.defaults = config.DefaultDefaults()
	}
	if c.tel == nil {
		c.tel = telemetry.NewNopTelemetry()
	}
	if c.classifier == nil {
		c.classifier = branch.NewClassifier(nil, c.tel.Logger.Zerolog())
	}
	return c
}

// steps returns the fixed step list run by Configure.
func (c *Configurator) steps() []step {
	return []step{
		{StepGitExpiredBranches, c.configureGitExpiredBranches},
		{StepRelease, c.configureRelease},
		{StepWrapper, c.configureWrapper},
		{StepArchitectureTest, c.configureArchitectureTest},
		{StepJava, c.configureJava},
		{StepCheckDependencies, c.configureCheckDependencies},
		{StepMajorVersionChecker, c.configureMajorVersionChecker},
		{StepIdea, c.configureIdea},
	}
}

// Configure runs every step in order. The first failing step aborts the
// pass; nothing is rolled back.
func (c *Configurator) Configure(ctx context.Context, p *host.Project) error {
	for _, s := range c.steps() {
		if err := c.run(ctx, p, s); err != nil {
			return err
		}
	}
	return nil
}

// ConfigurePublish runs the publish pre-configuration. It must run before
// the publish plugin is applied.
func (c *Configurator) ConfigurePublish(ctx context.Context, p *host.Project) error {
	return c.run(ctx, p, step{StepPublish, c.configurePublish})
}

// Executed returns the names of the steps that completed, in order.
func (c *Configurator) Executed() []string {
	out := make([]string, len(c.executed))
	copy(out, c.executed)
	return out
}

// State returns the branch state if a step has classified the branch.
func (c *Configurator) State() (branch.State, bool) {
	if c.state == nil {
		return branch.State{}, false
	}
	return *c.state, true
}

func (c *Configurator) run(ctx context.Context, p *host.Project, s step) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	op := c.tel.StartStep(ctx, c.passID, s.name)
	err := s.fn(op.Ctx, p)
	if err != nil {
		err = stepError(p, s.name, err)
	}
	op.End(err)
	if err != nil {
		return err
	}

	c.executed = append(c.executed, s.name)
	return nil
}

// stepError tags err with the failing step, keeping the code of the
// underlying failure.
func stepError(p *host.Project, name string, err error) error {
	code := host.CodeOf(err)
	if code == "" {
		code = host.ErrCodePrecondition
	}
	return host.NewPermanentError(fmt.Sprintf("failed to configure %s", name), err).
		WithCode(code).WithProject(p.Name).WithStep(name)
}

// branchState classifies the current branch once per pass.
func (c *Configurator) branchState(ctx context.Context, p *host.Project) (branch.State, error) {
	if c.state != nil {
		return *c.state, nil
	}

	var opts []branch.Option
	if c.repo != nil {
		opts = append(opts, branch.WithRepository(c.repo))
	}
	state, err := c.classifier.Classify(ctx, p.Dir, opts...)
	if err != nil {
		return branch.State{}, err
	}
	c.state = &state

	c.tel.Events.Publish(telemetry.Event{
		Type:    telemetry.EventTypeBranchResolved,
		PassID:  c.passID,
		Subject: state.Branch,
		Message: fmt.Sprintf("release=%t development=%t", state.Release, state.Development),
		Data: map[string]interface{}{
			"release":     state.Release,
			"development": state.Development,
		},
	})
	telemetry.FromContext(ctx).WithFields(map[string]interface{}{
		"branch":      state.Branch,
		"release":     state.Release,
		"development": state.Development,
	}).Info("Branch classified")
	return state, nil
}
