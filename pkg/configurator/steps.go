package configurator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/projconf/pkg/collections"
	"github.com/openfroyo/projconf/pkg/host"
	"github.com/openfroyo/projconf/pkg/plugins"
	"github.com/openfroyo/projconf/pkg/telemetry"
)

func (c *Configurator) configureGitExpiredBranches(_ context.Context, p *host.Project) error {
	email, err := host.ByType[*plugins.EmailConnectionExtension](p.Extensions())
	if err != nil {
		return err
	}
	email.EmailHost = c.defaults.Mail.Host
	email.EmailPort = c.defaults.Mail.Port
	email.EmailAuthUser = c.secrets.MailUser
	email.EmailAuthPassword = c.secrets.MailPassword

	git, err := host.ByType[*plugins.GitConnectionExtension](p.Extensions())
	if err != nil {
		return err
	}
	git.PathToGitPrivateSSHKey = c.secrets.GitPrivateSSHKeyPath
	git.Username = c.defaults.Git.Username
	git.Email = c.defaults.Git.Email
	return nil
}

// configureRelease fills the release extension and, off release branches,
// makes build depend on the changelog check.
func (c *Configurator) configureRelease(ctx context.Context, p *host.Project) error {
	ext, err := host.ByType[*plugins.ReleaseExtension](p.Extensions())
	if err != nil {
		return err
	}
	ext.ReleaseTasks = collections.Replace(ext.ReleaseTasks, c.defaults.Release.Tasks...)
	ext.ChangelogRequired = c.defaults.Release.ChangelogRequired
	ext.PathToGitPrivateSSHKey = c.secrets.GitPrivateSSHKeyPath
	ext.GitUsername = c.defaults.Git.Username
	ext.GitEmail = c.defaults.Git.Email
	ext.AddPullRequestLinkToChangelog = c.defaults.Release.AddPullRequestLinkToChangelog
	ext.BitbucketUser = c.secrets.BitbucketUser
	ext.BitbucketPassword = c.secrets.BitbucketPassword

	state, err := c.branchState(ctx, p)
	if err != nil {
		return err
	}

	added := !state.Release
	c.tel.Metrics.RecordChangelogEdge(added)
	if !added {
		return nil
	}

	if err := p.Tasks().DependsOn(plugins.BuildTaskName, plugins.CheckChangelogTaskName); err != nil {
		return err
	}
	c.tel.Events.Publish(telemetry.Event{
		Type:    telemetry.EventTypeEdgeAdded,
		PassID:  c.passID,
		Subject: fmt.Sprintf("%s -> %s", plugins.BuildTaskName, plugins.CheckChangelogTaskName),
		Message: fmt.Sprintf("branch %s is not a release branch", state.Branch),
	})
	telemetry.AddEvent(trace.SpanFromContext(ctx), "task.edge_added",
		telemetry.AttrTask.String(plugins.BuildTaskName),
		telemetry.AttrDependsOn.String(plugins.CheckChangelogTaskName),
	)
	return nil
}

func (c *Configurator) configureWrapper(_ context.Context, p *host.Project) error {
	task, err := p.Tasks().MaybeCreate(plugins.WrapperTaskName, plugins.TaskTypeWrapper)
	if err != nil {
		return err
	}
	task.SetInput("distributionUrl", c.defaults.Wrapper.DistributionURL)
	return nil
}

func (c *Configurator) configureArchitectureTest(_ context.Context, p *host.Project) error {
	ext, err := host.ByType[*plugins.ArchitectureTestExtension](p.Extensions())
	if err != nil {
		return err
	}
	ext.Include = collections.Union(ext.Include, c.defaults.ArchitectureTest.Include...)
	return nil
}

func (c *Configurator) configureJava(_ context.Context, p *host.Project) error {
	ext, err := host.ByType[*plugins.JavaExtension](p.Extensions())
	if err != nil {
		return err
	}
	ext.Repositories = collections.Replace(ext.Repositories, c.defaults.Java.Repositories...)

	var snapshots []string
	if c.defaults.Java.SnapshotsMavenLocal {
		snapshots = append(snapshots, p.Repositories().MavenLocal().URL)
	}
	snapshots = append(snapshots, c.defaults.Java.SnapshotsRepositories...)
	ext.SnapshotsRepositories = collections.Replace(ext.SnapshotsRepositories, snapshots...)
	return nil
}

func (c *Configurator) configureCheckDependencies(_ context.Context, p *host.Project) error {
	ext, err := host.ByType[*plugins.CheckDependenciesExtension](p.Extensions())
	if err != nil {
		return err
	}
	ext.ExclusionsRulesSources = collections.AppendUnique(ext.ExclusionsRulesSources, c.defaults.CheckDependencies.ExclusionsRulesSources...)
	ext.ExcludedConfigurations = collections.AppendUnique(ext.ExcludedConfigurations, c.defaults.CheckDependencies.ExcludedConfigurations...)
	return nil
}

// configureMajorVersionChecker fails the build on major version changes
// only on development branches.
func (c *Configurator) configureMajorVersionChecker(ctx context.Context, p *host.Project) error {
	ext, err := host.ByType[*plugins.MajorVersionCheckerExtension](p.Extensions())
	if err != nil {
		return err
	}
	ext.IncludeGroupIDPrefixes = collections.Union(ext.IncludeGroupIDPrefixes, c.defaults.MajorVersionChecker.IncludeGroupIDPrefixes...)

	state, err := c.branchState(ctx, p)
	if err != nil {
		return err
	}
	ext.FailBuild = state.Development
	return nil
}

func (c *Configurator) configureIdea(_ context.Context, p *host.Project) error {
	ext, err := host.ByType[*plugins.IdeaExtension](p.Extensions())
	if err != nil {
		return err
	}
	ext.DownloadSources = c.defaults.Idea.DownloadSources
	ext.DownloadJavadoc = c.defaults.Idea.DownloadJavadoc
	ext.InheritOutputDirs = c.defaults.Idea.InheritOutputDirs
	ext.Settings.DelegateBuildRunActions = c.defaults.Idea.DelegateBuildRunActions
	ext.ExcludeDirs = collections.MergeExcludeDirs(ext.ExcludeDirs, p.BuildDir, c.defaults.Idea.ExcludeDirs...)
	return nil
}
