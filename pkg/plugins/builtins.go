// Package plugins provides the catalog of collaborator plugins the project
// configuration depends on.
//
// Only the contract of each plugin is modeled: the extensions it registers,
// the tasks it creates and the validation it defers to the evaluate phase.
// Release automation, dependency checking and artifact publication logic
// live elsewhere.
package plugins

import (
	"context"
	"fmt"

	"github.com/openfroyo/projconf/pkg/collections"
	"github.com/openfroyo/projconf/pkg/host"
)

// Plugin ids.
const (
	JavaPluginID                = "java"
	IdeaPluginID                = "idea"
	PluginDevelopmentPluginID   = "java-gradle-plugin"
	ArchitectureTestPluginID    = "architecture-test"
	CheckDependenciesPluginID   = "check-dependencies"
	ModuleProjectPluginID       = "module-project"
	JavaArtifactPublishPluginID = "java-artifact-publish"
	ReleasePluginID             = "release"
	GitExpiredBranchPluginID    = "git-expired-branch"
	BuildMonitoringPluginID     = "build-monitoring"
)

// Task types.
const (
	TaskTypeCompile   = "JavaCompile"
	TaskTypeJar       = "Jar"
	TaskTypeTest      = "Test"
	TaskTypeWrapper   = "Wrapper"
	TaskTypeIdea      = "GenerateIdeaModule"
	TaskTypePublish   = "PublishToMavenRepository"
	TaskTypeRelease   = "Release"
	TaskTypeChangelog = "CheckChangelog"
)

// Task names referenced outside the plugin that creates them.
const (
	BuildTaskName          = "build"
	CheckTaskName          = "check"
	JarTaskName            = "jar"
	PublishTaskName        = "publish"
	ReleaseTaskName        = "release"
	PreReleaseTaskName     = "preRelease"
	CheckChangelogTaskName = "checkChangelog"
	WrapperTaskName        = "wrapper"
)

// RegisterBuiltins registers every builtin plugin with registry.
func RegisterBuiltins(registry *host.PluginRegistry) error {
	builtins := []host.Plugin{
		host.PluginFunc{Name: JavaPluginID, Fn: applyJava},
		host.PluginFunc{Name: IdeaPluginID, Fn: applyIdea},
		host.PluginFunc{Name: PluginDevelopmentPluginID, Fn: applyPluginDevelopment},
		host.PluginFunc{Name: ArchitectureTestPluginID, Fn: applyArchitectureTest},
		host.PluginFunc{Name: CheckDependenciesPluginID, Fn: applyCheckDependencies},
		host.PluginFunc{Name: ModuleProjectPluginID, Fn: applyModuleProject},
		&JavaArtifactPublishPlugin{},
		host.PluginFunc{Name: ReleasePluginID, Fn: applyRelease},
		host.PluginFunc{Name: GitExpiredBranchPluginID, Fn: applyGitExpiredBranch},
		host.PluginFunc{Name: BuildMonitoringPluginID, Fn: applyBuildMonitoring},
	}
	for _, p := range builtins {
		if err := registry.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the builtin catalog.
func NewRegistry() (*host.PluginRegistry, error) {
	registry := host.NewPluginRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

type taskSpec struct {
	name      string
	taskType  string
	group     string
	dependsOn []string
}

// registerTasks creates tasks in order and wires their dependencies.
func registerTasks(p *host.Project, specs ...taskSpec) error {
	for _, spec := range specs {
		task, err := p.Tasks().MaybeCreate(spec.name, spec.taskType)
		if err != nil {
			return err
		}
		if spec.group != "" {
			task.Group = spec.group
		}
		for _, dep := range spec.dependsOn {
			if err := p.Tasks().DependsOn(spec.name, dep); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyJava(_ context.Context, p *host.Project) error {
	return registerTasks(p,
		taskSpec{name: "compileJava", taskType: TaskTypeCompile},
		taskSpec{name: "classes", taskType: host.TaskTypeDefault, dependsOn: []string{"compileJava"}},
		taskSpec{name: JarTaskName, taskType: TaskTypeJar, group: "build", dependsOn: []string{"classes"}},
		taskSpec{name: "test", taskType: TaskTypeTest, group: "verification", dependsOn: []string{"classes"}},
		taskSpec{name: CheckTaskName, taskType: host.TaskTypeDefault, group: "verification", dependsOn: []string{"test"}},
		taskSpec{name: "assemble", taskType: host.TaskTypeDefault, group: "build", dependsOn: []string{JarTaskName}},
		taskSpec{name: BuildTaskName, taskType: host.TaskTypeDefault, group: "build", dependsOn: []string{"assemble", CheckTaskName}},
	)
}

func applyIdea(_ context.Context, p *host.Project) error {
	if _, err := host.Create[IdeaExtension](p.Extensions(), IdeaExtensionName); err != nil {
		return err
	}
	return registerTasks(p, taskSpec{name: "idea", taskType: TaskTypeIdea, group: "ide"})
}

func applyPluginDevelopment(ctx context.Context, p *host.Project) error {
	if err := p.Apply(ctx, JavaPluginID); err != nil {
		return err
	}
	ext, err := host.Create[PluginDevelopmentExtension](p.Extensions(), PluginDevelopmentExtensionName)
	if err != nil {
		return err
	}
	ext.AutomatedPublishing = true
	return registerTasks(p,
		taskSpec{name: "pluginDescriptors", taskType: host.TaskTypeDefault},
		taskSpec{name: "validatePlugins", taskType: host.TaskTypeDefault, group: "plugin development", dependsOn: []string{"classes"}},
	)
}

func applyArchitectureTest(ctx context.Context, p *host.Project) error {
	if err := p.Apply(ctx, JavaPluginID); err != nil {
		return err
	}
	ext, err := host.Create[ArchitectureTestExtension](p.Extensions(), ArchitectureTestExtensionName)
	if err != nil {
		return err
	}
	ext.Include = collections.NewSet[string]()
	ext.Exclude = collections.NewSet[string]()
	return registerTasks(p,
		taskSpec{name: "analyzeJavaArchitecture", taskType: host.TaskTypeDefault, group: "verification", dependsOn: []string{"classes"}},
		taskSpec{name: CheckTaskName, taskType: host.TaskTypeDefault, dependsOn: []string{"analyzeJavaArchitecture"}},
	)
}

func applyCheckDependencies(ctx context.Context, p *host.Project) error {
	if err := p.Apply(ctx, JavaPluginID); err != nil {
		return err
	}
	if _, err := host.Create[CheckDependenciesExtension](p.Extensions(), CheckDependenciesExtensionName); err != nil {
		return err
	}
	checker, err := host.Create[MajorVersionCheckerExtension](p.Extensions(), MajorVersionCheckerExtensionName)
	if err != nil {
		return err
	}
	checker.IncludeGroupIDPrefixes = collections.NewSet[string]()
	return registerTasks(p,
		taskSpec{name: "checkLibraryDependencies", taskType: host.TaskTypeDefault, group: "verification"},
		taskSpec{name: "checkMajorVersions", taskType: host.TaskTypeDefault, group: "verification"},
		taskSpec{name: CheckTaskName, taskType: host.TaskTypeDefault, dependsOn: []string{"checkLibraryDependencies", "checkMajorVersions"}},
	)
}

func applyModuleProject(ctx context.Context, p *host.Project) error {
	for _, id := range []string{JavaPluginID, IdeaPluginID, ArchitectureTestPluginID, CheckDependenciesPluginID} {
		if err := p.Apply(ctx, id); err != nil {
			return err
		}
	}
	_, err := host.Create[JavaExtension](p.Extensions(), JavaExtensionName)
	return err
}

func applyRelease(_ context.Context, p *host.Project) error {
	ext, err := host.Create[ReleaseExtension](p.Extensions(), ReleaseExtensionName)
	if err != nil {
		return err
	}
	ext.ReleaseTasks = []string{BuildTaskName}
	return registerTasks(p,
		taskSpec{name: CheckChangelogTaskName, taskType: TaskTypeChangelog, group: "release"},
		taskSpec{name: PreReleaseTaskName, taskType: TaskTypeRelease, group: "release", dependsOn: []string{CheckChangelogTaskName}},
		taskSpec{name: ReleaseTaskName, taskType: TaskTypeRelease, group: "release", dependsOn: []string{PreReleaseTaskName}},
	)
}

func applyGitExpiredBranch(_ context.Context, p *host.Project) error {
	if _, err := host.Create[EmailConnectionExtension](p.Extensions(), EmailConnectionExtensionName); err != nil {
		return err
	}
	if _, err := host.Create[GitConnectionExtension](p.Extensions(), GitConnectionExtensionName); err != nil {
		return err
	}
	return registerTasks(p, taskSpec{name: "notifyAboutGitExpiredBranches", taskType: host.TaskTypeDefault, group: "git"})
}

func applyBuildMonitoring(_ context.Context, p *host.Project) error {
	return registerTasks(p, taskSpec{name: "buildMonitoring", taskType: host.TaskTypeDefault, group: "monitoring"})
}

// JavaArtifactPublishPlugin publishes the project artifact. It reuses a
// publish extension created before it was applied, so a caller can register
// deferred callbacks that run ahead of the plugin's own validation.
type JavaArtifactPublishPlugin struct{}

// ID implements host.Plugin.
func (*JavaArtifactPublishPlugin) ID() string { return JavaArtifactPublishPluginID }

// Apply implements host.Plugin.
func (*JavaArtifactPublishPlugin) Apply(ctx context.Context, p *host.Project) error {
	if err := p.Apply(ctx, JavaPluginID); err != nil {
		return err
	}

	ext, ok := host.FindByType[*JavaArtifactPublishExtension](p.Extensions())
	if !ok {
		created, err := host.Create[JavaArtifactPublishExtension](p.Extensions(), JavaArtifactPublishExtensionName)
		if err != nil {
			return err
		}
		ext = created
	}

	if err := registerTasks(p,
		taskSpec{name: PublishTaskName, taskType: TaskTypePublish, group: "publishing", dependsOn: []string{JarTaskName}},
	); err != nil {
		return err
	}

	return p.AfterEvaluate(func(_ context.Context, p *host.Project) error {
		if ext.GroupID == "" {
			return host.NewPermanentError("publication groupId is not set", nil).
				WithCode(host.ErrCodePrecondition).WithProject(p.Name)
		}
		if ext.ArtifactID == "" {
			return host.NewPermanentError("publication artifactId is not set", nil).
				WithCode(host.ErrCodePrecondition).WithProject(p.Name)
		}
		task, err := p.Tasks().ByName(PublishTaskName)
		if err != nil {
			return err
		}
		task.SetInput("coordinates", fmt.Sprintf("%s:%s", ext.GroupID, ext.ArtifactID))
		return nil
	})
}
