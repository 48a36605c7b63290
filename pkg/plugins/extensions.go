package plugins

import (
	"github.com/openfroyo/projconf/pkg/collections"
)

// Extension names under which the builtin plugins register their
// extensions.
const (
	ReleaseExtensionName             = "release"
	EmailConnectionExtensionName     = "emailConnection"
	GitConnectionExtensionName       = "gitConnection"
	MajorVersionCheckerExtensionName = "majorVersionChecker"
	CheckDependenciesExtensionName   = "checkDependencies"
	JavaExtensionName                = "javaModule"
	JavaArtifactPublishExtensionName = "javaArtifactPublish"
	ArchitectureTestExtensionName    = "architectureTests"
	IdeaExtensionName                = "idea"
	PluginDevelopmentExtensionName   = "gradlePlugin"
)

// ReleaseExtension configures release automation.
type ReleaseExtension struct {
	// ReleaseTasks run in order during a release.
	ReleaseTasks                  []string `json:"releaseTasks"`
	ChangelogRequired             bool     `json:"changelogRequired"`
	PathToGitPrivateSSHKey        string   `json:"pathToGitPrivateSshKey"`
	GitUsername                   string   `json:"gitUsername"`
	GitEmail                      string   `json:"gitEmail"`
	AddPullRequestLinkToChangelog bool     `json:"addPullRequestLinkToChangelog"`
	BitbucketUser                 string   `json:"bitbucketUser"`
	BitbucketPassword             string   `json:"-"`
}

// EmailConnectionExtension configures the mail server used to notify about
// expired branches.
type EmailConnectionExtension struct {
	EmailHost         string `json:"emailHost"`
	EmailPort         int    `json:"emailPort"`
	EmailAuthUser     string `json:"emailAuthUser"`
	EmailAuthPassword string `json:"-"`
}

// GitConnectionExtension configures the git identity used by branch hygiene
// jobs.
type GitConnectionExtension struct {
	PathToGitPrivateSSHKey string `json:"pathToGitPrivateSshKey"`
	Username               string `json:"username"`
	Email                  string `json:"email"`
}

// MajorVersionCheckerExtension configures the major version checker.
type MajorVersionCheckerExtension struct {
	IncludeGroupIDPrefixes collections.Set[string] `json:"includeGroupIdPrefixes"`
	FailBuild              bool                    `json:"failBuild"`
}

// IncludedPrefixes returns the group id prefixes in sorted order.
func (e *MajorVersionCheckerExtension) IncludedPrefixes() []string {
	return e.IncludeGroupIDPrefixes.Values()
}

// CheckDependenciesExtension configures dependency conflict checks.
type CheckDependenciesExtension struct {
	ExclusionsRulesSources []string `json:"exclusionsRulesSources"`
	ExcludedConfigurations []string `json:"excludedConfigurations"`
}

// JavaExtension configures the java module build.
type JavaExtension struct {
	Repositories          []string `json:"repositories"`
	SnapshotsRepositories []string `json:"snapshotsRepositories"`
}

// JavaArtifactPublishExtension configures artifact publication. ArtifactID
// is usually only known once the build script has run.
type JavaArtifactPublishExtension struct {
	GroupID       string `json:"groupId"`
	ArtifactID    string `json:"artifactId"`
	NexusUser     string `json:"nexusUser"`
	NexusPassword string `json:"-"`
}

// ArchitectureTestExtension selects the architecture rules to run.
type ArchitectureTestExtension struct {
	Include collections.Set[string] `json:"include"`
	Exclude collections.Set[string] `json:"exclude"`
}

// IdeaExtension configures IDE project generation.
type IdeaExtension struct {
	DownloadSources   bool                    `json:"downloadSources"`
	DownloadJavadoc   bool                    `json:"downloadJavadoc"`
	InheritOutputDirs bool                    `json:"inheritOutputDirs"`
	ExcludeDirs       collections.Set[string] `json:"excludeDirs"`
	Settings          IdeaSettings            `json:"settings"`
}

// IdeaSettings holds the nested IDE delegation settings.
type IdeaSettings struct {
	DelegateBuildRunActions bool `json:"delegateBuildRunActions"`
}

// PluginDevelopmentExtension configures plugin development builds.
type PluginDevelopmentExtension struct {
	AutomatedPublishing bool `json:"automatedPublishing"`
}
