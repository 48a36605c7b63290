package config

import (
	"fmt"
	"strings"
)

// Defaults holds the organization-wide literal values applied to every
// project. The zero value is not usable; start from DefaultDefaults.
type Defaults struct {
	// MinHostVersion is the lowest host version a pass accepts.
	MinHostVersion string `json:"minHostVersion" yaml:"minHostVersion" validate:"required"`

	Repositories        RepositoryDefaults          `json:"repositories" yaml:"repositories"`
	Publish             PublishDefaults             `json:"publish" yaml:"publish"`
	Mail                MailDefaults                `json:"mail" yaml:"mail"`
	Git                 GitDefaults                 `json:"git" yaml:"git"`
	Release             ReleaseDefaults             `json:"release" yaml:"release"`
	Wrapper             WrapperDefaults             `json:"wrapper" yaml:"wrapper"`
	ArchitectureTest    ArchitectureTestDefaults    `json:"architectureTest" yaml:"architectureTest"`
	Java                JavaDefaults                `json:"java" yaml:"java"`
	CheckDependencies   CheckDependenciesDefaults   `json:"checkDependencies" yaml:"checkDependencies"`
	MajorVersionChecker MajorVersionCheckerDefaults `json:"majorVersionChecker" yaml:"majorVersionChecker"`
	Idea                IdeaDefaults                `json:"idea" yaml:"idea"`
	Branches            BranchDefaults              `json:"branches" yaml:"branches"`
}

// RepositoryDefaults configures plugin resolution.
type RepositoryDefaults struct {
	// Plugins is the maven repository plugins are resolved from.
	Plugins string `json:"plugins" yaml:"plugins" validate:"required,url"`
}

// PublishDefaults configures artifact publication.
type PublishDefaults struct {
	GroupID string `json:"groupId" yaml:"groupId" validate:"required"`

	// ArtifactIDProperty names the extra property the build script sets to
	// the artifact id.
	ArtifactIDProperty string `json:"artifactIdProperty" yaml:"artifactIdProperty" validate:"required"`

	// AutomatedPublishing is the value forced onto the plugin development
	// extension.
	AutomatedPublishing bool `json:"automatedPublishing" yaml:"automatedPublishing"`
}

// MailDefaults configures the expired branch notifier.
type MailDefaults struct {
	Host string `json:"host" yaml:"host" validate:"required,hostname_rfc1123"`
	Port int    `json:"port" yaml:"port" validate:"required,min=1,max=65535"`
}

// GitDefaults is the identity used for commits made by automation.
type GitDefaults struct {
	Username string `json:"username" yaml:"username" validate:"required"`
	Email    string `json:"email" yaml:"email" validate:"required,email"`
}

// ReleaseDefaults configures release automation.
type ReleaseDefaults struct {
	// Tasks replace the release task list, in order.
	Tasks                         []string `json:"tasks" yaml:"tasks" validate:"required,min=1,dive,required"`
	ChangelogRequired             bool     `json:"changelogRequired" yaml:"changelogRequired"`
	AddPullRequestLinkToChangelog bool     `json:"addPullRequestLinkToChangelog" yaml:"addPullRequestLinkToChangelog"`
}

// WrapperDefaults configures the wrapper task.
type WrapperDefaults struct {
	DistributionURL string `json:"distributionUrl" yaml:"distributionUrl" validate:"required,url"`
}

// ArchitectureTestDefaults lists architecture rules every project runs.
type ArchitectureTestDefaults struct {
	Include []string `json:"include" yaml:"include" validate:"dive,required"`
}

// JavaDefaults lists artifact repositories, in resolution order.
type JavaDefaults struct {
	Repositories          []string `json:"repositories" yaml:"repositories" validate:"required,min=1,dive,url"`
	SnapshotsRepositories []string `json:"snapshotsRepositories" yaml:"snapshotsRepositories" validate:"dive,url"`

	// SnapshotsMavenLocal puts the local maven repository ahead of the
	// snapshot repositories.
	SnapshotsMavenLocal bool `json:"snapshotsMavenLocal" yaml:"snapshotsMavenLocal"`
}

// CheckDependenciesDefaults configures dependency conflict checks.
type CheckDependenciesDefaults struct {
	ExclusionsRulesSources []string `json:"exclusionsRulesSources" yaml:"exclusionsRulesSources" validate:"dive,required"`
	ExcludedConfigurations []string `json:"excludedConfigurations" yaml:"excludedConfigurations" validate:"dive,required"`
}

// MajorVersionCheckerDefaults configures the major version checker.
type MajorVersionCheckerDefaults struct {
	IncludeGroupIDPrefixes []string `json:"includeGroupIdPrefixes" yaml:"includeGroupIdPrefixes" validate:"dive,required"`
}

// IdeaDefaults configures IDE integration.
type IdeaDefaults struct {
	DownloadSources         bool `json:"downloadSources" yaml:"downloadSources"`
	DownloadJavadoc         bool `json:"downloadJavadoc" yaml:"downloadJavadoc"`
	InheritOutputDirs       bool `json:"inheritOutputDirs" yaml:"inheritOutputDirs"`
	DelegateBuildRunActions bool `json:"delegateBuildRunActions" yaml:"delegateBuildRunActions"`

	// ExcludeDirs are build dir subdirectories hidden from indexing.
	ExcludeDirs []string `json:"excludeDirs" yaml:"excludeDirs" validate:"dive,required,subdir"`
}

// BranchDefaults configures branch classification.
type BranchDefaults struct {
	// Release and Development are glob patterns; '*' does not match '/'.
	Release     []string `json:"release" yaml:"release" validate:"required,min=1,dive,required"`
	Development []string `json:"development" yaml:"development" validate:"dive,required"`

	// Policy is an optional Rego module replacing the patterns.
	Policy string `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// ValidationError represents a validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the field path (e.g., "mail.port").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ValidationErrors is returned when a defaults file is rejected.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.String()
	}
	return "invalid defaults: " + strings.Join(msgs, "; ")
}
