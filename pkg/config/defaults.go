package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/openfroyo/projconf/pkg/collections"
)

// DefaultDefaults returns the built-in organization defaults. Each call
// returns a fresh copy.
func DefaultDefaults() *Defaults {
	return &Defaults{
		MinHostVersion: "6.4.1",
		Repositories: RepositoryDefaults{
			Plugins: "https://nexus.yamoney.ru/repository/gradle-plugins/",
		},
		Publish: PublishDefaults{
			GroupID:             "ru.yandex.money.gradle.plugins",
			ArtifactIDProperty:  "pluginId",
			AutomatedPublishing: false,
		},
		Mail: MailDefaults{
			Host: "mail.yoomoney.ru",
			Port: 25,
		},
		Git: GitDefaults{
			Username: "SvcReleaserBackend",
			Email:    "SvcReleaserBackend@yoomoney.ru",
		},
		Release: ReleaseDefaults{
			Tasks:                         []string{"build", "publish"},
			ChangelogRequired:             true,
			AddPullRequestLinkToChangelog: true,
		},
		Wrapper: WrapperDefaults{
			DistributionURL: "https://nexus.yamoney.ru/content/repositories/" +
				"http-proxy-services.gradle.org/distributions/gradle-6.0.1-all.zip",
		},
		ArchitectureTest: ArchitectureTestDefaults{
			Include: []string{"check_unique_enums_codes"},
		},
		Java: JavaDefaults{
			Repositories: []string{
				"https://nexus.yamoney.ru/content/repositories/releases/",
				"https://nexus.yamoney.ru/content/repositories/jcenter.bintray.com/",
				"https://nexus.yamoney.ru/content/repositories/thirdparty/",
				"https://nexus.yamoney.ru/content/repositories/central/",
			},
			SnapshotsRepositories: []string{
				"https://nexus.yamoney.ru/content/repositories/snapshots/",
			},
			SnapshotsMavenLocal: true,
		},
		CheckDependencies: CheckDependenciesDefaults{
			ExclusionsRulesSources: []string{
				"ru.yandex.money.platform:yamoney-libraries-dependencies",
				"libraries-versions-exclusions.properties",
			},
		},
		MajorVersionChecker: MajorVersionCheckerDefaults{
			IncludeGroupIDPrefixes: []string{"ru.yamoney", "ru.yandex.money", "ru.yoomoney"},
		},
		Idea: IdeaDefaults{
			DownloadSources:         true,
			DownloadJavadoc:         true,
			InheritOutputDirs:       true,
			DelegateBuildRunActions: false,
			ExcludeDirs:             []string{"classes", "docs", "dependency-cache", "libs", "reports", "resources", "test-results", "tmp"},
		},
		Branches: BranchDefaults{
			Release:     []string{"master", "release/*"},
			Development: []string{"dev", "develop", "feature/*", "bugfix/*"},
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// subdir: a relative path that stays strictly inside its base directory.
	_ = v.RegisterValidation("subdir", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if filepath.IsAbs(name) {
			return false
		}
		base := string(filepath.Separator) + "base"
		return collections.IsSubdir(base, filepath.Join(base, name))
	})
	return v
}

// Validate checks the defaults against their struct tags.
func (d *Defaults) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate defaults: %w", err)
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Path:    fieldPath(fe.Namespace()),
			Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
		})
	}
	return out
}

// fieldPath turns "Defaults.mail.port" into "mail.port".
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}
