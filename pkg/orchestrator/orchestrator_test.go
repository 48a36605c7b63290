package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openfroyo/projconf/pkg/config"
	"github.com/openfroyo/projconf/pkg/host"
	"github.com/openfroyo/projconf/pkg/plugins"
	"github.com/openfroyo/projconf/pkg/telemetry"
	"github.com/openfroyo/projconf/pkg/testutil"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "6.4.1", want: "v6.4.1"},
		{in: "6.4", want: "v6.4.0"},
		{in: "v7", want: "v7.0.0"},
		{in: `6.4.1"`, want: "v6.4.1"},
		{in: " 6.5-rc-1 ", want: "v6.5.0-rc-1"},
		{in: "6.4.1-rc-1", want: "v6.4.1-rc-1"},
		{in: `6.4.1-rc.2"`, want: "v6.4.1-rc.2"},
		{in: "6.4.1+build.7", want: "v6.4.1"},
		{in: "6.4.1.2", wantErr: true},
		{in: "6.", want: "v6.0.0"},
		{in: "", wantErr: true},
		{in: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeVersion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCheckHostVersion(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{version: "6.4.1"},
		{version: "6.5"},
		{version: "7.0"},
		{version: "6.4", wantErr: true},
		{version: "6.3.9", wantErr: true},
		{version: "6.4.1-rc-1", wantErr: true},
		{version: "6.4.2-rc-1"},
		{version: "garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := CheckHostVersion(tt.version, "6.4.1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckHostVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrHostVersion) {
				t.Errorf("Expected ErrHostVersion, got %v", err)
			}
			if !strings.Contains(err.Error(), "host version >= 6.4.1 is required") {
				t.Errorf("unexpected message %v", err)
			}
		})
	}
}

func newProject(t *testing.T, version, dir string, registry *host.PluginRegistry) *host.Project {
	t.Helper()
	if registry == nil {
		var err error
		if registry, err = plugins.NewRegistry(); err != nil {
			t.Fatal(err)
		}
	}
	p, err := host.NewHost(version, registry, zerolog.Nop()).
		NewProject(host.ProjectOptions{Dir: dir, UserHome: "/home/ci"})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProjectPlugin_OldHost(t *testing.T) {
	p := newProject(t, "6.3", t.TempDir(), nil)

	err := (&ProjectPlugin{}).Apply(context.Background(), p)
	if !errors.Is(err, ErrHostVersion) {
		t.Fatalf("Expected ErrHostVersion, got %v", err)
	}
	if len(p.Plugins().Applied()) != 0 {
		t.Errorf("Expected no plugins applied, got %v", p.Plugins().Applied())
	}
}

func TestProjectPlugin_Order(t *testing.T) {
	dir := testutil.GitRepo(t, "master")
	p := newProject(t, "6.4.1", dir, nil)
	tel := telemetry.NewNopTelemetry()

	if err := (&ProjectPlugin{Telemetry: tel, PassID: "p"}).Apply(context.Background(), p); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var roots []string
	for _, e := range tel.Events.EventsForPass("p") {
		if e.Type == telemetry.EventTypePluginApplied {
			roots = append(roots, e.Subject)
		}
	}
	want := append([]string{plugins.PluginDevelopmentPluginID}, DefaultPluginIDs...)
	if !slices.Equal(roots, want) {
		t.Errorf("applied = %v, want %v", roots, want)
	}

	repos := p.Repositories().All()
	if len(repos) != 1 || repos[0].URL != config.DefaultDefaults().Repositories.Plugins {
		t.Errorf("repositories = %v", repos)
	}

	if !p.Extra().Has("pluginId") {
		t.Error("Expected the pluginId property to be declared")
	}
}

func TestProjectPlugin_UnknownPlugin(t *testing.T) {
	p := newProject(t, "6.4.1", t.TempDir(), nil)

	err := (&ProjectPlugin{
		PluginIDs: []string{plugins.ModuleProjectPluginID, "nope", plugins.ReleasePluginID},
	}).Apply(context.Background(), p)
	if !errors.Is(err, host.ErrPluginNotFound) {
		t.Fatalf("Expected ErrPluginNotFound, got %v", err)
	}
	if p.Plugins().HasPlugin(plugins.ReleasePluginID) {
		t.Error("Expected the sequence to stop at the unknown plugin")
	}
	if !p.Plugins().HasPlugin(plugins.ModuleProjectPluginID) {
		t.Error("Expected earlier plugins to stay applied")
	}
}

func TestProjectPlugin_PublishCallbackOrder(t *testing.T) {
	dir := testutil.GitRepo(t, "master")
	p := newProject(t, "6.4.1", dir, nil)

	if err := (&ProjectPlugin{}).Apply(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	// The plugin's own validation would fail if it ran before the
	// coordinates were set.
	p.Extra().Set("pluginId", "widget")
	if err := p.Evaluate(context.Background()); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	publish, err := p.Tasks().ByName(plugins.PublishTaskName)
	if err != nil {
		t.Fatal(err)
	}
	if publish.Inputs["coordinates"] != "ru.yandex.money.gradle.plugins:widget" {
		t.Errorf("coordinates = %q", publish.Inputs["coordinates"])
	}
}

func writeScript(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "build.star")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_FeatureBranch(t *testing.T) {
	dir := testutil.GitRepo(t, "feature/x")
	tel := telemetry.NewNopTelemetry()

	report, err := Run(context.Background(), Options{
		Dir:         dir,
		HostVersion: "6.7.1",
		UserHome:    "/home/ci",
		Script:      writeScript(t, t.TempDir(), `pluginId = "widget-" + project.name`),
		Lookup:      config.MapLookup(map[string]string{config.EnvNexusUser: "nexus"}),
		Telemetry:   tel,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Branch.Branch != "feature/x" || report.Branch.Release || !report.Branch.Development {
		t.Errorf("Branch = %+v", report.Branch)
	}
	if !slices.Contains(report.Edges, host.Edge{Task: plugins.BuildTaskName, DependsOn: plugins.CheckChangelogTaskName}) {
		t.Errorf("Expected build -> checkChangelog in %v", report.Edges)
	}
	if report.Graph.Level(plugins.CheckChangelogTaskName) >= report.Graph.Level(plugins.BuildTaskName) {
		t.Error("Expected checkChangelog to run before build")
	}

	publish, ok := report.Extensions[plugins.JavaArtifactPublishExtensionName].(*plugins.JavaArtifactPublishExtension)
	if !ok {
		t.Fatalf("publish extension = %T", report.Extensions[plugins.JavaArtifactPublishExtensionName])
	}
	if publish.ArtifactID != "widget-"+filepath.Base(dir) || publish.NexusUser != "nexus" {
		t.Errorf("unexpected publish extension %+v", publish)
	}

	if report.PassID == "" || len(report.Events) == 0 {
		t.Errorf("Expected pass id and events, got %q and %d", report.PassID, len(report.Events))
	}
	if report.Script == nil || !slices.Contains(report.Script.Properties, "pluginId") {
		t.Errorf("Script = %+v", report.Script)
	}
}

func TestRun_ReleaseBranch(t *testing.T) {
	dir := testutil.GitRepo(t, "master")

	report, err := Run(context.Background(), Options{
		Dir:         dir,
		HostVersion: "6.4.1",
		UserHome:    "/home/ci",
		Script:      writeScript(t, t.TempDir(), `pluginId = "widget"`),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, e := range report.Edges {
		if e.DependsOn == plugins.CheckChangelogTaskName && e.Task == plugins.BuildTaskName {
			t.Error("Expected no changelog edge on master")
		}
	}
	if len(report.Steps) != 9 {
		t.Errorf("Steps = %v", report.Steps)
	}
}

func TestRun_BlankPluginID(t *testing.T) {
	dir := testutil.GitRepo(t, "master")
	tel := telemetry.NewNopTelemetry()

	_, err := Run(context.Background(), Options{Dir: dir, HostVersion: "6.4.1", UserHome: "/home/ci", Telemetry: tel})
	if err == nil || !strings.Contains(err.Error(), "property pluginId is empty") {
		t.Fatalf("Expected blank pluginId failure, got %v", err)
	}

	events := tel.Events.Events()
	if last := events[len(events)-1]; last.Type != telemetry.EventTypePassFailed {
		t.Errorf("last event = %s", last.Type)
	}
}

func TestRun_InvalidDefaults(t *testing.T) {
	defaults := config.DefaultDefaults()
	defaults.Mail.Port = 0

	_, err := Run(context.Background(), Options{Dir: t.TempDir(), HostVersion: "6.4.1", Defaults: defaults})
	if host.CodeOf(err) != host.ErrCodeValidation {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestRun_RegoPolicy(t *testing.T) {
	dir := testutil.GitRepo(t, "trunk")
	policyPath := filepath.Join(t.TempDir(), "branches.rego")
	module := "package projconf.branches\n\nimport rego.v1\n\nrelease if input.branch == \"trunk\"\n"
	if err := os.WriteFile(policyPath, []byte(module), 0o644); err != nil {
		t.Fatal(err)
	}

	defaults := config.DefaultDefaults()
	defaults.Branches.Policy = policyPath

	report, err := Run(context.Background(), Options{
		Dir:         dir,
		HostVersion: "6.4.1",
		UserHome:    "/home/ci",
		Defaults:    defaults,
		Script:      writeScript(t, t.TempDir(), `pluginId = "widget"`),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.Branch.Release {
		t.Errorf("Expected trunk to be a release branch, got %+v", report.Branch)
	}
}
