package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestDefaultDefaults_Valid(t *testing.T) {
	d := DefaultDefaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("built-in defaults are invalid: %v", err)
	}
	if d.MinHostVersion != "6.4.1" {
		t.Errorf("Expected min host version 6.4.1, got %s", d.MinHostVersion)
	}
	if !slices.Equal(d.Release.Tasks, []string{"build", "publish"}) {
		t.Errorf("unexpected release tasks %v", d.Release.Tasks)
	}

	d.Release.Tasks[0] = "mutated"
	if DefaultDefaults().Release.Tasks[0] != "build" {
		t.Error("DefaultDefaults must return a fresh copy")
	}
}

func TestDefaults_ValidateReportsPaths(t *testing.T) {
	d := DefaultDefaults()
	d.Mail.Port = 0
	d.Git.Email = "not-an-email"

	err := d.Validate()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected ValidationErrors, got %v", err)
	}

	paths := make([]string, 0, len(verrs))
	for _, e := range verrs {
		paths = append(paths, e.Path)
	}
	slices.Sort(paths)
	if want := []string{"git.email", "mail.port"}; !slices.Equal(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestDefaults_ValidateExcludeDirs(t *testing.T) {
	tests := []struct {
		name    string
		dirs    []string
		wantErr bool
	}{
		{name: "defaults", dirs: DefaultDefaults().Idea.ExcludeDirs},
		{name: "nested", dirs: []string{"reports/tests"}},
		{name: "build dir itself", dirs: []string{"."}, wantErr: true},
		{name: "parent", dirs: []string{".."}, wantErr: true},
		{name: "escapes through parent", dirs: []string{"classes/../../src"}, wantErr: true},
		{name: "absolute", dirs: []string{"/tmp"}, wantErr: true},
		{name: "empty", dirs: []string{""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultDefaults()
			d.Idea.ExcludeDirs = tt.dirs
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_EmptyPath(t *testing.T) {
	d, err := NewLoader().Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Mail.Host != "mail.yoomoney.ru" {
		t.Errorf("Expected built-in mail host, got %s", d.Mail.Host)
	}
}

func TestLoader_YAMLOverlay(t *testing.T) {
	path := writeFile(t, "defaults.yaml", `
mail:
  host: smtp.example.com
  port: 587
majorVersionChecker:
  includeGroupIdPrefixes: [com.example]
branches:
  release: [main, "release/*"]
`)

	d, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Mail.Host != "smtp.example.com" || d.Mail.Port != 587 {
		t.Errorf("mail not overlaid: %+v", d.Mail)
	}
	if !slices.Equal(d.MajorVersionChecker.IncludeGroupIDPrefixes, []string{"com.example"}) {
		t.Errorf("prefixes = %v", d.MajorVersionChecker.IncludeGroupIDPrefixes)
	}
	if !slices.Equal(d.Branches.Release, []string{"main", "release/*"}) {
		t.Errorf("release branches = %v", d.Branches.Release)
	}
	// Untouched sections keep the built-in values.
	if d.Git.Username != "SvcReleaserBackend" {
		t.Errorf("git username = %s", d.Git.Username)
	}
}

func TestLoader_YAMLUnknownKey(t *testing.T) {
	path := writeFile(t, "defaults.yml", "mail:\n  hots: smtp.example.com\n")
	if _, err := NewLoader().Load(path); err == nil {
		t.Fatal("Expected error for unknown key")
	}
}

func TestLoader_YAMLInvalidValue(t *testing.T) {
	path := writeFile(t, "defaults.yaml", "wrapper:\n  distributionUrl: not a url\n")

	_, err := NewLoader().Load(path)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected ValidationErrors, got %v", err)
	}
	if verrs[0].File != path || verrs[0].Path != "wrapper.distributionUrl" {
		t.Errorf("unexpected error location %+v", verrs[0])
	}
}

func TestLoader_CUEOverlay(t *testing.T) {
	path := writeFile(t, "defaults.cue", `
minHostVersion: "7.0"
mail: port: 2525
idea: excludeDirs: ["classes", "tmp"]
`)

	d, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.MinHostVersion != "7.0" {
		t.Errorf("min host version = %s", d.MinHostVersion)
	}
	if d.Mail.Port != 2525 || d.Mail.Host != "mail.yoomoney.ru" {
		t.Errorf("mail = %+v", d.Mail)
	}
	if !slices.Equal(d.Idea.ExcludeDirs, []string{"classes", "tmp"}) {
		t.Errorf("exclude dirs = %v", d.Idea.ExcludeDirs)
	}
}

func TestLoader_CUESchemaViolation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "port out of range", content: `mail: port: 70000`},
		{name: "unknown field", content: `mial: host: "x"`},
		{name: "bad url", content: `wrapper: distributionUrl: "ftp://example.com/x.zip"`},
		{name: "syntax error", content: `mail: {`},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadInline(tt.content)
			if err == nil {
				t.Fatal("Expected error")
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Errorf("Expected ValidationErrors, got %T: %v", err, err)
			}
		})
	}
}

func TestSchemaRegistry_ListSchemas(t *testing.T) {
	loader := NewLoader()
	if got := loader.schemas.ListSchemas(); !slices.Equal(got, []string{SchemaDefaults}) {
		t.Errorf("ListSchemas() = %v", got)
	}
}

func TestSecretsFromEnvironment(t *testing.T) {
	secrets := SecretsFromEnvironment(MapLookup(map[string]string{
		EnvMailUser:      "mailer",
		EnvNexusPassword: "n3xus",
		EnvBitbucketUser: "",
	}))

	if secrets.MailUser != "mailer" || secrets.NexusPassword != "n3xus" {
		t.Errorf("unexpected secrets %+v", secrets)
	}
	if secrets.BitbucketUser != "" || secrets.GitPrivateSSHKeyPath != "" {
		t.Error("missing values must be empty")
	}

	missing := secrets.Missing()
	if len(missing) != 5 || !slices.Contains(missing, EnvBitbucketUser) {
		t.Errorf("Missing() = %v", missing)
	}
}

func TestSecretsFromEnvironment_Process(t *testing.T) {
	t.Setenv(EnvGitPrivateSSHKeyPath, "/keys/id_rsa")
	secrets := SecretsFromEnvironment(nil)
	if secrets.GitPrivateSSHKeyPath != "/keys/id_rsa" {
		t.Errorf("GitPrivateSSHKeyPath = %q", secrets.GitPrivateSSHKeyPath)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	err := ValidationErrors{{File: "d.cue", Line: 2, Column: 7, Path: "mail.port", Message: "out of range"}}
	if !strings.Contains(err.Error(), "d.cue:2:7: mail.port: out of range") {
		t.Errorf("Error() = %s", err.Error())
	}
}
