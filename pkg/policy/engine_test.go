package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openfroyo/projconf/pkg/branch"
)

var _ branch.Policy = (*BranchPolicy)(nil)

func TestPatternBranchPolicy(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	p, err := NewPatternBranchPolicy(context.Background(), branch.DefaultReleasePatterns, branch.DefaultDevelopmentPatterns, logger)
	if err != nil {
		t.Fatalf("Failed to create policy: %v", err)
	}

	tests := []struct {
		branch      string
		release     bool
		development bool
	}{
		{branch: "master", release: true},
		{branch: "release/1.2", release: true},
		{branch: "release/1.2/hotfix"},
		{branch: "feature/JIRA-1", development: true},
		{branch: "bugfix/npe", development: true},
		{branch: "dev", development: true},
		{branch: "hotfix"},
	}

	for _, tt := range tests {
		t.Run(tt.branch, func(t *testing.T) {
			release, err := p.IsRelease(context.Background(), tt.branch)
			if err != nil {
				t.Fatalf("IsRelease() error = %v", err)
			}
			if release != tt.release {
				t.Errorf("IsRelease(%q) = %v, want %v", tt.branch, release, tt.release)
			}

			dev, err := p.IsDevelopment(context.Background(), tt.branch)
			if err != nil {
				t.Fatalf("IsDevelopment() error = %v", err)
			}
			if dev != tt.development {
				t.Errorf("IsDevelopment(%q) = %v, want %v", tt.branch, dev, tt.development)
			}
		})
	}
}

func TestNewBranchPolicy_CustomModule(t *testing.T) {
	module := `package projconf.branches

import rego.v1

release if input.branch == "main"

development if not release
`
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	p, err := NewBranchPolicy(context.Background(), "custom.rego", module, logger)
	if err != nil {
		t.Fatalf("Failed to create policy: %v", err)
	}

	release, err := p.IsRelease(context.Background(), "main")
	if err != nil || !release {
		t.Errorf("Expected main to be a release branch, got %v, %v", release, err)
	}

	// release is undefined for other branches.
	release, err = p.IsRelease(context.Background(), "master")
	if err != nil || release {
		t.Errorf("Expected master not to be a release branch, got %v, %v", release, err)
	}

	dev, err := p.IsDevelopment(context.Background(), "topic")
	if err != nil || !dev {
		t.Errorf("Expected topic to be a development branch, got %v, %v", dev, err)
	}
}

func TestNewBranchPolicy_Errors(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	tests := []struct {
		name    string
		module  string
		wantErr string
	}{
		{
			name:    "syntax error",
			module:  "package projconf.branches\n\nrelease if {",
			wantErr: "failed to parse",
		},
		{
			name:    "wrong package",
			module:  "package other\n\nimport rego.v1\n\nrelease := true\n",
			wantErr: "expected projconf.branches",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBranchPolicy(context.Background(), "bad.rego", tt.module, logger)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBranchPolicy_NonBoolean(t *testing.T) {
	module := `package projconf.branches

import rego.v1

release := "yes"
`
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	p, err := NewBranchPolicy(context.Background(), "str.rego", module, logger)
	if err != nil {
		t.Fatalf("Failed to create policy: %v", err)
	}
	if _, err := p.IsRelease(context.Background(), "master"); err == nil {
		t.Fatal("Expected error for non-boolean rule")
	}
}

func TestLoadBranchPolicy(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	dir := t.TempDir()

	path := filepath.Join(dir, "branches.rego")
	module := "package projconf.branches\n\nimport rego.v1\n\nrelease if startswith(input.branch, \"stable/\")\n"
	if err := os.WriteFile(path, []byte(module), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadBranchPolicy(context.Background(), path, logger)
	if err != nil {
		t.Fatalf("LoadBranchPolicy() error = %v", err)
	}
	if p.Name() != "branches.rego" {
		t.Errorf("Name() = %s", p.Name())
	}

	release, err := p.IsRelease(context.Background(), "stable/2")
	if err != nil || !release {
		t.Errorf("Expected stable/2 to be a release branch, got %v, %v", release, err)
	}

	if _, err := LoadBranchPolicy(context.Background(), filepath.Join(dir, "branches.txt"), logger); err == nil {
		t.Error("Expected error for non-rego file")
	}
	if _, err := LoadBranchPolicy(context.Background(), filepath.Join(dir, "missing.rego"), logger); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestBranchPolicy_DrivesClassifier(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	p, err := NewPatternBranchPolicy(context.Background(), []string{"trunk"}, []string{"wip/*"}, logger)
	if err != nil {
		t.Fatal(err)
	}

	state, err := branch.NewClassifier(p, logger).ClassifyName(context.Background(), "wip/x")
	if err != nil {
		t.Fatalf("ClassifyName() error = %v", err)
	}
	if state.Release || !state.Development {
		t.Errorf("unexpected state %+v", state)
	}
}
