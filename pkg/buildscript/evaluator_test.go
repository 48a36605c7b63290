package buildscript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/projconf/pkg/host"
)

func newProject(t *testing.T) *host.Project {
	t.Helper()
	registry := host.NewPluginRegistry()
	if err := registry.Register(host.PluginFunc{Name: "idea", Fn: func(context.Context, *host.Project) error { return nil }}); err != nil {
		t.Fatal(err)
	}
	h := host.NewHost("6.4.1", registry, zerolog.Nop())
	p, err := h.NewProject(host.ProjectOptions{Name: "payments", Dir: t.TempDir(), UserHome: "/home/ci"})
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	return p
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		checkFunc func(*testing.T, *host.Project, *Result)
		wantErr   string
	}{
		{
			name:   "string property",
			script: `pluginId = "payments-plugin"`,
			checkFunc: func(t *testing.T, p *host.Project, r *Result) {
				got, err := p.Extra().NonBlankString("pluginId")
				if err != nil || got != "payments-plugin" {
					t.Errorf("pluginId = %q, %v", got, err)
				}
			},
		},
		{
			name:   "project struct",
			script: `pluginId = project.name + "-plugin"` + "\n" + `out = project.build_dir`,
			checkFunc: func(t *testing.T, p *host.Project, r *Result) {
				got, _ := p.Extra().NonBlankString("pluginId")
				if got != "payments-plugin" {
					t.Errorf("pluginId = %q", got)
				}
				out, _ := p.Extra().Get("out")
				if out != p.BuildDir {
					t.Errorf("out = %v, want %s", out, p.BuildDir)
				}
			},
		},
		{
			name: "private names and functions are not exported",
			script: `
_secret = "x"

def name(n):
    return "svc-" + n

pluginId = name("a")
`,
			checkFunc: func(t *testing.T, p *host.Project, r *Result) {
				if strings.Join(r.Properties, ",") != "pluginId" {
					t.Errorf("Properties = %v", r.Properties)
				}
				if p.Extra().Has("_secret") || p.Extra().Has("name") {
					t.Error("Expected private names and functions to be skipped")
				}
			},
		},
		{
			name: "collections",
			script: `
tags = ["a", "b"]
meta = {"owner": "team", "tier": 1}
pair = ("x", True)
`,
			checkFunc: func(t *testing.T, p *host.Project, r *Result) {
				tags, _ := p.Extra().Get("tags")
				if list, ok := tags.([]interface{}); !ok || len(list) != 2 || list[1] != "b" {
					t.Errorf("tags = %#v", tags)
				}
				meta, _ := p.Extra().Get("meta")
				if m, ok := meta.(map[string]interface{}); !ok || m["tier"] != int64(1) {
					t.Errorf("meta = %#v", meta)
				}
				pair, _ := p.Extra().Get("pair")
				if list, ok := pair.([]interface{}); !ok || list[1] != true {
					t.Errorf("pair = %#v", pair)
				}
			},
		},
		{
			name:   "apply plugin",
			script: `apply("idea")` + "\n" + `has_idea = has_plugin("idea")`,
			checkFunc: func(t *testing.T, p *host.Project, r *Result) {
				if !p.Plugins().HasPlugin("idea") {
					t.Error("Expected idea to be applied")
				}
				v, _ := p.Extra().Get("has_idea")
				if v != true {
					t.Errorf("has_idea = %v", v)
				}
				if strings.Join(r.Applied, ",") != "idea" {
					t.Errorf("Applied = %v", r.Applied)
				}
			},
		},
		{
			name:    "unknown plugin",
			script:  `apply("nope")`,
			wantErr: "nope",
		},
		{
			name:    "syntax error",
			script:  `pluginId = `,
			wantErr: "build script build.star failed",
		},
		{
			name:    "runtime error",
			script:  `x = 1 + "a"`,
			wantErr: "unknown binary op",
		},
		{
			name:    "non-string dict key",
			script:  `m = {1: "a"}`,
			wantErr: "dict key must be string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject(t)
			e := NewEvaluator(5*time.Second, zerolog.Nop())

			result, err := e.Evaluate(context.Background(), p, "build.star", []byte(tt.script))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				if host.CodeOf(err) != host.ErrCodeValidation {
					t.Errorf("Expected code %s, got %s", host.ErrCodeValidation, host.CodeOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			tt.checkFunc(t, p, result)
		})
	}
}

func TestEvaluate_Timeout(t *testing.T) {
	p := newProject(t)
	e := NewEvaluator(100*time.Millisecond, zerolog.Nop())

	script := `
def spin():
    total = 0
    for i in range(100000000):
        total += i
    return total

out = spin()
`
	_, err := e.Evaluate(context.Background(), p, "build.star", []byte(script))
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if p.Extra().Has("out") {
		t.Error("Expected no properties from a cancelled script")
	}
}

func TestEvaluate_Print(t *testing.T) {
	p := newProject(t)
	e := NewEvaluator(0, zerolog.Nop())

	result, err := e.Evaluate(context.Background(), p, "build.star", []byte("print(\"hello\")\ndone = True\n"))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Properties) != 1 {
		t.Errorf("Properties = %v", result.Properties)
	}
}

func TestEvaluateFile(t *testing.T) {
	p := newProject(t)
	e := NewEvaluator(0, zerolog.Nop())

	path := filepath.Join(t.TempDir(), "build.star")
	if err := os.WriteFile(path, []byte(`pluginId = "from-file"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.EvaluateFile(context.Background(), p, path); err != nil {
		t.Fatalf("EvaluateFile() error = %v", err)
	}
	if got, _ := p.Extra().NonBlankString("pluginId"); got != "from-file" {
		t.Errorf("pluginId = %q", got)
	}

	if _, err := e.EvaluateFile(context.Background(), p, filepath.Join(t.TempDir(), "missing.star")); err == nil {
		t.Error("Expected error for missing script")
	}
}
