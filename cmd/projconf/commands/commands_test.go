package commands

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/openfroyo/projconf/pkg/branch"
	"github.com/openfroyo/projconf/pkg/stores"
	"github.com/openfroyo/projconf/pkg/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "none", "now")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPluginsCommand(t *testing.T) {
	out, err := execute(t, "plugins")
	if err != nil {
		t.Fatalf("plugins failed: %v", err)
	}
	for _, want := range []string{"* release", "* java-gradle-plugin", "  java\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestBranchCommand_Name(t *testing.T) {
	out, err := execute(t, "branch", "feature/PAY-1", "--json")
	if err != nil {
		t.Fatalf("branch failed: %v", err)
	}

	var state branch.State
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if state.Release || !state.Development {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestConfigureCommand(t *testing.T) {
	dir := testutil.GitRepo(t, "feature/x")
	if err := os.WriteFile(filepath.Join(dir, "build.star"), []byte(`pluginId = "widget"`), 0o644); err != nil {
		t.Fatal(err)
	}
	textfile := filepath.Join(t.TempDir(), "projconf.prom")

	out, err := execute(t, "configure", "--dir", dir, "--metrics-textfile", textfile)
	if err != nil {
		t.Fatalf("configure failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Branch:   feature/x (release: false, development: true)") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(textfile); err != nil {
		t.Errorf("Expected metrics textfile: %v", err)
	}
}

func TestGraphCommand(t *testing.T) {
	dir := testutil.GitRepo(t, "develop")

	out, err := execute(t, "graph", "--dir", dir, "--script", writeBuildScript(t))
	if err != nil {
		t.Fatalf("graph failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "digraph") || !strings.Contains(out, `"checkChangelog" -> "build"`) {
		t.Errorf("unexpected DOT:\n%s", out)
	}
}

func TestConfigureCommand_OldHost(t *testing.T) {
	_, err := execute(t, "configure", "--dir", t.TempDir(), "--host-version", "6.3")
	if err == nil || !strings.Contains(err.Error(), "host version >= 6.4.1 is required") {
		t.Fatalf("Expected host version failure, got %v", err)
	}
}

func writeBuildScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.star")
	if err := os.WriteFile(path, []byte(`pluginId = "widget"`), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSSHKeyCheck(t *testing.T) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(key, "")
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	valid := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(valid, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}
	invalid := filepath.Join(dir, "garbage")
	if err := os.WriteFile(invalid, []byte("not a key"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		status string
	}{
		{name: "unset", path: "", status: checkWarn},
		{name: "valid", path: valid, status: checkOK},
		{name: "invalid", path: invalid, status: checkFail},
		{name: "missing", path: filepath.Join(dir, "missing"), status: checkFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sshKeyCheck(tt.path)
			if c.Status != tt.status {
				t.Errorf("status = %s (%s), want %s", c.Status, c.Detail, tt.status)
			}
		})
	}
}

func TestHistoryCommand(t *testing.T) {
	dir := testutil.GitRepo(t, "release/1.0")
	db := filepath.Join(t.TempDir(), "history.db")

	if out, err := execute(t, "configure", "--dir", dir, "--history", db); err != nil {
		t.Fatalf("configure failed: %v\n%s", err, out)
	}
	if _, err := execute(t, "configure", "--dir", t.TempDir(), "--history", db, "--host-version", "6.3"); err == nil {
		t.Fatal("Expected host version failure")
	}

	out, err := execute(t, "history", "--history", db, "--json")
	if err != nil {
		t.Fatalf("history failed: %v\n%s", err, out)
	}
	var passes []stores.PassRecord
	if err := json.Unmarshal([]byte(out), &passes); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(passes) != 2 {
		t.Fatalf("Expected 2 passes, got %d", len(passes))
	}

	var succeeded *stores.PassRecord
	for i := range passes {
		if passes[i].Status == stores.PassStatusSucceeded {
			succeeded = &passes[i]
		} else if passes[i].ErrorCode == nil || *passes[i].ErrorCode != "UNSUPPORTED_HOST_VERSION" {
			t.Errorf("unexpected failed pass %+v", passes[i])
		}
	}
	if succeeded == nil || succeeded.Branch != "release/1.0" || !succeeded.Release {
		t.Fatalf("unexpected passes %+v", passes)
	}

	out, err = execute(t, "history", "--history", db, succeeded.ID)
	if err != nil {
		t.Fatalf("history show failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Steps:    publish, git-expired-branches, release") {
		t.Errorf("unexpected output:\n%s", out)
	}
	// No changelog edge on a release branch.
	if strings.Contains(out, "Edge:     build -> checkChangelog") {
		t.Errorf("unexpected changelog edge:\n%s", out)
	}

	out, err = execute(t, "history", "--history", db, "--failed")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "failed (UNSUPPORTED_HOST_VERSION)") || strings.Contains(out, "release/1.0") {
		t.Errorf("unexpected failed listing:\n%s", out)
	}
}

func TestHistoryCommand_RequiresDatabase(t *testing.T) {
	if _, err := execute(t, "history"); err == nil || !strings.Contains(err.Error(), "--history is required") {
		t.Fatalf("Expected missing --history error, got %v", err)
	}
}
