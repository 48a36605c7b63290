package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/openfroyo/projconf/pkg/branch"
	"github.com/openfroyo/projconf/pkg/config"
	"github.com/openfroyo/projconf/pkg/orchestrator"
)

// Check statuses.
const (
	checkOK   = "ok"
	checkWarn = "warn"
	checkFail = "fail"
)

type check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func newDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment of a configuration pass",
		Long: `Check everything a pass depends on without running it:

  - organization defaults load and validate
  - the host version is supported
  - the branch policy compiles and the current branch can be classified
  - secrets are present in the environment
  - the git SSH key parses`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := runChecks(cmd.Context(), config.SecretsFromEnvironment(nil))

			if jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), checks); err != nil {
					return err
				}
			} else {
				for _, c := range checks {
					fmt.Fprintf(cmd.OutOrStdout(), "[%-4s] %-16s %s\n", c.Status, c.Name, c.Detail)
				}
			}

			for _, c := range checks {
				if c.Status == checkFail {
					return errors.New("doctor found problems")
				}
			}
			return nil
		},
	}

	return cmd
}

func runChecks(ctx context.Context, secrets config.Secrets) []check {
	var checks []check

	defaults, err := loadDefaults()
	if err != nil {
		return append(checks, check{Name: "defaults", Status: checkFail, Detail: err.Error()})
	}
	source := "built-in"
	if defaultsPath != "" {
		source = defaultsPath
	}
	checks = append(checks, check{Name: "defaults", Status: checkOK, Detail: source})

	if err := orchestrator.CheckHostVersion(hostVersion, defaults.MinHostVersion); err != nil {
		checks = append(checks, check{Name: "host version", Status: checkFail, Detail: err.Error()})
	} else {
		checks = append(checks, check{Name: "host version", Status: checkOK, Detail: hostVersion})
	}

	checks = append(checks, branchCheck(ctx, defaults))

	if missing := secrets.Missing(); len(missing) > 0 {
		checks = append(checks, check{Name: "secrets", Status: checkWarn, Detail: "missing " + strings.Join(missing, ", ")})
	} else {
		checks = append(checks, check{Name: "secrets", Status: checkOK, Detail: "all set"})
	}

	checks = append(checks, sshKeyCheck(secrets.GitPrivateSSHKeyPath))

	if script := resolveScript(); script == "" {
		checks = append(checks, check{Name: "build script", Status: checkWarn, Detail: "none, pluginId will be empty"})
	} else if _, err := os.Stat(script); err != nil {
		checks = append(checks, check{Name: "build script", Status: checkFail, Detail: err.Error()})
	} else {
		checks = append(checks, check{Name: "build script", Status: checkOK, Detail: script})
	}

	return checks
}

func branchCheck(ctx context.Context, defaults *config.Defaults) check {
	p, err := orchestrator.ResolvePolicy(ctx, nil, defaults, log.Logger)
	if err != nil {
		return check{Name: "branch", Status: checkFail, Detail: err.Error()}
	}
	state, err := branch.NewClassifier(p, log.Logger).Classify(ctx, projectDir)
	if err != nil {
		return check{Name: "branch", Status: checkFail, Detail: err.Error()}
	}
	return check{
		Name:   "branch",
		Status: checkOK,
		Detail: fmt.Sprintf("%s (release: %t, development: %t)", state.Branch, state.Release, state.Development),
	}
}

// sshKeyCheck parses the private key the release plugin will push with.
func sshKeyCheck(path string) check {
	c := check{Name: "ssh key"}
	if path == "" {
		c.Status, c.Detail = checkWarn, config.EnvGitPrivateSSHKeyPath+" not set"
		return c
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.Status, c.Detail = checkFail, err.Error()
		return c
	}

	signer, err := ssh.ParsePrivateKey(data)
	var passphraseErr *ssh.PassphraseMissingError
	switch {
	case errors.As(err, &passphraseErr):
		c.Status, c.Detail = checkWarn, "encrypted key, passphrase required"
		if passphraseErr.PublicKey != nil {
			c.Detail += " (" + ssh.FingerprintSHA256(passphraseErr.PublicKey) + ")"
		}
	case err != nil:
		c.Status, c.Detail = checkFail, fmt.Sprintf("invalid key: %v", err)
	default:
		c.Status = checkOK
		c.Detail = fmt.Sprintf("%s %s", signer.PublicKey().Type(), ssh.FingerprintSHA256(signer.PublicKey()))
	}
	return c
}
