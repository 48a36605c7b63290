package branch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/openfroyo/projconf/pkg/host"
)

var (
	// ErrDetachedHead is returned when HEAD does not point at a branch.
	ErrDetachedHead = errors.New("repository is in detached HEAD state")

	// ErrClosed is returned by queries on a released repository handle.
	ErrClosed = errors.New("repository handle is closed")
)

// Repository is a handle on a git working copy. It must be released with
// Close; queries after Close fail with ErrClosed.
type Repository struct {
	dir      string
	workTree string
	gitBin   string

	mu     sync.Mutex
	closed bool
}

// Open acquires a handle on the working copy containing dir.
func Open(ctx context.Context, dir string) (*Repository, error) {
	return openWith(ctx, "git", dir)
}

func openWith(ctx context.Context, gitBin, dir string) (*Repository, error) {
	if _, err := exec.LookPath(gitBin); err != nil {
		return nil, host.NewEnvironmentError("git executable not found", err).
			WithCode(host.ErrCodeRepository)
	}

	out, err := output(ctx, gitBin, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, host.NewPermanentError(fmt.Sprintf("failed to open git repository at %s", dir), err).
			WithCode(host.ErrCodeRepository)
	}

	return &Repository{
		dir:      dir,
		workTree: strings.TrimSpace(out),
		gitBin:   gitBin,
	}, nil
}

// WorkTree returns the top-level directory of the working copy.
func (r *Repository) WorkTree() string {
	return r.workTree
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	if err := r.checkOpen(); err != nil {
		return "", err
	}

	out, err := output(ctx, r.gitBin, r.workTree, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", host.NewPermanentError("failed to resolve current branch", ErrDetachedHead).
				WithCode(host.ErrCodeRepository)
		}
		return "", host.NewPermanentError("failed to resolve current branch", err).
			WithCode(host.ErrCodeRepository)
	}

	branch := strings.TrimSpace(out)
	if branch == "" {
		return "", host.NewPermanentError("failed to resolve current branch", ErrDetachedHead).
			WithCode(host.ErrCodeRepository)
	}
	return branch, nil
}

// Close releases the handle. Closing twice is a no-op.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Repository) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

// output executes a git command and returns its stdout. Stderr is included
// in the error on failure.
func output(ctx context.Context, gitBin, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, gitBin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
