package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cochaviz/cloudbuild/internal/build"
)

// Ensure HeadResolver satisfies the commit resolver interface.
var _ build.CommitResolver = (*HeadResolver)(nil)

// HeadResolver resolves the commit checked out in Dir.
type HeadResolver struct {
	// Dir is the repository directory; empty means the working directory.
	Dir string
	// Binary overrides the git executable.
	Binary string
}

// ResolveCommit returns the full hash of HEAD.
func (r *HeadResolver) ResolveCommit(ctx context.Context) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, "rev-parse", "HEAD")
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s not found in PATH; pass the commit explicitly", binary)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git rev-parse HEAD: %s", msg)
		}
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}

	commit := strings.TrimSpace(stdout.String())
	if commit == "" {
		return "", errors.New("git rev-parse HEAD returned no commit")
	}
	return commit, nil
}
