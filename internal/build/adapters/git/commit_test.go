package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, out)
	}
}

func TestResolveCommit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "-c", "user.name=test", "-c", "user.email=test@example.com", "commit", "-q", "--allow-empty", "-m", "initial")

	commit, err := (&HeadResolver{Dir: dir}).ResolveCommit(context.Background())
	if err != nil {
		t.Fatalf("ResolveCommit() error = %v", err)
	}
	if len(commit) < 40 {
		t.Fatalf("ResolveCommit() = %q, want a full hash", commit)
	}
}

func TestResolveCommitOutsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

	if _, err := (&HeadResolver{Dir: dir}).ResolveCommit(context.Background()); err == nil {
		t.Fatal("ResolveCommit() error = nil, want non-nil")
	}
}

func TestResolveCommitMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := (&HeadResolver{Binary: "definitely-not-git-binary"}).ResolveCommit(context.Background())
	if err == nil {
		t.Fatal("ResolveCommit() error = nil, want non-nil")
	}
}
