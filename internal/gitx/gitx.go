// Package gitx wraps local git commands. Commands run as argv vectors,
// never through a shell, and every command carries a timeout.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a single git command.
const DefaultTimeout = 60 * time.Second

// Runner executes git commands. Interface for testing.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecGit implements Runner using exec.Command.
type ExecGit struct {
	Timeout time.Duration // zero means DefaultTimeout
}

func (g ExecGit) Run(ctx context.Context, dir string, args ...string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("git %s: timed out after %s", strings.Join(args, " "), timeout)
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("git not found in PATH: %w", err)
		}
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Client provides repository operations over a Runner.
type Client struct {
	git Runner
	log *slog.Logger
}

// NewClient creates a Client. A nil runner defaults to ExecGit and a nil
// logger to slog.Default().
func NewClient(git Runner, log *slog.Logger) *Client {
	if git == nil {
		git = ExecGit{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{git: git, log: log}
}

// RepoNameFromURL derives a repository name from a clone URL: the last
// path segment with any .git suffix removed.
func RepoNameFromURL(url string) string {
	trimmed := strings.TrimRight(url, "/")
	name := trimmed[strings.LastIndex(trimmed, "/")+1:]
	return strings.TrimSuffix(name, ".git")
}

// Clone clones url into dest, optionally checking out branch. The
// destination must not already exist; its parent is created as needed.
func (c *Client) Clone(ctx context.Context, url, dest, branch string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("destination already exists: %s", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	args := []string{"clone", url, dest}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	if _, err := c.git.Run(ctx, "", args...); err != nil {
		return err
	}
	c.log.Info("cloned repository", "url", url, "dest", dest)
	return nil
}

// IsRepo reports whether path is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context, path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	out, err := c.git.Run(ctx, path, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// requireRepo returns an error when path is not a git repository.
func (c *Client) requireRepo(ctx context.Context, path string) error {
	if !c.IsRepo(ctx, path) {
		return fmt.Errorf("not a git repository: %s", path)
	}
	return nil
}

// Branches lists the local branches of the repository at path.
func (c *Client) Branches(ctx context.Context, path string) ([]string, error) {
	if err := c.requireRepo(ctx, path); err != nil {
		return nil, err
	}
	out, err := c.git.Run(ctx, path, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		if b := strings.TrimSpace(line); b != "" {
			branches = append(branches, b)
		}
	}
	return branches, nil
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context, path string) (string, error) {
	if err := c.requireRepo(ctx, path); err != nil {
		return "", err
	}
	return c.git.Run(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
}

// Checkout switches to branch, creating it first when create is true.
func (c *Client) Checkout(ctx context.Context, path, branch string, create bool) error {
	if err := c.requireRepo(ctx, path); err != nil {
		return err
	}
	args := []string{"checkout"}
	if create {
		args = append(args, "-b")
	}
	args = append(args, branch)
	if _, err := c.git.Run(ctx, path, args...); err != nil {
		return err
	}
	c.log.Info("checked out branch", "path", path, "branch", branch, "created", create)
	return nil
}

// SetRemoteURL points the origin remote at url. Called after a repository
// has been renamed on the hosting side.
func (c *Client) SetRemoteURL(ctx context.Context, path, url string) error {
	if err := c.requireRepo(ctx, path); err != nil {
		return err
	}
	_, err := c.git.Run(ctx, path, "remote", "set-url", "origin", url)
	return err
}

// RenameFolder renames the local repository folder in place and returns
// the new path.
func RenameFolder(oldPath, newName string) (string, error) {
	if _, err := os.Stat(oldPath); err != nil {
		return "", fmt.Errorf("path does not exist: %s", oldPath)
	}
	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if _, err := os.Stat(newPath); err == nil {
		return "", fmt.Errorf("new path already exists: %s", newPath)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("rename repository folder: %w", err)
	}
	return newPath, nil
}
