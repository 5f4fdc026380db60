// Package github provides GitHub repository operations through the gh
// CLI, which handles authentication and API plumbing. All gh calls go
// through the CmdRunner interface so tests can run without the binary.
package github

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CmdRunner provides gh command execution. Interface for testing.
type CmdRunner interface {
	Run(args ...string) (string, error)
}

// ExecRunner runs gh commands via exec.
type ExecRunner struct{}

func (r *ExecRunner) Run(args ...string) (string, error) {
	cmd := exec.Command("gh", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("gh %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Client provides GitHub repository operations.
type Client struct {
	cmd   CmdRunner
	login string // cached authenticated user, resolved lazily
}

// NewClient creates a GitHub client.
func NewClient(cmd CmdRunner) *Client {
	return &Client{cmd: cmd}
}

// Repo is the metadata surface repodeck needs from a repository.
type Repo struct {
	Name          string `json:"name"`
	NameWithOwner string `json:"nameWithOwner"`
	Description   string `json:"description"`
	URL           string `json:"url"`
	SSHURL        string `json:"sshUrl"`
	IsPrivate     bool   `json:"isPrivate"`
	IsFork        bool   `json:"isFork"`
	DefaultBranch struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`
	UpdatedAt string `json:"updatedAt"`
}

// CloneURL returns the HTTPS clone URL for the repository.
func (r Repo) CloneURL() string {
	return r.URL + ".git"
}

// Commit is one entry of a repository's commit history.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	URL     string `json:"html_url"`
}

// PullRequest is one entry of a repository's pull request list.
type PullRequest struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	Author    string `json:"author"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	URL       string `json:"url"`
	Base      string `json:"base"`
	Head      string `json:"head"`
}

const repoJSONFields = "name,nameWithOwner,description,url,sshUrl,isPrivate,isFork,defaultBranchRef,updatedAt"

// Login returns the authenticated user's login, caching the first lookup.
func (c *Client) Login() (string, error) {
	if c.login != "" {
		return c.login, nil
	}
	out, err := c.cmd.Run("api", "user", "--jq", ".login")
	if err != nil {
		return "", fmt.Errorf("resolve authenticated user: %w", err)
	}
	c.login = out
	return c.login, nil
}

// fullName qualifies a bare repository name with the authenticated user.
func (c *Client) fullName(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	login, err := c.Login()
	if err != nil {
		return "", err
	}
	return login + "/" + name, nil
}

// ListRepos returns the authenticated user's repositories.
func (c *Client) ListRepos(limit int) ([]Repo, error) {
	if limit <= 0 {
		limit = 100
	}
	out, err := c.cmd.Run("repo", "list", "--json", repoJSONFields, "--limit", strconv.Itoa(limit))
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	var repos []Repo
	if err := json.Unmarshal([]byte(out), &repos); err != nil {
		return nil, fmt.Errorf("parse repository list JSON: %w", err)
	}
	return repos, nil
}

// GetRepo fetches one repository by name or owner/name.
func (c *Client) GetRepo(name string) (*Repo, error) {
	out, err := c.cmd.Run("repo", "view", name, "--json", repoJSONFields)
	if err != nil {
		if isNotFound(out) {
			return nil, fmt.Errorf("repository not found: %s", name)
		}
		return nil, fmt.Errorf("view repository %s: %w", name, err)
	}
	var repo Repo
	if err := json.Unmarshal([]byte(out), &repo); err != nil {
		return nil, fmt.Errorf("parse repository JSON: %w", err)
	}
	return &repo, nil
}

// Readme returns the decoded README content of a repository. A repository
// without a README yields ("", nil): that is not an error.
func (c *Client) Readme(name string) (string, error) {
	full, err := c.fullName(name)
	if err != nil {
		return "", err
	}
	out, err := c.cmd.Run("api", "repos/"+full+"/readme", "--jq", ".content")
	if err != nil {
		if isNotFound(out) {
			return "", nil
		}
		return "", fmt.Errorf("fetch README for %s: %w", full, err)
	}
	// The API returns base64 with embedded newlines.
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode README content: %w", err)
	}
	return string(decoded), nil
}

// Commits returns up to limit commits on a branch (the default branch when
// branch is empty).
func (c *Client) Commits(name, branch string, limit int) ([]Commit, error) {
	full, err := c.fullName(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 30
	}
	endpoint := fmt.Sprintf("repos/%s/commits?per_page=%d", full, limit)
	if branch != "" {
		endpoint += "&sha=" + branch
	}

	out, err := c.cmd.Run("api", endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch commits for %s: %w", full, err)
	}

	var raw []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse commits JSON: %w", err)
	}

	commits := make([]Commit, 0, len(raw))
	for _, r := range raw {
		author := r.Commit.Author.Name
		if author == "" {
			author = "Unknown"
		}
		commits = append(commits, Commit{
			SHA:     r.SHA,
			Message: r.Commit.Message,
			Author:  author,
			Date:    r.Commit.Author.Date,
			URL:     r.HTMLURL,
		})
	}
	return commits, nil
}

// validPRStates is the set of allowed state filters for PullRequests.
var validPRStates = map[string]bool{
	"open":   true,
	"closed": true,
	"merged": true,
	"all":    true,
}

// PullRequests lists a repository's pull requests filtered by state
// ("open", "closed", "merged", or "all").
func (c *Client) PullRequests(name, state string, limit int) ([]PullRequest, error) {
	full, err := c.fullName(name)
	if err != nil {
		return nil, err
	}
	if state == "" {
		state = "all"
	}
	if !validPRStates[state] {
		return nil, fmt.Errorf("invalid PR state %q: must be open, closed, merged, or all", state)
	}
	if limit <= 0 {
		limit = 30
	}

	out, err := c.cmd.Run("pr", "list", "--repo", full, "--state", state,
		"--json", "number,title,state,author,createdAt,updatedAt,url,baseRefName,headRefName",
		"--limit", strconv.Itoa(limit))
	if err != nil {
		return nil, fmt.Errorf("list pull requests for %s: %w", full, err)
	}

	var raw []struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
		Author struct {
			Login string `json:"login"`
		} `json:"author"`
		CreatedAt   string `json:"createdAt"`
		UpdatedAt   string `json:"updatedAt"`
		URL         string `json:"url"`
		BaseRefName string `json:"baseRefName"`
		HeadRefName string `json:"headRefName"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse pull request JSON: %w", err)
	}

	prs := make([]PullRequest, 0, len(raw))
	for _, r := range raw {
		author := r.Author.Login
		if author == "" {
			author = "Unknown"
		}
		prs = append(prs, PullRequest{
			Number:    r.Number,
			Title:     r.Title,
			State:     r.State,
			Author:    author,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			URL:       r.URL,
			Base:      r.BaseRefName,
			Head:      r.HeadRefName,
		})
	}
	return prs, nil
}

// CreateRepoOpts holds options for creating a repository.
type CreateRepoOpts struct {
	Name        string
	Description string
	Private     bool
	AddReadme   bool
}

// CreateRepo creates a repository for the authenticated user and returns
// its metadata.
func (c *Client) CreateRepo(opts CreateRepoOpts) (*Repo, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("repository name is required")
	}
	args := []string{"repo", "create", opts.Name}
	if opts.Description != "" {
		args = append(args, "--description", opts.Description)
	}
	if opts.Private {
		args = append(args, "--private")
	} else {
		args = append(args, "--public")
	}
	if opts.AddReadme {
		args = append(args, "--add-readme")
	}

	if _, err := c.cmd.Run(args...); err != nil {
		return nil, fmt.Errorf("create repository %s: %w", opts.Name, err)
	}
	return c.GetRepo(opts.Name)
}

// RenameRepo renames a repository and returns its updated metadata. The
// local clone's remote is not touched here; callers pair this with
// gitx.SetRemoteURL.
func (c *Client) RenameRepo(name, newName string) (*Repo, error) {
	full, err := c.fullName(name)
	if err != nil {
		return nil, err
	}
	if _, err := c.cmd.Run("repo", "rename", newName, "--repo", full, "--yes"); err != nil {
		return nil, fmt.Errorf("rename repository %s: %w", full, err)
	}

	owner := full[:strings.Index(full, "/")]
	return c.GetRepo(owner + "/" + newName)
}

// DeleteRepo deletes a repository. Destructive; callers must confirm with
// the user first.
func (c *Client) DeleteRepo(name string) error {
	full, err := c.fullName(name)
	if err != nil {
		return err
	}
	if _, err := c.cmd.Run("repo", "delete", full, "--yes"); err != nil {
		return fmt.Errorf("delete repository %s: %w", full, err)
	}
	return nil
}

// isNotFound recognizes gh's 404 output.
func isNotFound(out string) bool {
	return strings.Contains(out, "Not Found") || strings.Contains(out, "HTTP 404") || strings.Contains(out, "Could not resolve")
}
