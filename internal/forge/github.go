package forge

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// GitHubClient implements Client against the GitHub REST API v3.
type GitHubClient struct {
	*BaseForge
}

var _ Client = (*GitHubClient)(nil)

// NewGitHubClient creates a GitHub client from the hosting configuration.
func NewGitHubClient(gh config.GitHubConfig) (*GitHubClient, error) {
	if gh.Token == "" {
		return nil, ErrAuthRequired
	}
	apiURL := gh.APIURL
	if apiURL == "" {
		apiURL = config.DefaultGitHubAPIURL
	}
	timeout := gh.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return NewGitHubClientWithHTTP(&http.Client{Timeout: timeout}, apiURL, gh.Token), nil
}

// NewGitHubClientWithHTTP is NewGitHubClient with an explicit HTTP client.
func NewGitHubClientWithHTTP(httpClient *http.Client, apiURL, token string) *GitHubClient {
	base := NewBaseForge(httpClient, apiURL, token)
	base.SetCustomHeader("Accept", "application/vnd.github+json")
	base.SetCustomHeader("X-GitHub-Api-Version", "2022-11-28")
	return &GitHubClient{BaseForge: base}
}

func (c *GitHubClient) call(ctx context.Context, method, endpoint string, body, result any) error {
	req, err := c.NewRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	return c.DoRequest(req, result)
}

func repoPath(owner, repo, suffix string) string {
	return fmt.Sprintf("/repos/%s/%s/%s", owner, repo, strings.TrimPrefix(suffix, "/"))
}

// CurrentUser returns the account the token belongs to.
func (c *GitHubClient) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, err
	}
	if user.Login == "" {
		return nil, errors.ForgeError("identity lookup returned no login").Build()
	}
	return &user, nil
}

// CreateRepository creates a repository owned by the authenticated user.
// A taken name is reported as ErrRepositoryExists.
func (c *GitHubClient) CreateRepository(ctx context.Context, req CreateRepositoryRequest) (*Repository, error) {
	var repo Repository
	err := c.call(ctx, http.MethodPost, "/user/repos", req, &repo)
	if err != nil {
		if errors.HasCategory(err, errors.CategoryAlreadyExists) {
			return nil, errors.NewError(errors.CategoryAlreadyExists, ErrRepositoryExists.Message()).
				WithCause(err).
				WithContext("name", req.Name).
				Build()
		}
		return nil, err
	}
	return &repo, nil
}

// GetRef reads refs/heads/{branch}.
func (c *GitHubClient) GetRef(ctx context.Context, owner, repo, branch string) (*Ref, error) {
	var ref Ref
	if err := c.call(ctx, http.MethodGet, repoPath(owner, repo, "git/ref/heads/"+branch), nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetCommit reads a commit object.
func (c *GitHubClient) GetCommit(ctx context.Context, owner, repo, sha string) (*Commit, error) {
	var commit Commit
	if err := c.call(ctx, http.MethodGet, repoPath(owner, repo, "git/commits/"+sha), nil, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

// CreateBlob uploads content base64-encoded so binary files survive.
func (c *GitHubClient) CreateBlob(ctx context.Context, owner, repo string, content []byte) (*Blob, error) {
	body := map[string]string{
		"content":  base64.StdEncoding.EncodeToString(content),
		"encoding": "base64",
	}
	var blob Blob
	if err := c.call(ctx, http.MethodPost, repoPath(owner, repo, "git/blobs"), body, &blob); err != nil {
		return nil, err
	}
	return &blob, nil
}

// CreateTree creates a tree layered over baseTree.
func (c *GitHubClient) CreateTree(ctx context.Context, owner, repo, baseTree string, entries []TreeEntry) (*Tree, error) {
	body := struct {
		BaseTree string      `json:"base_tree,omitempty"`
		Tree     []TreeEntry `json:"tree"`
	}{BaseTree: baseTree, Tree: entries}
	var tree Tree
	if err := c.call(ctx, http.MethodPost, repoPath(owner, repo, "git/trees"), body, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// CreateCommit creates a commit object; it does not move any ref.
func (c *GitHubClient) CreateCommit(ctx context.Context, owner, repo string, req CreateCommitRequest) (*Commit, error) {
	var commit Commit
	if err := c.call(ctx, http.MethodPost, repoPath(owner, repo, "git/commits"), req, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

// UpdateRef points refs/heads/{branch} at sha.
func (c *GitHubClient) UpdateRef(ctx context.Context, owner, repo, branch, sha string, force bool) (*Ref, error) {
	body := struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}{SHA: sha, Force: force}
	var ref Ref
	if err := c.call(ctx, http.MethodPatch, repoPath(owner, repo, "git/refs/heads/"+branch), body, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// EnablePages creates the Pages site. An existing site is reported as
// ErrPagesAlreadyEnabled.
func (c *GitHubClient) EnablePages(ctx context.Context, owner, repo string, source PagesSource) (*Pages, error) {
	body := struct {
		Source PagesSource `json:"source"`
	}{Source: source}
	var pages Pages
	if err := c.call(ctx, http.MethodPost, repoPath(owner, repo, "pages"), body, &pages); err != nil {
		if StatusCode(err) == http.StatusConflict {
			return nil, errors.NewError(errors.CategoryAlreadyExists, ErrPagesAlreadyEnabled.Message()).
				WithCause(err).
				WithSeverity(errors.SeverityInfo).
				Build()
		}
		return nil, err
	}
	return &pages, nil
}

// GetPages reads the Pages site including its latest build status.
func (c *GitHubClient) GetPages(ctx context.Context, owner, repo string) (*Pages, error) {
	var pages Pages
	if err := c.call(ctx, http.MethodGet, repoPath(owner, repo, "pages"), nil, &pages); err != nil {
		return nil, err
	}
	return &pages, nil
}
