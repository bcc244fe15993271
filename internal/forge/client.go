// Package forge talks to the GitHub REST API on behalf of the pipeline:
// account lookup, repository creation, the low-level git data primitives
// used to publish a commit, and GitHub Pages management.
package forge

import "context"

// Client is the hosting API surface the pipeline depends on.
type Client interface {
	CurrentUser(ctx context.Context) (*User, error)
	CreateRepository(ctx context.Context, req CreateRepositoryRequest) (*Repository, error)

	GetRef(ctx context.Context, owner, repo, branch string) (*Ref, error)
	GetCommit(ctx context.Context, owner, repo, sha string) (*Commit, error)
	CreateBlob(ctx context.Context, owner, repo string, content []byte) (*Blob, error)
	CreateTree(ctx context.Context, owner, repo, baseTree string, entries []TreeEntry) (*Tree, error)
	CreateCommit(ctx context.Context, owner, repo string, req CreateCommitRequest) (*Commit, error)
	UpdateRef(ctx context.Context, owner, repo, branch, sha string, force bool) (*Ref, error)

	EnablePages(ctx context.Context, owner, repo string, source PagesSource) (*Pages, error)
	GetPages(ctx context.Context, owner, repo string) (*Pages, error)
}
