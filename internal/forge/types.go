package forge

// User is the account the token acts as.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Type  string `json:"type"`
}

// Repository is the subset of the repository resource pagesmith reads.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
	Owner         User   `json:"owner"`
}

// CreateRepositoryRequest is the body of POST /user/repos.
type CreateRepositoryRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Private         bool   `json:"private"`
	AutoInit        bool   `json:"auto_init"`
	LicenseTemplate string `json:"license_template,omitempty"`
}

// GitObject is the target of a reference.
type GitObject struct {
	SHA  string `json:"sha"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// Ref is a git reference such as refs/heads/main.
type Ref struct {
	Ref    string    `json:"ref"`
	Object GitObject `json:"object"`
}

// ShaRef is a bare {sha} pointer used for trees and parents.
type ShaRef struct {
	SHA string `json:"sha"`
}

// Commit is a git commit object.
type Commit struct {
	SHA     string   `json:"sha"`
	Message string   `json:"message"`
	Tree    ShaRef   `json:"tree"`
	Parents []ShaRef `json:"parents"`
	HTMLURL string   `json:"html_url,omitempty"`
}

// CreateCommitRequest is the body of POST git/commits.
type CreateCommitRequest struct {
	Message string   `json:"message"`
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`
}

// Blob is a created content object.
type Blob struct {
	SHA string `json:"sha"`
	URL string `json:"url,omitempty"`
}

// Tree entry modes and types used when publishing regular files.
const (
	ModeFile = "100644"
	TypeBlob = "blob"
)

// TreeEntry is one path in a tree creation request.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

// Tree is a created tree object.
type Tree struct {
	SHA  string      `json:"sha"`
	Tree []TreeEntry `json:"tree,omitempty"`
}

// PagesSource selects what GitHub Pages serves.
type PagesSource struct {
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

// Pages build statuses reported by the pages resource.
const (
	PagesStatusBuilt    = "built"
	PagesStatusBuilding = "building"
	PagesStatusErrored  = "errored"
)

// Pages is the GitHub Pages site of a repository.
type Pages struct {
	URL     string      `json:"url"`
	Status  string      `json:"status"`
	HTMLURL string      `json:"html_url"`
	Source  PagesSource `json:"source"`
}
