// Package testforge provides an in-memory implementation of forge.Client
// that behaves like the GitHub git data API closely enough to exercise the
// publishing pipeline without a network.
package testforge

import (
	"context"
	"crypto/sha1" // #nosec G505 -- fake object ids only
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/pagesmith/internal/forge"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// Operation names one forge.Client method.
type Operation string

const (
	OpCurrentUser      Operation = "current_user"
	OpCreateRepository Operation = "create_repository"
	OpGetRef           Operation = "get_ref"
	OpGetCommit        Operation = "get_commit"
	OpCreateBlob       Operation = "create_blob"
	OpCreateTree       Operation = "create_tree"
	OpCreateCommit     Operation = "create_commit"
	OpUpdateRef        Operation = "update_ref"
	OpEnablePages      Operation = "enable_pages"
	OpGetPages         Operation = "get_pages"
)

// FailMode defines how the test forge should fail an operation.
type FailMode int

const (
	FailModeNone FailMode = iota
	FailModeAuth
	FailModeNetwork
	FailModeNotFound
	FailModeServer
)

type repoState struct {
	repo      forge.Repository
	refs      map[string]string
	commits   map[string]forge.Commit
	trees     map[string]map[string]string // tree sha -> path -> blob sha
	pages     *forge.Pages
	pageReads int
	refReads  int
}

// TestForge is a concurrency-safe fake GitHub account.
type TestForge struct {
	mu sync.Mutex

	owner string
	repos map[string]*repoState
	blobs map[string][]byte

	failModes map[Operation]FailMode
	calls     map[Operation]int
	delay     time.Duration

	collideNext     int
	refNotReadyFor  int
	pagesBuildAfter int
	mangleBlobSHAs  bool

	blobInFlight    int
	maxBlobInFlight int
	seq             int
}

var _ forge.Client = (*TestForge)(nil)

// NewTestForge creates a fake account named owner.
func NewTestForge(owner string) *TestForge {
	return &TestForge{
		owner:     owner,
		repos:     map[string]*repoState{},
		blobs:     map[string][]byte{},
		failModes: map[Operation]FailMode{},
		calls:     map[Operation]int{},
	}
}

// SetFailMode makes every call of op fail in the given way.
func (tf *TestForge) SetFailMode(op Operation, mode FailMode) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.failModes[op] = mode
}

// SetDelay adds artificial latency to every call.
func (tf *TestForge) SetDelay(delay time.Duration) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.delay = delay
}

// CollideNext makes the next n repository creations report a taken name.
func (tf *TestForge) CollideNext(n int) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.collideNext = n
}

// SetRefNotReady makes the first n reads of a new repository's branch fail
// with 404, as GitHub does right after creation.
func (tf *TestForge) SetRefNotReady(n int) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.refNotReadyFor = n
}

// SetPagesBuildAfter makes the Pages status flip to built after n reads.
func (tf *TestForge) SetPagesBuildAfter(n int) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.pagesBuildAfter = n
}

// MangleBlobSHAs makes CreateBlob report ids that do not match the content.
func (tf *TestForge) MangleBlobSHAs(on bool) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.mangleBlobSHAs = on
}

// AddRepository pre-creates an auto-initialised repository, occupying name.
func (tf *TestForge) AddRepository(name string) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.createLocked(forge.CreateRepositoryRequest{Name: name, AutoInit: true})
}

// Calls reports how often op was invoked.
func (tf *TestForge) Calls(op Operation) int {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.calls[op]
}

// MaxConcurrentBlobs reports the highest number of overlapping CreateBlob calls.
func (tf *TestForge) MaxConcurrentBlobs() int {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.maxBlobInFlight
}

// BlobCount reports the number of distinct blobs stored.
func (tf *TestForge) BlobCount() int {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return len(tf.blobs)
}

// Repositories lists repository names sorted by name.
func (tf *TestForge) Repositories() []string {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	names := make([]string, 0, len(tf.repos))
	for n := range tf.repos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Head returns the commit the branch points at.
func (tf *TestForge) Head(repo, branch string) (forge.Commit, bool) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, ok := tf.repos[repo]
	if !ok {
		return forge.Commit{}, false
	}
	c, ok := st.commits[st.refs[branch]]
	return c, ok
}

// Files returns the content of every path in the branch head tree.
func (tf *TestForge) Files(repo, branch string) map[string]string {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, ok := tf.repos[repo]
	if !ok {
		return nil
	}
	tree := st.trees[st.commits[st.refs[branch]].Tree.SHA]
	out := make(map[string]string, len(tree))
	for p, sha := range tree {
		out[p] = string(tf.blobs[sha])
	}
	return out
}

// Pages returns the Pages site of repo, if enabled.
func (tf *TestForge) Pages(repo string) (forge.Pages, bool) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, ok := tf.repos[repo]
	if !ok || st.pages == nil {
		return forge.Pages{}, false
	}
	return *st.pages, true
}

func (tf *TestForge) simulate(ctx context.Context, op Operation) error {
	tf.mu.Lock()
	tf.calls[op]++
	delay := tf.delay
	mode := tf.failModes[op]
	tf.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.NetworkError("request canceled").WithCause(ctx.Err()).Build()
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.NetworkError("request canceled").WithCause(err).Build()
	}

	switch mode {
	case FailModeAuth:
		return apiError(http.StatusUnauthorized, errors.CategoryAuth, `{"message":"Bad credentials"}`)
	case FailModeNetwork:
		return errors.NetworkError("failed to execute forge request").
			WithCause(fmt.Errorf("dial tcp: connection refused")).
			Build()
	case FailModeNotFound:
		return apiError(http.StatusNotFound, errors.CategoryNotFound, `{"message":"Not Found"}`)
	case FailModeServer:
		return apiError(http.StatusInternalServerError, errors.CategoryForge, `{"message":"Server Error"}`)
	default:
		return nil
	}
}

func apiError(code int, category errors.ErrorCategory, body string) error {
	return errors.NewError(category, fmt.Sprintf("forge API error: %d %s", code, http.StatusText(code))).
		WithContext("code", code).
		WithContext("response", body).
		Build()
}

func (tf *TestForge) objectID(parts ...string) string {
	tf.seq++
	h := sha1.New() // #nosec G401 -- fake object ids only
	fmt.Fprintf(h, "%d", tf.seq)
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (tf *TestForge) repoLocked(owner, name string) (*repoState, error) {
	st, ok := tf.repos[name]
	if !ok || !strings.EqualFold(owner, tf.owner) {
		return nil, apiError(http.StatusNotFound, errors.CategoryNotFound, `{"message":"Not Found"}`)
	}
	return st, nil
}

func (tf *TestForge) putBlobLocked(content []byte) string {
	sha := plumbing.ComputeHash(plumbing.BlobObject, content).String()
	tf.blobs[sha] = append([]byte(nil), content...)
	return sha
}

func (tf *TestForge) createLocked(req forge.CreateRepositoryRequest) *repoState {
	st := &repoState{
		repo: forge.Repository{
			ID:            int64(len(tf.repos) + 1),
			Name:          req.Name,
			FullName:      tf.owner + "/" + req.Name,
			Description:   req.Description,
			Private:       req.Private,
			HTMLURL:       "https://github.com/" + tf.owner + "/" + req.Name,
			CloneURL:      "https://github.com/" + tf.owner + "/" + req.Name + ".git",
			DefaultBranch: "main",
			Owner:         forge.User{Login: tf.owner},
		},
		refs:    map[string]string{},
		commits: map[string]forge.Commit{},
		trees:   map[string]map[string]string{},
	}
	if req.AutoInit {
		files := map[string]string{"README.md": tf.putBlobLocked([]byte("# " + req.Name + "\n"))}
		if req.LicenseTemplate != "" {
			files["LICENSE"] = tf.putBlobLocked([]byte(strings.ToUpper(req.LicenseTemplate) + " License\n"))
		}
		treeSHA := tf.objectID("tree")
		st.trees[treeSHA] = files
		commitSHA := tf.objectID("commit", treeSHA)
		st.commits[commitSHA] = forge.Commit{SHA: commitSHA, Message: "Initial commit", Tree: forge.ShaRef{SHA: treeSHA}}
		st.refs["main"] = commitSHA
	}
	tf.repos[req.Name] = st
	return st
}

// CurrentUser implements forge.Client.
func (tf *TestForge) CurrentUser(ctx context.Context) (*forge.User, error) {
	if err := tf.simulate(ctx, OpCurrentUser); err != nil {
		return nil, err
	}
	return &forge.User{Login: tf.owner, ID: 1, Type: "User"}, nil
}

// CreateRepository implements forge.Client.
func (tf *TestForge) CreateRepository(ctx context.Context, req forge.CreateRepositoryRequest) (*forge.Repository, error) {
	if err := tf.simulate(ctx, OpCreateRepository); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()

	_, exists := tf.repos[req.Name]
	if exists || tf.collideNext > 0 {
		if tf.collideNext > 0 {
			tf.collideNext--
		}
		return nil, errors.NewError(errors.CategoryAlreadyExists, forge.ErrRepositoryExists.Message()).
			WithContext("name", req.Name).
			WithContext("code", http.StatusUnprocessableEntity).
			WithContext("response", `{"message":"Repository creation failed.","errors":[{"field":"name","message":"name already exists on this account"}]}`).
			Build()
	}
	st := tf.createLocked(req)
	repo := st.repo
	return &repo, nil
}

// GetRef implements forge.Client.
func (tf *TestForge) GetRef(ctx context.Context, owner, repo, branch string) (*forge.Ref, error) {
	if err := tf.simulate(ctx, OpGetRef); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, err := tf.repoLocked(owner, repo)
	if err != nil {
		return nil, err
	}
	st.refReads++
	sha, ok := st.refs[branch]
	if !ok || st.refReads <= tf.refNotReadyFor {
		return nil, apiError(http.StatusNotFound, errors.CategoryNotFound, `{"message":"Not Found"}`)
	}
	return &forge.Ref{Ref: "refs/heads/" + branch, Object: forge.GitObject{SHA: sha, Type: "commit"}}, nil
}

// GetCommit implements forge.Client.
func (tf *TestForge) GetCommit(ctx context.Context, owner, repo, sha string) (*forge.Commit, error) {
	if err := tf.simulate(ctx, OpGetCommit); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, err := tf.repoLocked(owner, repo)
	if err != nil {
		return nil, err
	}
	c, ok := st.commits[sha]
	if !ok {
		return nil, apiError(http.StatusNotFound, errors.CategoryNotFound, `{"message":"Not Found"}`)
	}
	return &c, nil
}

// CreateBlob implements forge.Client.
func (tf *TestForge) CreateBlob(ctx context.Context, owner, repo string, content []byte) (*forge.Blob, error) {
	tf.mu.Lock()
	tf.blobInFlight++
	if tf.blobInFlight > tf.maxBlobInFlight {
		tf.maxBlobInFlight = tf.blobInFlight
	}
	tf.mu.Unlock()
	defer func() {
		tf.mu.Lock()
		tf.blobInFlight--
		tf.mu.Unlock()
	}()

	if err := tf.simulate(ctx, OpCreateBlob); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	if _, err := tf.repoLocked(owner, repo); err != nil {
		return nil, err
	}
	sha := tf.putBlobLocked(content)
	if tf.mangleBlobSHAs {
		sha = strings.Repeat("0", len(sha))
	}
	return &forge.Blob{SHA: sha}, nil
}

// CreateTree implements forge.Client.
func (tf *TestForge) CreateTree(ctx context.Context, owner, repo, baseTree string, entries []forge.TreeEntry) (*forge.Tree, error) {
	if err := tf.simulate(ctx, OpCreateTree); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, err := tf.repoLocked(owner, repo)
	if err != nil {
		return nil, err
	}

	files := map[string]string{}
	if baseTree != "" {
		base, ok := st.trees[baseTree]
		if !ok {
			return nil, apiError(http.StatusUnprocessableEntity, errors.CategoryForge, `{"message":"base_tree is not a valid tree"}`)
		}
		for p, sha := range base {
			files[p] = sha
		}
	}
	for _, e := range entries {
		if _, ok := tf.blobs[e.SHA]; !ok || e.Type != forge.TypeBlob {
			return nil, apiError(http.StatusUnprocessableEntity, errors.CategoryForge, `{"message":"tree.sha is not a valid blob"}`)
		}
		files[e.Path] = e.SHA
	}

	sha := tf.objectID("tree", baseTree)
	st.trees[sha] = files
	return &forge.Tree{SHA: sha, Tree: entries}, nil
}

// CreateCommit implements forge.Client.
func (tf *TestForge) CreateCommit(ctx context.Context, owner, repo string, req forge.CreateCommitRequest) (*forge.Commit, error) {
	if err := tf.simulate(ctx, OpCreateCommit); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, err := tf.repoLocked(owner, repo)
	if err != nil {
		return nil, err
	}
	if _, ok := st.trees[req.Tree]; !ok {
		return nil, apiError(http.StatusUnprocessableEntity, errors.CategoryForge, `{"message":"Tree SHA does not exist"}`)
	}
	parents := make([]forge.ShaRef, 0, len(req.Parents))
	for _, p := range req.Parents {
		if _, ok := st.commits[p]; !ok {
			return nil, apiError(http.StatusUnprocessableEntity, errors.CategoryForge, `{"message":"Parent SHA does not exist"}`)
		}
		parents = append(parents, forge.ShaRef{SHA: p})
	}
	sha := tf.objectID("commit", req.Tree, req.Message)
	c := forge.Commit{SHA: sha, Message: req.Message, Tree: forge.ShaRef{SHA: req.Tree}, Parents: parents}
	st.commits[sha] = c
	return &c, nil
}

// UpdateRef implements forge.Client. Without force the new commit must have
// the current head as a parent.
func (tf *TestForge) UpdateRef(ctx context.Context, owner, repo, branch, sha string, force bool) (*forge.Ref, error) {
	if err := tf.simulate(ctx, OpUpdateRef); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, err := tf.repoLocked(owner, repo)
	if err != nil {
		return nil, err
	}
	c, ok := st.commits[sha]
	if !ok {
		return nil, apiError(http.StatusUnprocessableEntity, errors.CategoryForge, `{"message":"Object does not exist"}`)
	}
	if current, has := st.refs[branch]; has && !force {
		fastForward := false
		for _, p := range c.Parents {
			if p.SHA == current {
				fastForward = true
			}
		}
		if !fastForward {
			return nil, apiError(http.StatusUnprocessableEntity, errors.CategoryForge, `{"message":"Update is not a fast forward"}`)
		}
	}
	st.refs[branch] = sha
	return &forge.Ref{Ref: "refs/heads/" + branch, Object: forge.GitObject{SHA: sha, Type: "commit"}}, nil
}

// EnablePages implements forge.Client.
func (tf *TestForge) EnablePages(ctx context.Context, owner, repo string, source forge.PagesSource) (*forge.Pages, error) {
	if err := tf.simulate(ctx, OpEnablePages); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, err := tf.repoLocked(owner, repo)
	if err != nil {
		return nil, err
	}
	if st.pages != nil {
		return nil, errors.NewError(errors.CategoryAlreadyExists, forge.ErrPagesAlreadyEnabled.Message()).
			WithContext("code", http.StatusConflict).
			WithContext("response", `{"message":"GitHub Pages is already enabled."}`).
			Build()
	}
	st.pages = &forge.Pages{
		URL:     "https://api.github.com/repos/" + tf.owner + "/" + repo + "/pages",
		Status:  forge.PagesStatusBuilding,
		HTMLURL: "https://" + strings.ToLower(tf.owner) + ".github.io/" + repo + "/",
		Source:  source,
	}
	p := *st.pages
	return &p, nil
}

// GetPages implements forge.Client.
func (tf *TestForge) GetPages(ctx context.Context, owner, repo string) (*forge.Pages, error) {
	if err := tf.simulate(ctx, OpGetPages); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	st, err := tf.repoLocked(owner, repo)
	if err != nil {
		return nil, err
	}
	if st.pages == nil {
		return nil, apiError(http.StatusNotFound, errors.CategoryNotFound, `{"message":"Not Found"}`)
	}
	st.pageReads++
	if st.pageReads > tf.pagesBuildAfter {
		st.pages.Status = forge.PagesStatusBuilt
	}
	p := *st.pages
	return &p, nil
}
