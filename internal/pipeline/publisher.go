package pipeline

import (
	"context"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/forge"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
)

// Publish steps, reported in the "step" context of a publish error.
const (
	StepReadHead     = "get_ref"
	StepReadCommit   = "get_commit"
	StepCreateBlobs  = "create_blobs"
	StepVerifyBlob   = "verify_blob"
	StepCreateTree   = "create_tree"
	StepCreateCommit = "create_commit"
	StepUpdateRef    = "update_ref"
)

// ErrEmptyFileSet is returned when there is nothing to publish.
var ErrEmptyFileSet = errors.PublishError("nothing to publish").Build()

// Publisher writes a FileSet as one commit on top of the branch head using
// the git data API.
type Publisher struct {
	client      forge.Client
	message     string
	concurrency int
	recorder    metrics.Recorder
	logger      *slog.Logger
}

// NewPublisher creates a publisher on client.
func NewPublisher(client forge.Client, cfg config.PublishConfig, recorder metrics.Recorder, logger *slog.Logger) *Publisher {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = config.DefaultCommitMessage
	}
	if cfg.BlobConcurrency <= 0 {
		cfg.BlobConcurrency = 1
	}
	return &Publisher{
		client:      client,
		message:     cfg.CommitMessage,
		concurrency: cfg.BlobConcurrency,
		recorder:    recorder,
		logger:      logger,
	}
}

func publishError(step string, err error) error {
	return errors.WrapError(err, errors.CategoryPublish, "failed to publish files").
		WithContext("step", step).
		Build()
}

// Publish reads the head, uploads every file as a blob, layers a tree over
// the head tree, commits it with the head as parent and fast-forwards the
// branch. Blobs already uploaded when a later step fails are left behind.
func (p *Publisher) Publish(ctx context.Context, h *RepositoryHandle, files FileSet) (CommitResult, error) {
	if len(files) == 0 {
		return CommitResult{}, ErrEmptyFileSet
	}

	ref, err := p.client.GetRef(ctx, h.Owner, h.Name, h.DefaultBranch)
	if err != nil {
		return CommitResult{}, publishError(StepReadHead, err)
	}
	head := ref.Object.SHA

	commit, err := p.client.GetCommit(ctx, h.Owner, h.Name, head)
	if err != nil {
		return CommitResult{}, publishError(StepReadCommit, err)
	}
	baseTree := commit.Tree.SHA

	shas, err := p.createBlobs(ctx, h, files)
	if err != nil {
		return CommitResult{}, err
	}

	entries := make([]forge.TreeEntry, len(files))
	for i, f := range files {
		entries[i] = forge.TreeEntry{Path: f.Path, Mode: forge.ModeFile, Type: forge.TypeBlob, SHA: shas[i]}
	}
	tree, err := p.client.CreateTree(ctx, h.Owner, h.Name, baseTree, entries)
	if err != nil {
		return CommitResult{}, publishError(StepCreateTree, err)
	}

	created, err := p.client.CreateCommit(ctx, h.Owner, h.Name, forge.CreateCommitRequest{
		Message: p.message,
		Tree:    tree.SHA,
		Parents: []string{head},
	})
	if err != nil {
		return CommitResult{}, publishError(StepCreateCommit, err)
	}

	if _, err := p.client.UpdateRef(ctx, h.Owner, h.Name, h.DefaultBranch, created.SHA, false); err != nil {
		return CommitResult{}, publishError(StepUpdateRef, err)
	}
	h.HeadSHA = created.SHA

	p.logger.Info("Files published",
		logfields.Repository(h.FullName()),
		logfields.Commit(created.SHA),
		slog.Int("files", len(files)))

	return CommitResult{SHA: created.SHA, TreeSHA: tree.SHA, ParentSHA: head, Files: len(files)}, nil
}

// createBlobs uploads files concurrently and returns their ids in file order.
// Every id is checked against the locally computed git object hash.
func (p *Publisher) createBlobs(ctx context.Context, h *RepositoryHandle, files FileSet) ([]string, error) {
	shas := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, f := range files {
		g.Go(func() error {
			blob, err := p.client.CreateBlob(gctx, h.Owner, h.Name, f.Content)
			if err != nil {
				return errors.WrapError(err, errors.CategoryPublish, "failed to publish files").
					WithContext("step", StepCreateBlobs).
					WithContext("path", f.Path).
					Build()
			}
			want := plumbing.ComputeHash(plumbing.BlobObject, f.Content).String()
			if blob.SHA != want {
				return errors.PublishError("blob id does not match content").
					WithContext("step", StepVerifyBlob).
					WithContext("path", f.Path).
					WithContext("expected", want).
					WithContext("actual", blob.SHA).
					Build()
			}
			shas[i] = blob.SHA
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.recorder.AddBlobsCreated(len(files))
	return shas, nil
}
