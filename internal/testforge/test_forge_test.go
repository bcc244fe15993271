package testforge

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/forge"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

func TestTestForge_CreateAndCollide(t *testing.T) {
	ctx := context.Background()
	tf := NewTestForge("Octo")

	repo, err := tf.CreateRepository(ctx, forge.CreateRepositoryRequest{Name: "app", AutoInit: true, LicenseTemplate: "mit"})
	require.NoError(t, err)
	assert.Equal(t, "main", repo.DefaultBranch)
	assert.Equal(t, map[string]string{"README.md": "# app\n", "LICENSE": "MIT License\n"}, tf.Files("app", "main"))

	_, err = tf.CreateRepository(ctx, forge.CreateRepositoryRequest{Name: "app"})
	assert.True(t, stderrors.Is(err, forge.ErrRepositoryExists))

	tf.CollideNext(1)
	_, err = tf.CreateRepository(ctx, forge.CreateRepositoryRequest{Name: "fresh"})
	assert.True(t, stderrors.Is(err, forge.ErrRepositoryExists))
	_, err = tf.CreateRepository(ctx, forge.CreateRepositoryRequest{Name: "fresh"})
	require.NoError(t, err)

	assert.Equal(t, []string{"app", "fresh"}, tf.Repositories())
	assert.Equal(t, 4, tf.Calls(OpCreateRepository))
}

func TestTestForge_GitDataRoundTrip(t *testing.T) {
	ctx := context.Background()
	tf := NewTestForge("octo")
	tf.AddRepository("site")

	ref, err := tf.GetRef(ctx, "octo", "site", "main")
	require.NoError(t, err)
	head, err := tf.GetCommit(ctx, "octo", "site", ref.Object.SHA)
	require.NoError(t, err)

	blob, err := tf.CreateBlob(ctx, "octo", "site", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, plumbing.ComputeHash(plumbing.BlobObject, []byte("hello")).String(), blob.SHA)

	tree, err := tf.CreateTree(ctx, "octo", "site", head.Tree.SHA, []forge.TreeEntry{{Path: "index.html", Mode: forge.ModeFile, Type: forge.TypeBlob, SHA: blob.SHA}})
	require.NoError(t, err)
	commit, err := tf.CreateCommit(ctx, "octo", "site", forge.CreateCommitRequest{Message: "m", Tree: tree.SHA, Parents: []string{head.SHA}})
	require.NoError(t, err)

	_, err = tf.UpdateRef(ctx, "octo", "site", "main", commit.SHA, false)
	require.NoError(t, err)

	files := tf.Files("site", "main")
	assert.Equal(t, "hello", files["index.html"])
	assert.Contains(t, files, "README.md", "base tree entries are kept")

	orphan, err := tf.CreateCommit(ctx, "octo", "site", forge.CreateCommitRequest{Message: "x", Tree: tree.SHA})
	require.NoError(t, err)
	_, err = tf.UpdateRef(ctx, "octo", "site", "main", orphan.SHA, false)
	require.Error(t, err, "non fast-forward update is rejected")
}

func TestTestForge_FailModesAndReadiness(t *testing.T) {
	ctx := context.Background()
	tf := NewTestForge("octo")
	tf.AddRepository("site")

	tf.SetRefNotReady(2)
	for i := 0; i < 2; i++ {
		_, err := tf.GetRef(ctx, "octo", "site", "main")
		assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
	}
	_, err := tf.GetRef(ctx, "octo", "site", "main")
	require.NoError(t, err)

	tf.SetFailMode(OpCurrentUser, FailModeAuth)
	_, err = tf.CurrentUser(ctx)
	assert.True(t, errors.HasCategory(err, errors.CategoryAuth))
}

func TestTestForge_Pages(t *testing.T) {
	ctx := context.Background()
	tf := NewTestForge("Octo")
	tf.AddRepository("site")
	tf.SetPagesBuildAfter(1)

	pages, err := tf.EnablePages(ctx, "octo", "site", forge.PagesSource{Branch: "main", Path: "/"})
	require.NoError(t, err)
	assert.Equal(t, "https://octo.github.io/site/", pages.HTMLURL)

	_, err = tf.EnablePages(ctx, "octo", "site", forge.PagesSource{Branch: "main", Path: "/"})
	assert.True(t, stderrors.Is(err, forge.ErrPagesAlreadyEnabled))

	p, err := tf.GetPages(ctx, "octo", "site")
	require.NoError(t, err)
	assert.Equal(t, forge.PagesStatusBuilding, p.Status)
	p, err = tf.GetPages(ctx, "octo", "site")
	require.NoError(t, err)
	assert.Equal(t, forge.PagesStatusBuilt, p.Status)
}
