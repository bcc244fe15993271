package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kong.Name("pagesmith"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	return parser
}

func TestCLI_DefaultsToServe(t *testing.T) {
	cli := &CLI{}
	ctx, err := newParser(t, cli).Parse([]string{})
	require.NoError(t, err)
	assert.Equal(t, "serve", ctx.Command())
}

func TestCLI_RunsFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	cli := &CLI{}
	ctx, err := newParser(t, cli).Parse([]string{"runs", "--journal", path, "-n", "5", "--json"})
	require.NoError(t, err)
	assert.Equal(t, "runs", ctx.Command())
	assert.Equal(t, path, cli.Runs.Journal)
	assert.Equal(t, 5, cli.Runs.Limit)
	assert.True(t, cli.Runs.JSON)
}

func TestRunsCmd_ReadsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	journal, err := eventstore.OpenJournal(context.Background(), path, slog.Default())
	require.NoError(t, err)
	ev, err := eventstore.NewRunStarted("run-1", eventstore.RunStartedPayload{Task: "demo", Round: "1"})
	require.NoError(t, err)
	require.NoError(t, journal.Record(context.Background(), ev))
	require.NoError(t, journal.Close())

	for _, asJSON := range []bool{false, true} {
		cmd := &RunsCmd{Journal: path, Limit: 10, JSON: asJSON}
		require.NoError(t, cmd.Run(&Global{Logger: slog.Default()}, &CLI{}))
	}
}

func TestRunCmd_RejectsInvalidRequest(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("LLM_API_KEY", "key")
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("EVALUATION_URL", "https://eval.example.com/notify")

	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"email":"a@b.c","task":"demo"}`), 0o600))

	err := (&RunCmd{Request: path}).Run(&Global{Logger: slog.Default()}, &CLI{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}
