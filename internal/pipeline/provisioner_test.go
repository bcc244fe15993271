package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/reponame"
	"git.home.luguber.info/inful/pagesmith/internal/testforge"
)

func TestProvision_CreatesRepository(t *testing.T) {
	tf := testforge.NewTestForge("Octo")
	sleeper := &recordingSleeper{}
	p := newTestProvisioner(tf, metrics.NewMemoryRecorder(), sleeper)

	h, err := p.Provision(context.Background(), "Captcha Solver", "desc")
	require.NoError(t, err)

	assert.Equal(t, "Octo", h.Owner)
	assert.Equal(t, "captcha-solver-20250304050607", h.Name)
	assert.Equal(t, "main", h.DefaultBranch)
	assert.Equal(t, "https://github.com/Octo/captcha-solver-20250304050607", h.HTMLURL)
	assert.NotEmpty(t, h.HeadSHA)
	assert.Empty(t, sleeper.Delays())

	files := tf.Files(h.Name, "main")
	assert.Contains(t, files, "README.md")
	assert.Contains(t, files, "LICENSE")
}

func TestProvision_RetriesNameCollisions(t *testing.T) {
	tf := testforge.NewTestForge("octo")
	tf.CollideNext(2)
	rec := metrics.NewMemoryRecorder()
	p := newTestProvisioner(tf, rec, &recordingSleeper{})
	suffixes := []string{"aaaaaa", "bbbbbb"}
	p.suffix = func() string {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}

	h, err := p.Provision(context.Background(), "captcha", "desc")
	require.NoError(t, err)
	assert.Equal(t, "captcha-20250304050607-bbbbbb", h.Name)
	assert.Equal(t, 3, tf.Calls(testforge.OpCreateRepository))
	assert.Equal(t, 2, rec.Collisions())
}

func TestProvision_CollisionRetryIsBounded(t *testing.T) {
	tf := testforge.NewTestForge("octo")
	tf.CollideNext(100)
	p := newTestProvisioner(tf, nil, &recordingSleeper{})

	_, err := p.Provision(context.Background(), "captcha", "desc")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryRepository, errors.GetCategory(err))
	assert.True(t, stderrors.Is(err, ErrNameAttemptsExhausted))
	assert.Equal(t, 5, tf.Calls(testforge.OpCreateRepository))
}

func TestProvision_CreationFailure(t *testing.T) {
	tf := testforge.NewTestForge("octo")
	tf.SetFailMode(testforge.OpCreateRepository, testforge.FailModeAuth)
	p := newTestProvisioner(tf, nil, &recordingSleeper{})

	_, err := p.Provision(context.Background(), "captcha", "desc")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryRepository, errors.GetCategory(err))
	assert.True(t, errors.HasCategory(err, errors.CategoryAuth))
	assert.Equal(t, 1, tf.Calls(testforge.OpCreateRepository))
}

func TestProvision_IdentityLookupCachedOnlyOnSuccess(t *testing.T) {
	tf := testforge.NewTestForge("octo")
	tf.SetFailMode(testforge.OpCurrentUser, testforge.FailModeNetwork)
	p := newTestProvisioner(tf, nil, &recordingSleeper{})

	_, err := p.Provision(context.Background(), "a", "desc")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
	assert.Zero(t, tf.Calls(testforge.OpCreateRepository))

	tf.SetFailMode(testforge.OpCurrentUser, testforge.FailModeNone)
	_, err = p.Provision(context.Background(), "a", "desc")
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 8, 0, time.UTC) }
	_, err = p.Provision(context.Background(), "a", "desc")
	require.NoError(t, err)

	assert.Equal(t, 2, tf.Calls(testforge.OpCurrentUser))
}

func TestProvision_PollsUntilBranchReadable(t *testing.T) {
	tf := testforge.NewTestForge("octo")
	tf.SetRefNotReady(2)
	sleeper := &recordingSleeper{}
	p := newTestProvisioner(tf, nil, sleeper)

	h, err := p.Provision(context.Background(), "captcha", "desc")
	require.NoError(t, err)
	assert.NotEmpty(t, h.HeadSHA)
	assert.Equal(t, 3, tf.Calls(testforge.OpGetRef))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeper.Delays())
}

func TestProvision_PollTimeoutIsNotFatal(t *testing.T) {
	tf := testforge.NewTestForge("octo")
	tf.SetRefNotReady(1000)
	sleeper := &recordingSleeper{}
	p := newTestProvisioner(tf, nil, sleeper)

	h, err := p.Provision(context.Background(), "captcha", "desc")
	require.NoError(t, err)
	assert.Empty(t, h.HeadSHA)
	assert.Equal(t, 11, tf.Calls(testforge.OpGetRef))
	assert.Len(t, sleeper.Delays(), 10)
}

func TestProvision_FixedDelayWhenPollingDisabled(t *testing.T) {
	tf := testforge.NewTestForge("octo")
	sleeper := &recordingSleeper{}
	p := newTestProvisioner(tf, nil, sleeper)
	p.cfg.ReadyTimeout = 0

	_, err := p.Provision(context.Background(), "captcha", "desc")
	require.NoError(t, err)
	assert.Zero(t, tf.Calls(testforge.OpGetRef))
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.Delays())
}

func TestProvision_LongTaskNamesStayWithinLimit(t *testing.T) {
	tf := testforge.NewTestForge("octo")
	tf.CollideNext(1)
	p := newTestProvisioner(tf, nil, &recordingSleeper{})

	h, err := p.Provision(context.Background(), strings.Repeat("very long task ", 20), "desc")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(h.Name), reponame.MaxLength)
	assert.False(t, strings.HasSuffix(h.Name, "-"))
}
