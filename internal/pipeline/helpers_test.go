package pipeline

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/codegen"
	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/notify"
	"git.home.luguber.info/inful/pagesmith/internal/testforge"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type fakeGenerator struct {
	files FileSet
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, _ []codegen.Attachment, _ string) (FileSet, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.files, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []notify.Payload
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, p notify.Payload) (notify.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	if n.err != nil {
		return notify.Receipt{Attempts: 5, Status: 503}, n.err
	}
	return notify.Receipt{Attempts: 1, Status: 200}, nil
}

func sampleFiles() FileSet {
	var fs FileSet
	fs.Put(codegen.EntryPage, []byte("<!DOCTYPE html><html><head><title>Captcha</title></head><body></body></html>\n"))
	fs.Put(codegen.Description, []byte("# Captcha\n"))
	return fs
}

func newTestProvisioner(tf *testforge.TestForge, rec metrics.Recorder, sleeper *recordingSleeper) *Provisioner {
	p := NewProvisioner(tf, config.Defaults().Provision, rec, nil)
	p.sleep = sleeper.Sleep
	p.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return p
}

func newTestPages(tf *testforge.TestForge, sleeper *recordingSleeper) *PagesEnabler {
	e := NewPagesEnabler(tf, config.Defaults().Pages, nil)
	e.sleep = sleeper.Sleep
	return e
}
