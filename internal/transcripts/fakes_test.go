package transcripts_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alkime/scribe/internal/notify"
	"github.com/alkime/scribe/internal/provider"
	"github.com/alkime/scribe/internal/transcripts"
)

var errNetwork = errors.New("network unreachable")

type fetchResult struct {
	job provider.Job
	err error
}

// fakeGateway serves scripted FetchStatus results per id. The last result
// for an id repeats once the script runs out.
type fakeGateway struct {
	mu      sync.Mutex
	scripts map[string][]fetchResult
	gates   map[string]chan struct{}
	calls   []string
	entered chan string

	list    []provider.Job
	listErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		scripts: map[string][]fetchResult{},
		gates:   map[string]chan struct{}{},
		entered: make(chan string, 64),
	}
}

func (g *fakeGateway) script(id string, results ...fetchResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[id] = append(g.scripts[id], results...)
}

// gate makes fetches of id block until the returned func is called.
func (g *fakeGateway) gate(id string) func() {
	ch := make(chan struct{})
	g.mu.Lock()
	g.gates[id] = ch
	g.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (g *fakeGateway) FetchStatus(ctx context.Context, id string) (provider.Job, error) {
	g.mu.Lock()
	g.calls = append(g.calls, id)
	var res fetchResult
	if script := g.scripts[id]; len(script) > 0 {
		res = script[0]
		if len(script) > 1 {
			g.scripts[id] = script[1:]
		}
	} else {
		res = fetchResult{err: provider.ErrNotFound}
	}
	gate := g.gates[id]
	g.mu.Unlock()

	g.entered <- id

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return provider.Job{}, ctx.Err()
		}
	}

	return res.job, res.err
}

func (g *fakeGateway) ListAll(context.Context) ([]provider.Job, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.list, g.listErr
}

func (g *fakeGateway) callsFor(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, c := range g.calls {
		if c == id {
			n++
		}
	}
	return n
}

func (g *fakeGateway) waitEntered(t *testing.T, id string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case got := <-g.entered:
			if got == id {
				return
			}
		case <-deadline:
			t.Fatalf("fetch for %s never started", id)
		}
	}
}

type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (f *fakeTicker) Chan() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.once.Do(func() { close(f.stopped) })
}

// fakeClock hands out manual tickers.
type fakeClock struct {
	tickers chan *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{tickers: make(chan *fakeTicker, 16)}
}

func (fc *fakeClock) NewTicker(time.Duration) transcripts.Ticker {
	t := &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	fc.tickers <- t
	return t
}

func (fc *fakeClock) next(t *testing.T) *fakeTicker {
	t.Helper()
	select {
	case tk := <-fc.tickers:
		return tk
	case <-time.After(time.Second):
		t.Fatal("poll loop never started")
		return nil
	}
}

func (fc *fakeClock) assertNoTicker(t *testing.T) {
	t.Helper()
	select {
	case <-fc.tickers:
		t.Fatal("unexpected poll loop")
	case <-time.After(20 * time.Millisecond):
	}
}

func (f *fakeTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case f.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("poll loop not listening")
	}
}

func (f *fakeTicker) waitStopped(t *testing.T) {
	t.Helper()
	select {
	case <-f.stopped:
	case <-time.After(time.Second):
		t.Fatal("ticker never stopped")
	}
}

type recorder struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.notes...)
}

func (r *recorder) count(kind notify.Kind) int {
	n := 0
	for _, note := range r.all() {
		if note.Kind == kind {
			n++
		}
	}
	return n
}

func job(id string, status provider.Status) fetchResult {
	return fetchResult{job: provider.Job{ID: id, Status: status}}
}

func completed(id, text string) fetchResult {
	return fetchResult{job: provider.Job{ID: id, Status: provider.StatusCompleted, Text: text}}
}
