package interaction

import (
	"context"
	"sync"
	"time"

	"rag-lab-ui/pkg/events"
	"rag-lab-ui/pkg/ragclient"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeBackend answers through per-call functions. Calls are numbered from
// zero in the order they reach the backend.
type fakeBackend struct {
	mu        sync.Mutex
	files     []ragclient.File
	questions []string

	ingest func(n int, ctx context.Context, file ragclient.File) (*ragclient.IngestResponse, error)
	ask    func(n int, ctx context.Context, question string) (*ragclient.AskResponse, error)
}

func (f *fakeBackend) Ingest(ctx context.Context, file ragclient.File) (*ragclient.IngestResponse, error) {
	f.mu.Lock()
	n := len(f.files)
	f.files = append(f.files, file)
	f.mu.Unlock()
	return f.ingest(n, ctx, file)
}

func (f *fakeBackend) Ask(ctx context.Context, question string) (*ragclient.AskResponse, error) {
	f.mu.Lock()
	n := len(f.questions)
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	return f.ask(n, ctx, question)
}

func (f *fakeBackend) ingestCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

func (f *fakeBackend) askCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.questions)
}

// gates holds one release channel per call; a call blocks until its gate
// is closed.
type gates []chan struct{}

func newGates(n int) gates {
	g := make(gates, n)
	for i := range g {
		g[i] = make(chan struct{})
	}
	return g
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingNotifier) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) ofType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingNotifier) queryStates() []QueryState {
	var out []QueryState
	for _, e := range r.ofType(events.TypeQueryStateChanged) {
		out = append(out, e.Payload()[events.KeyState].(QueryState))
	}
	return out
}

func (r *recordingNotifier) ingestionStates() []IngestionState {
	var out []IngestionState
	for _, e := range r.ofType(events.TypeIngestionStateChanged) {
		out = append(out, e.Payload()[events.KeyState].(IngestionState))
	}
	return out
}
