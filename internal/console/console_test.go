package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"rag-lab-ui/pkg/events"
	"rag-lab-ui/pkg/interaction"
	"rag-lab-ui/pkg/ragclient"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func stateEvent(eventType, session string, state any) events.BaseEvent {
	return events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{events.KeySessionID: session, events.KeyState: state},
	}
}

func TestRenderer_Query(t *testing.T) {
	out := &syncBuffer{}
	r := NewRenderer(out, "s1")
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, stateEvent(events.TypeQueryStateChanged, "s1",
		interaction.QueryState{Status: interaction.QueryThinking, Answer: interaction.ThinkingText, Version: 2})))
	require.NoError(t, r.Handle(ctx, stateEvent(events.TypeQueryStateChanged, "s1",
		interaction.QueryState{Status: interaction.QueryAnswered, Answer: "42", Sources: interaction.SourceList{"doc1", "doc2"}, Version: 3})))

	assert.Equal(t, "[answer] Thinking…\n[answer] 42\n  1. doc1\n  2. doc2\n", out.String())
}

func TestRenderer_SkipsStaleAndForeign(t *testing.T) {
	out := &syncBuffer{}
	r := NewRenderer(out, "s1")
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, stateEvent(events.TypeIngestionStateChanged, "s1",
		interaction.IngestionState{Status: interaction.IngestionDone, Message: "Inserted chunks: 2", Version: 4})))
	// older snapshot delivered late
	require.NoError(t, r.Handle(ctx, stateEvent(events.TypeIngestionStateChanged, "s1",
		interaction.IngestionState{Status: interaction.IngestionUploading, Message: interaction.UploadingText, Version: 3})))
	// another session
	require.NoError(t, r.Handle(ctx, stateEvent(events.TypeIngestionStateChanged, "s2",
		interaction.IngestionState{Status: interaction.IngestionFailed, Message: "nope", Version: 9})))

	assert.Equal(t, "[ingest] Inserted chunks: 2\n", out.String())
}

func TestRenderer_NoticeAndPrefix(t *testing.T) {
	out := &syncBuffer{}
	r := NewRenderer(out, "")
	r.Prefix = "s9 "

	require.NoError(t, r.Handle(context.Background(), events.BaseEvent{
		Type: events.TypeIngestionNotice,
		Data: map[string]interface{}{events.KeySessionID: "s9", events.KeyNotice: interaction.ChooseFileNotice},
	}))
	assert.Equal(t, "s9 [ingest] Choose a file first\n", out.String())
}

func TestRenderer_MalformedState(t *testing.T) {
	r := NewRenderer(&syncBuffer{}, "")
	err := r.Handle(context.Background(), events.BaseEvent{
		Type: events.TypeQueryStateChanged,
		Data: map[string]interface{}{events.KeyState: "not a state"},
	})
	assert.Error(t, err)
}

type shellBackend struct{}

func (shellBackend) Ingest(ctx context.Context, file ragclient.File) (*ragclient.IngestResponse, error) {
	return &ragclient.IngestResponse{Inserted: len(file.Data)}, nil
}

func (shellBackend) Ask(ctx context.Context, question string) (*ragclient.AskResponse, error) {
	return &ragclient.AskResponse{Answer: "echo: " + question, Sources: []string{"doc1"}}, nil
}

func newShell(out *syncBuffer) *Shell {
	r := NewRenderer(out, "s1")
	opts := []interaction.Option{interaction.WithSessionID("s1"), interaction.WithNotifier(notifierFunc(r.Handle))}
	return &Shell{
		Ingestion: interaction.NewIngestionController(shellBackend{}, opts...),
		Query:     interaction.NewQueryController(shellBackend{}, opts...),
		Renderer:  r,
		Out:       out,
		ReadFile: func(path string) (interaction.SelectedFile, error) {
			if path == "missing.txt" {
				return interaction.SelectedFile{}, errors.New("no such file")
			}
			return interaction.SelectedFile{Name: path, MediaType: interaction.MediaTypeFor(path), Data: []byte("abc")}, nil
		},
	}
}

// notifierFunc feeds controller events straight into a renderer.
type notifierFunc func(ctx context.Context, event events.Event) error

func (f notifierFunc) Publish(ctx context.Context, event events.Event) error {
	return f(ctx, event)
}

func TestShell_Session(t *testing.T) {
	out := &syncBuffer{}
	sh := newShell(out)

	input := strings.Join([]string{
		"ingest",
		"file notes.txt",
		"ingest",
		"wait",
		"ask   ",
		"ask what is it",
		"wait",
		"state",
		"quit",
		"ask never sent",
	}, "\n")
	require.NoError(t, sh.Run(context.Background(), strings.NewReader(input)))

	got := out.String()
	assert.Contains(t, got, "[ingest] Choose a file first")
	assert.Contains(t, got, "selected notes.txt (text/plain)")
	assert.Contains(t, got, "[ingest] Inserted chunks: 3")
	assert.Contains(t, got, "[answer] echo: what is it")
	assert.Contains(t, got, `question: "what is it"`)
	assert.NotContains(t, got, "never sent")
}

func TestShell_Errors(t *testing.T) {
	sh := newShell(&syncBuffer{})
	ctx := context.Background()

	assert.Error(t, sh.Exec(ctx, "file"))
	assert.EqualError(t, sh.Exec(ctx, "file missing.txt"), "no such file")
	assert.Error(t, sh.Exec(ctx, "bogus"))
	assert.ErrorIs(t, sh.Exec(ctx, "QUIT"), ErrQuit)
	assert.NoError(t, sh.Exec(ctx, ""))
	assert.NoError(t, sh.Exec(ctx, "ask"), "blank draft is a silent no-op")
}

func TestShell_QuestionKeptVerbatim(t *testing.T) {
	sh := newShell(&syncBuffer{})
	ctx := context.Background()

	tests := []struct {
		name string
		line string
		want string
	}{
		{"padded", "question   padded  ", "  padded  "},
		{"inner spacing", "question a  b", "a  b"},
		{"cleared", "question", ""},
		{"ask replaces draft", "ask  why ", " why "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, sh.Exec(ctx, tt.line))
			sh.Query.WaitIdle()
			assert.Equal(t, tt.want, sh.Query.State().Question)
		})
	}

	require.NoError(t, sh.Exec(ctx, "ask    "))
	sh.Query.WaitIdle()
	assert.Equal(t, " why ", sh.Query.State().Question, "blank ask keeps the draft")
}

func TestShell_WaitRendersThroughBus(t *testing.T) {
	bus := events.NewBus(nil, events.WithSynchronousDelivery())
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	r := NewRenderer(out, "s1")
	require.NoError(t, bus.Subscribe(ctx, "console", r.Handle))

	opts := []interaction.Option{interaction.WithSessionID("s1"), interaction.WithNotifier(bus)}
	sh := &Shell{
		Ingestion: interaction.NewIngestionController(shellBackend{}, opts...),
		Query:     interaction.NewQueryController(shellBackend{}, opts...),
		Renderer:  r,
		Out:       out,
	}

	require.NoError(t, sh.Run(ctx, strings.NewReader("ingest\nask what\nwait\n")))

	got := out.String()
	assert.Contains(t, got, "[ingest] Choose a file first")
	assert.Contains(t, got, "[answer] echo: what")
	assert.Contains(t, got, "  1. doc1")
}
