package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"rag-lab-ui/pkg/events"
	"rag-lab-ui/pkg/interaction"

	"github.com/fatih/color"
)

// Renderer prints panel state changes as they arrive on the bus. Snapshots
// older than one already printed are skipped, so out-of-order delivery
// never shows a stale panel.
type Renderer struct {
	// Prefix is written before every event line.
	Prefix string

	out       io.Writer
	sessionID string

	mu            sync.Mutex
	ingestVersion uint64
	queryVersion  uint64

	info   *color.Color
	ok     *color.Color
	fail   *color.Color
	notice *color.Color
	dim    *color.Color
}

// NewRenderer writes to out. A non-empty sessionID limits it to one session.
func NewRenderer(out io.Writer, sessionID string) *Renderer {
	return &Renderer{
		out:       out,
		sessionID: sessionID,
		info:      color.New(color.FgCyan),
		ok:        color.New(color.FgGreen),
		fail:      color.New(color.FgRed),
		notice:    color.New(color.FgYellow),
		dim:       color.New(color.Faint),
	}
}

// Handle is an events.EventHandler.
func (r *Renderer) Handle(ctx context.Context, event events.Event) error {
	if r.sessionID != "" && events.SessionID(event) != r.sessionID {
		return nil
	}

	switch event.EventType() {
	case events.TypeIngestionStateChanged:
		var state interaction.IngestionState
		if err := events.DecodeData(event, events.KeyState, &state); err != nil {
			return err
		}
		r.ingestion(state)

	case events.TypeQueryStateChanged:
		var state interaction.QueryState
		if err := events.DecodeData(event, events.KeyState, &state); err != nil {
			return err
		}
		r.query(state)

	case events.TypeIngestionNotice:
		var text string
		if err := events.DecodeData(event, events.KeyNotice, &text); err != nil {
			return err
		}
		r.mu.Lock()
		r.line(r.notice, "[ingest] %s\n", text)
		r.mu.Unlock()
	}
	return nil
}

func (r *Renderer) ingestion(s interaction.IngestionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Version <= r.ingestVersion {
		return
	}
	r.ingestVersion = s.Version

	switch s.Status {
	case interaction.IngestionUploading:
		r.line(r.info, "[ingest] %s\n", s.Message)
	case interaction.IngestionDone:
		r.line(r.ok, "[ingest] %s\n", s.Message)
	case interaction.IngestionFailed:
		r.line(r.fail, "[ingest] %s\n", s.Message)
	}
}

func (r *Renderer) query(s interaction.QueryState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Version <= r.queryVersion {
		return
	}
	r.queryVersion = s.Version

	switch s.Status {
	case interaction.QueryThinking:
		r.line(r.info, "[answer] %s\n", s.Answer)
	case interaction.QueryAnswered:
		r.line(r.ok, "[answer] %s\n", s.Answer)
		for i, src := range s.Sources {
			r.line(r.dim, "  %d. %s\n", i+1, src)
		}
	case interaction.QueryFailed:
		r.line(r.fail, "[answer] %s\n", s.Answer)
	}
}

func (r *Renderer) line(c *color.Color, format string, args ...interface{}) {
	if r.Prefix != "" {
		fmt.Fprint(r.out, r.Prefix)
	}
	c.Fprintf(r.out, format, args...)
}

// PrintState writes both panels as they are now, regardless of version.
func (r *Renderer) PrintState(ingestion interaction.IngestionState, query interaction.QueryState, file *interaction.SelectedFile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if file != nil {
		fmt.Fprintf(r.out, "file:     %s (%s, %d bytes)\n", file.Name, file.MediaType, len(file.Data))
	} else {
		fmt.Fprintln(r.out, "file:     (none)")
	}
	fmt.Fprintf(r.out, "ingest:   %s %s\n", ingestion.Status, ingestion.Message)
	fmt.Fprintf(r.out, "question: %q\n", query.Question)
	fmt.Fprintf(r.out, "answer:   %s %s\n", query.Status, query.Answer)
	for i, src := range query.Sources {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, src)
	}
}
