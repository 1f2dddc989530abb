package interaction

import (
	"context"
	"strings"
	"sync"

	"rag-lab-ui/pkg/errnorm"
	"rag-lab-ui/pkg/events"
	"rag-lab-ui/pkg/ragclient"

	"go.opentelemetry.io/otel/attribute"
)

const queryModule = "QUERY"

// QueryController owns the draft question and the answer panel state.
type QueryController struct {
	backend Asker
	opts    Options
	emit    *emitter

	mu     sync.Mutex
	state  QueryState
	issued uint64

	inflight sync.WaitGroup
}

func NewQueryController(backend Asker, opts ...Option) *QueryController {
	c := &QueryController{
		backend: backend,
		opts:    buildOptions(opts),
		state:   QueryState{Status: QueryIdle, Sources: SourceList{}},
	}
	c.emit = &emitter{module: queryModule, opts: &c.opts}
	return c
}

// SetQuestion stores the draft verbatim, blank text included.
func (c *QueryController) SetQuestion(ctx context.Context, text string) {
	c.mu.Lock()
	c.state.Question = text
	c.state.Version++
	snap := c.state.clone()
	c.mu.Unlock()

	c.emit.state(ctx, events.TypeQueryStateChanged, snap.Version, snap)
}

func (c *QueryController) Question() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Question
}

func (c *QueryController) State() QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Ask sends the current draft. A blank draft is a silent no-op that returns
// ErrEmptyQuestion. Otherwise the state is "thinking" with no sources by
// the time Ask returns; ctx cancellation does not stop the call.
func (c *QueryController) Ask(ctx context.Context) (*Call, error) {
	c.mu.Lock()
	question := c.state.Question
	if strings.TrimSpace(question) == "" {
		c.mu.Unlock()
		return nil, ErrEmptyQuestion
	}

	c.issued++
	seq := c.issued
	c.state = QueryState{
		Question: question,
		Status:   QueryThinking,
		Answer:   ThinkingText,
		Sources:  SourceList{},
		Seq:      seq,
		Version:  c.state.Version + 1,
	}
	pending := c.state.clone()
	c.mu.Unlock()

	c.emit.state(ctx, events.TypeQueryStateChanged, pending.Version, pending)

	call := newCall(seq)
	c.inflight.Add(1)
	go c.run(context.WithoutCancel(ctx), call, question)
	return call, nil
}

// WaitIdle blocks until every issued question has settled.
func (c *QueryController) WaitIdle() {
	c.inflight.Wait()
}

func (c *QueryController) run(ctx context.Context, call *Call, question string) {
	defer c.inflight.Done()

	ctx, span := c.opts.Tracer.Start(ctx, "interaction.Ask")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("interaction.seq", int64(call.Seq)),
		attribute.String("interaction.session_id", c.opts.SessionID),
	)

	var resp *ragclient.AskResponse
	err := guard(func() error {
		var err error
		resp, err = c.backend.Ask(ctx, question)
		return err
	})

	next := QueryState{Seq: call.Seq, Sources: SourceList{}}
	if err != nil {
		next.Status = QueryFailed
		next.Answer = QueryErrorPrefix + errnorm.Normalize(errnorm.FromError(err))
		c.opts.Logger.Warn(queryModule, "Question failed", map[string]interface{}{
			"session_id": c.opts.SessionID,
			"seq":        call.Seq,
			"error":      err.Error(),
		})
	} else {
		if resp == nil {
			resp = &ragclient.AskResponse{}
		}
		next.Status = QueryAnswered
		next.Answer = resp.Answer
		if next.Answer == "" {
			next.Answer = EmptyAnswerText
		}
		next.Sources = append(next.Sources, resp.Sources...)
		c.opts.Logger.Info(queryModule, "Question answered", map[string]interface{}{
			"session_id": c.opts.SessionID,
			"seq":        call.Seq,
			"sources":    len(next.Sources),
		})
	}

	applied := c.apply(ctx, next)
	span.SetAttributes(attribute.Bool("interaction.applied", applied))
	call.settle(applied)
}

func (c *QueryController) apply(ctx context.Context, next QueryState) bool {
	c.mu.Lock()
	if c.opts.Policy == LastTriggeredWins && next.Seq != c.issued {
		latest := c.issued
		c.mu.Unlock()
		c.opts.Logger.Debug(queryModule, "Discarding stale settlement", map[string]interface{}{
			"session_id": c.opts.SessionID,
			"seq":        next.Seq,
			"latest":     latest,
		})
		return false
	}
	// The draft may have been edited while the call was outstanding.
	next.Question = c.state.Question
	next.Version = c.state.Version + 1
	c.state = next
	snap := c.state.clone()
	c.mu.Unlock()

	c.emit.state(ctx, events.TypeQueryStateChanged, snap.Version, snap)
	return true
}
