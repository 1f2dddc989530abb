package interaction

import (
	"context"
	"fmt"
	"sync"

	"rag-lab-ui/pkg/errnorm"
	"rag-lab-ui/pkg/events"
	"rag-lab-ui/pkg/ragclient"

	"go.opentelemetry.io/otel/attribute"
)

const ingestionModule = "INGESTION"

// IngestionController owns the selected file and the ingestion panel state.
type IngestionController struct {
	backend Ingester
	opts    Options
	emit    *emitter

	mu     sync.Mutex
	file   *SelectedFile
	state  IngestionState
	issued uint64

	inflight sync.WaitGroup
}

func NewIngestionController(backend Ingester, opts ...Option) *IngestionController {
	c := &IngestionController{
		backend: backend,
		opts:    buildOptions(opts),
		state:   IngestionState{Status: IngestionIdle},
	}
	c.emit = &emitter{module: ingestionModule, opts: &c.opts}
	return c
}

// SelectFile replaces the held file. Nothing is validated here.
func (c *IngestionController) SelectFile(file SelectedFile) {
	c.mu.Lock()
	c.file = &file
	c.mu.Unlock()

	c.opts.Logger.Debug(ingestionModule, "File selected", map[string]interface{}{
		"session_id": c.opts.SessionID,
		"name":       file.Name,
		"size":       len(file.Data),
	})
}

// SelectedFile returns the held file, if any.
func (c *IngestionController) SelectedFile() (SelectedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return SelectedFile{}, false
	}
	return *c.file, true
}

func (c *IngestionController) State() IngestionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ingest uploads the selected file. Without a file it publishes a notice,
// leaves the state alone and returns ErrNoFileSelected. Otherwise the state
// is "uploading" by the time Ingest returns and the upload runs in the
// background; ctx cancellation does not stop it.
func (c *IngestionController) Ingest(ctx context.Context) (*Call, error) {
	c.mu.Lock()
	if c.file == nil {
		c.mu.Unlock()
		c.opts.Logger.Info(ingestionModule, "Ingest triggered without a file", map[string]interface{}{
			"session_id": c.opts.SessionID,
		})
		c.emit.notice(ctx, events.TypeIngestionNotice, ChooseFileNotice)
		return nil, ErrNoFileSelected
	}

	c.issued++
	seq := c.issued
	file := *c.file
	c.state = IngestionState{
		Status:  IngestionUploading,
		Message: UploadingText,
		Seq:     seq,
		Version: c.state.Version + 1,
	}
	pending := c.state
	c.mu.Unlock()

	c.emit.state(ctx, events.TypeIngestionStateChanged, pending.Version, pending)

	call := newCall(seq)
	c.inflight.Add(1)
	go c.run(context.WithoutCancel(ctx), call, file)
	return call, nil
}

// WaitIdle blocks until every issued upload has settled.
func (c *IngestionController) WaitIdle() {
	c.inflight.Wait()
}

func (c *IngestionController) run(ctx context.Context, call *Call, file SelectedFile) {
	defer c.inflight.Done()

	ctx, span := c.opts.Tracer.Start(ctx, "interaction.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("interaction.seq", int64(call.Seq)),
		attribute.String("interaction.session_id", c.opts.SessionID),
	)

	var resp *ragclient.IngestResponse
	err := guard(func() error {
		var err error
		resp, err = c.backend.Ingest(ctx, ragclient.File{
			Name:      file.Name,
			MediaType: file.MediaType,
			Data:      file.Data,
		})
		return err
	})

	next := IngestionState{Seq: call.Seq}
	if err != nil {
		next.Status = IngestionFailed
		next.Message = errnorm.Normalize(errnorm.FromError(err))
		c.opts.Logger.Warn(ingestionModule, "Ingestion failed", map[string]interface{}{
			"session_id": c.opts.SessionID,
			"seq":        call.Seq,
			"error":      err.Error(),
		})
	} else {
		if resp == nil {
			resp = &ragclient.IngestResponse{}
		}
		next.Status = IngestionDone
		next.Inserted = resp.Inserted
		next.Message = fmt.Sprintf(insertedFormat, resp.Inserted)
		c.opts.Logger.Info(ingestionModule, "Ingestion finished", map[string]interface{}{
			"session_id": c.opts.SessionID,
			"seq":        call.Seq,
			"inserted":   resp.Inserted,
		})
	}

	applied := c.apply(ctx, next)
	span.SetAttributes(attribute.Bool("interaction.applied", applied))
	call.settle(applied)
}

func (c *IngestionController) apply(ctx context.Context, next IngestionState) bool {
	c.mu.Lock()
	if c.opts.Policy == LastTriggeredWins && next.Seq != c.issued {
		latest := c.issued
		c.mu.Unlock()
		c.opts.Logger.Debug(ingestionModule, "Discarding stale settlement", map[string]interface{}{
			"session_id": c.opts.SessionID,
			"seq":        next.Seq,
			"latest":     latest,
		})
		return false
	}
	next.Version = c.state.Version + 1
	c.state = next
	c.mu.Unlock()

	c.emit.state(ctx, events.TypeIngestionStateChanged, next.Version, next)
	return true
}
