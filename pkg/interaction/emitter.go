package interaction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rag-lab-ui/pkg/events"
)

// emitter forwards snapshots to the Notifier in version order. A snapshot
// older than one already delivered is dropped. Notifiers must not trigger
// the same controller synchronously.
type emitter struct {
	module string
	opts   *Options

	mu        sync.Mutex
	published uint64
}

func (e *emitter) state(ctx context.Context, eventType string, version uint64, state any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if version <= e.published {
		return
	}
	e.published = version
	e.publish(ctx, eventType, events.KeyState, state)
}

func (e *emitter) notice(ctx context.Context, eventType, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publish(ctx, eventType, events.KeyNotice, text)
}

func (e *emitter) publish(ctx context.Context, eventType, key string, value any) {
	data := map[string]interface{}{key: value}
	if e.opts.SessionID != "" {
		data[events.KeySessionID] = e.opts.SessionID
	}

	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := e.opts.Notifier.Publish(ctx, evt); err != nil {
		e.opts.Logger.Warn(e.module, "Failed to publish state change", map[string]interface{}{
			"type":       eventType,
			"session_id": e.opts.SessionID,
			"error":      err.Error(),
		})
	}
}

// guard converts a panicking backend into an ordinary failure.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return fn()
}
