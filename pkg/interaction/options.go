package interaction

import (
	"context"
	"fmt"
	"strings"

	"rag-lab-ui/internal/pkg/logger"
	"rag-lab-ui/pkg/events"
	"rag-lab-ui/pkg/ragclient"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SettlePolicy decides which settlement may overwrite the visible state when
// calls of one controller overlap.
type SettlePolicy int

const (
	// LastTriggeredWins drops settlements of any request older than the most
	// recently issued one.
	LastTriggeredWins SettlePolicy = iota
	// LastSettledWins lets every settlement overwrite the state, so the call
	// that finishes last is shown regardless of trigger order.
	LastSettledWins
)

func (p SettlePolicy) String() string {
	switch p {
	case LastSettledWins:
		return "last-settled"
	default:
		return "last-triggered"
	}
}

// ParseSettlePolicy accepts "last-triggered" and "last-settled".
func ParseSettlePolicy(s string) (SettlePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-triggered":
		return LastTriggeredWins, nil
	case "last-settled":
		return LastSettledWins, nil
	}
	return LastTriggeredWins, fmt.Errorf("unknown settle policy %q", s)
}

// Ingester is the backend side of the ingestion controller.
type Ingester interface {
	Ingest(ctx context.Context, file ragclient.File) (*ragclient.IngestResponse, error)
}

// Asker is the backend side of the query controller.
type Asker interface {
	Ask(ctx context.Context, question string) (*ragclient.AskResponse, error)
}

// Notifier receives every state change. It is called outside the
// controller's lock, so it may read the controller back.
type Notifier interface {
	Publish(ctx context.Context, event events.Event) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, events.Event) error { return nil }

type Option func(*Options)

type Options struct {
	SessionID string
	Policy    SettlePolicy
	Notifier  Notifier
	Logger    logger.ILogger
	Tracer    trace.Tracer
}

// WithSessionID tags every published event with the owning session.
func WithSessionID(id string) Option {
	return func(o *Options) {
		o.SessionID = id
	}
}

func WithPolicy(p SettlePolicy) Option {
	return func(o *Options) {
		o.Policy = p
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *Options) {
		o.Notifier = n
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Options) {
		o.Tracer = t
	}
}

func buildOptions(opts []Option) Options {
	o := Options{
		Policy:   LastTriggeredWins,
		Notifier: nopNotifier{},
		Logger:   logger.NewNopLogger(),
		Tracer:   otel.Tracer("rag-lab-ui/interaction"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
