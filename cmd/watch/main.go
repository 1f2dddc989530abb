package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"rag-lab-ui/internal/config"
	"rag-lab-ui/internal/console"
	"rag-lab-ui/pkg/events"
	pktNats "rag-lab-ui/pkg/nats"

	"github.com/fatih/color"
)

// watch prints the state changes of every panel served by any instance
// that bridges to the same NATS server. Pass a session id to follow one.
func main() {
	cfg := config.Load()
	if err := cfg.ValidateWatcher(); err != nil {
		log.Fatal(err)
	}

	sessionID := ""
	if len(os.Args) > 1 {
		sessionID = os.Args[1]
	}

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// versions are per session, so each session gets its own renderer
	var mu sync.Mutex
	renderers := make(map[string]*console.Renderer)
	handler := func(ctx context.Context, event events.Event) error {
		id := events.SessionID(event)
		if sessionID != "" && id != sessionID {
			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		r, ok := renderers[id]
		if !ok {
			r = console.NewRenderer(color.Output, id)
			if sessionID == "" {
				r.Prefix = id + " "
			}
			renderers[id] = r
		}
		return r.Handle(ctx, event)
	}

	if err := sub.Subscribe(ctx, pktNats.SubjectPrefix+".>", "", handler); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	color.Cyan("Watching %s on %s (Ctrl+C to stop)", pktNats.StreamName, cfg.App.NatsURL)
	<-ctx.Done()
}
