package main

import (
	"context"
	"log"
	"os"

	"rag-lab-ui/internal/config"
	"rag-lab-ui/internal/console"
	"rag-lab-ui/internal/pkg/logger"
	"rag-lab-ui/internal/tracer"
	"rag-lab-ui/pkg/events"
	"rag-lab-ui/pkg/interaction"
	"rag-lab-ui/pkg/ragclient"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	policy, err := interaction.ParseSettlePolicy(cfg.Session.SettlePolicy)
	if err != nil {
		log.Fatal(err)
	}

	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// Logs go to the file only; the terminal belongs to the panel.
	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	defer sysLogger.Sync()

	// Publish returns once the renderer has printed, so an idle controller
	// means its last state is already on screen.
	bus := events.NewBus(logger.NewWatermillAdapter(sysLogger, false), events.WithSynchronousDelivery())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionID := uuid.NewString()
	renderer := console.NewRenderer(color.Output, sessionID)
	if err := bus.Subscribe(ctx, "console", renderer.Handle); err != nil {
		log.Fatal(err)
	}

	backend := ragclient.NewClient(ragclient.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})
	opts := []interaction.Option{
		interaction.WithSessionID(sessionID),
		interaction.WithPolicy(policy),
		interaction.WithNotifier(bus),
		interaction.WithLogger(sysLogger),
	}

	shell := &console.Shell{
		Ingestion: interaction.NewIngestionController(backend, opts...),
		Query:     interaction.NewQueryController(backend, opts...),
		Renderer:  renderer,
		Out:       color.Output,
	}

	color.Cyan("RAG lab console (backend %s, %s wins). Type help.\n", cfg.Backend.BaseURL, policy)
	if err := shell.Run(ctx, os.Stdin); err != nil {
		log.Printf("input error: %v", err)
	}

	// let outstanding calls land and render before the bus closes
	shell.Ingestion.WaitIdle()
	shell.Query.WaitIdle()
}
