package bootstrap

import (
	"context"
	"fmt"
	"log"

	"rag-lab-ui/internal/config"
	"rag-lab-ui/internal/controller"
	"rag-lab-ui/internal/handler"
	"rag-lab-ui/internal/pkg/logger"
	"rag-lab-ui/internal/repository/memory"
	"rag-lab-ui/internal/service"
	"rag-lab-ui/internal/websocket"
	"rag-lab-ui/pkg/events"
	"rag-lab-ui/pkg/interaction"
	pktNats "rag-lab-ui/pkg/nats"
	"rag-lab-ui/pkg/ragclient"

	"github.com/redis/go-redis/v9"
)

type Container struct {
	PanelController controller.IPanelController
	StreamHandler   *handler.StreamHandler

	PanelService service.IPanelService
	WebSocketHub *websocket.Hub
	Bus          *events.Bus
	Logger       logger.ILogger

	natsPub *pktNats.Publisher
	rdb     *redis.Client
	cancel  context.CancelFunc
}

// NewContainer wires everything and starts the hub and the optional NATS
// bridge. Background work stops on Shutdown.
func NewContainer(cfg *config.Config) (*Container, error) {
	policy, err := interaction.ParseSettlePolicy(cfg.Session.SettlePolicy)
	if err != nil {
		return nil, err
	}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	hubLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)

	// 2. Event Bus
	bus := events.NewBus(logger.NewWatermillAdapter(sysLogger, !cfg.IsProduction()))

	ctx, cancel := context.WithCancel(context.Background())
	c := &Container{Bus: bus, Logger: sysLogger, cancel: cancel}

	// 3. Infrastructure
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		c.rdb = redis.NewClient(opt)
		if err := c.rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	wsHub := websocket.NewHub(c.rdb, hubLogger)
	go wsHub.Run(ctx)
	if err := bus.Subscribe(ctx, "ws-hub", wsHub.Dispatch); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe hub: %w", err)
	}
	c.WebSocketHub = wsHub

	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else if err := pktNats.Bridge(ctx, bus, natsPub); err != nil {
			log.Printf("[WARN] Failed to start NATS bridge: %v", err)
			natsPub.Close()
		} else {
			c.natsPub = natsPub
		}
	}

	// 4. Services
	backend := ragclient.NewClient(ragclient.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})

	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL, func(id string) {
		sysLogger.Info("SESSION", "Session expired", map[string]interface{}{"session_id": id})
		go wsHub.CloseSession(id)
	})

	panelService := service.NewPanelService(sessionRepo, backend, bus, policy, sysLogger)
	c.PanelService = panelService

	// 5. Controllers
	c.PanelController = controller.NewPanelController(panelService)
	c.StreamHandler = handler.NewStreamHandler(panelService, wsHub, hubLogger)

	sysLogger.Info("BOOT", "Container ready", map[string]interface{}{
		"rag_api_base":  cfg.Backend.BaseURL,
		"settle_policy": policy.String(),
		"nats":          c.natsPub != nil,
		"redis":         c.rdb != nil,
	})
	return c, nil
}

// Shutdown stops background work and releases connections.
func (c *Container) Shutdown() {
	c.cancel()
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	if err := c.Bus.Close(); err != nil {
		log.Printf("[WARN] Failed to close event bus: %v", err)
	}
	c.Logger.Sync()
}
