package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rag-lab-ui/internal/mapper"
	"rag-lab-ui/internal/pkg/logger"
	"rag-lab-ui/internal/service"
	internalWS "rag-lab-ui/internal/websocket"
	"rag-lab-ui/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const streamModule = "StreamHandler"

// StreamHandler upgrades panel connections and attaches them to the hub.
type StreamHandler struct {
	panelService service.IPanelService
	hub          *internalWS.Hub
	mapper       *mapper.PanelMapper
	logger       logger.ILogger
}

func NewStreamHandler(panelService service.IPanelService, hub *internalWS.Hub, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		panelService: panelService,
		hub:          hub,
		mapper:       mapper.NewPanelMapper(),
		logger:       log,
	}
}

// ServeWs streams every state change of one session. The first frame is a
// PANEL_SNAPSHOT taken after the connection joined the hub.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Query("session"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "query 'session' must be a session id")
	}
	sessionID := id.String()

	if _, err := h.panelService.Snapshot(c.UserContext(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info(streamModule, "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.hub, conn, sessionID, func() []byte {
			frame, err := h.snapshotFrame(context.Background(), sessionID)
			if err != nil {
				h.logger.Warn(streamModule, "Snapshot unavailable", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
				return nil
			}
			return frame
		})
		h.logger.Info(streamModule, "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
	})(c)
}

func (h *StreamHandler) snapshotFrame(ctx context.Context, sessionID string) ([]byte, error) {
	snap, err := h.panelService.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(events.BaseEvent{
		Type: events.TypePanelSnapshot,
		Data: map[string]interface{}{
			events.KeySessionID: sessionID,
			events.KeyPanel:     h.mapper.ToSnapshotResponse(snap),
		},
		OccurredAt: time.Now(),
	})
}

func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
