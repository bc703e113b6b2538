package handlers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/latestcomment/go-live-activities/internal/models"
	"github.com/latestcomment/go-live-activities/internal/services"
)

type WebSocketHandler struct {
	Service    *services.SessionService
	SendBuffer int
	logger     *slog.Logger
}

func NewWebSocketHandler(service *services.SessionService, sendBuffer int, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{Service: service, SendBuffer: sendBuffer, logger: logger}
}

func (h *WebSocketHandler) WebSocketMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleWebSocket serves one connection. Reads run on this goroutine and
// writes drain the client's outbox on another, so a slow peer never blocks
// a broadcast.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	defer func() {
		_ = c.Close()
	}()

	client := models.NewClient(h.SendBuffer)
	h.logger.Debug("websocket connected", "connection", client.Id, "remote", c.RemoteAddr().String())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(c, client)
	}()

	h.Service.LoopMessages(context.Background(), c, client)
	h.Service.Disconnect(client)
	client.Close()
	wg.Wait()
}

// frameWriter is the write side of a websocket connection.
type frameWriter interface {
	WriteJSON(v any) error
	Close() error
}

func (h *WebSocketHandler) writePump(c frameWriter, client *models.Client) {
	for ev := range client.Send {
		if err := c.WriteJSON(ev); err != nil {
			h.logger.Debug("websocket write failed", "connection", client.Id, "error", err)
			// Unblocks the read loop.
			_ = c.Close()
			for range client.Send {
			}
			return
		}
	}
}
