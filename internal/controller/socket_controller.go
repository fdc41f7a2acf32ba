package controller

import (
	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/internal/pkg/serverutils"
	internalWS "ai-assistant-client/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SocketProtocol is the subprotocol the server agrees on.
const SocketProtocol = "intric"

type ISocketController interface {
	RegisterRoutes(r fiber.Router)
	ServeWs(ctx *fiber.Ctx) error
}

type socketController struct {
	hub    *internalWS.Hub
	creds  serverutils.Credentials
	logger logger.ILogger
}

func NewSocketController(hub *internalWS.Hub, creds serverutils.Credentials, log logger.ILogger) ISocketController {
	return &socketController{hub: hub, creds: creds, logger: logger.OrNop(log)}
}

func (c *socketController) RegisterRoutes(r fiber.Router) {
	r.Get("/v1/ws", c.ServeWs)
}

// ServeWs authenticates the handshake, then hands the connection to the hub.
// Browsers cannot set headers on upgrades, so the token travels as an
// "auth_<token>" subprotocol.
func (c *socketController) ServeWs(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	userID, err := c.creds.Authenticate(ctx.Get("api-key"), serverutils.SocketToken(ctx))
	if err != nil {
		c.logger.Warn("SocketController", "Rejected WebSocket handshake", map[string]interface{}{"error": err.Error()})
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("SocketController", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(c.hub, conn, userID)
		c.logger.Info("SocketController", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	}, websocket.Config{Subprotocols: []string{SocketProtocol}})(ctx)
}
