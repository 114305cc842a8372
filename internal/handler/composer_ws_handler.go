package handler

import (
	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/internal/pkg/serverutils"
	"podcast-studio-be/internal/service"
	internalWS "podcast-studio-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"
)

// ComposerWsHandler streams live aggregate updates of one composer session.
type ComposerWsHandler struct {
	service service.IComposerService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewComposerWsHandler(service service.IComposerService, hub *internalWS.Hub, log logger.ILogger) *ComposerWsHandler {
	return &ComposerWsHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs authenticates the handshake, checks session ownership and upgrades.
// Browsers pass the token as a query parameter; other clients may use the
// Authorization header.
func (h *ComposerWsHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (query 'token' or header 'Authorization')"))
	}

	userID, err := serverutils.ParseUserToken(tokenStr)
	if err != nil {
		h.logger.Warn("ComposerWsHandler", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	sessionID := utils.CopyString(c.Params("id"))
	if err := h.service.Authorize(userID, sessionID); err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ComposerWsHandler", "Starting websocket stream", map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
		})
		internalWS.ServeWs(h.hub, conn, sessionID, userID)
		h.logger.Info("ComposerWsHandler", "Websocket stream ended", map[string]interface{}{
			"session_id": sessionID,
		})
	})(c)
}

func (h *ComposerWsHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/podcast-composer/v1/sessions/:id/ws", h.ServeWs)
}
