package realtime

import (
	"strings"

	"go-taskboard/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WebSocketController struct {
	registry *SessionRegistry
	log      *zap.Logger
}

func NewWebSocketController(registry *SessionRegistry, log *zap.Logger) *WebSocketController {
	return &WebSocketController{
		registry: registry,
		log:      log,
	}
}

// Upgrade runs before the websocket handshake completes. It verifies the
// bearer credential and stashes the identity for the connection handler.
// A missing or invalid credential rejects the connection outright; there
// is no pending-auth state.
func (h *WebSocketController) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		auth := c.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			token = auth[7:]
		}
	}
	if token == "" {
		h.log.Warn("websocket rejected: missing credential", zap.String("ip", c.IP()))
		return fiber.ErrUnauthorized
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		h.log.Warn("websocket rejected: invalid credential",
			zap.String("ip", c.IP()),
			zap.Error(err))
		return fiber.ErrUnauthorized
	}

	c.Locals("userID", claims.UserID)
	return c.Next()
}

// HandleWebSocket owns an admitted connection for its lifetime: register
// with the identity's group, then hold the read loop open until the
// transport closes. Inbound frames are ignored; the channel is
// server-to-client only.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		// Should be unreachable past Upgrade, but never admit an
		// unverified connection into a group.
		c.Close()
		return
	}

	sess := h.registry.Add(userID, c)
	defer h.registry.Remove(sess)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
