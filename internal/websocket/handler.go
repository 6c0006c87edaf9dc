package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"supporthub/internal/middleware"
	"supporthub/pkg/logger"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via the signed token; origin is not the boundary.
		return true
	},
}

// Handler upgrades agent connections. Browsers cannot set an
// Authorization header on websocket dials, so the JWT rides in the
// token query parameter.
type Handler struct {
	hub    *Hub
	secret string
	logger *logger.Logger
}

func NewHandler(hub *Hub, secret string, l *logger.Logger) *Handler {
	return &Handler{hub: hub, secret: secret, logger: l}
}

func (h *Handler) Serve(c *gin.Context) {
	accountID, agentID, ok := h.authorize(c.Query("token"))
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := newClient(h.hub, conn, accountID, agentID)
	h.hub.register(client)
	go client.writeLoop()
	go client.readLoop()
}

func (h *Handler) authorize(token string) (uuid.UUID, uuid.UUID, bool) {
	if token == "" {
		return uuid.Nil, uuid.Nil, false
	}
	claims := &middleware.AgentClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.secret), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, uuid.Nil, false
	}
	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	agentID, err := uuid.Parse(claims.AgentID)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return accountID, agentID, true
}
