package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"supporthub/internal/domain/channel"
	"supporthub/internal/services"
	"supporthub/internal/transport/httpdto"
	"supporthub/internal/webhook"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

// maxWebhookBody caps what we will buffer from the platform.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	ingest      *services.IngestService
	verifyToken string
	logger      *logger.Logger
}

func NewWebhookHandler(ingest *services.IngestService, verifyToken string, l *logger.Logger) *WebhookHandler {
	return &WebhookHandler{ingest: ingest, verifyToken: verifyToken, logger: l}
}

// Verify answers the platform's subscription handshake: echo the
// challenge when the verify token matches.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode != "subscribe" || token != h.verifyToken {
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// Receive accepts a platform webhook batch. Only an unparseable body or
// an unknown platform is a client error; processing failures still ack
// with 200 so the platform does not redeliver the whole batch.
func (h *WebhookHandler) Receive(c *gin.Context) {
	kind, ok := platformParam(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("unknown platform", "NOT_FOUND"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable body", "INVALID_REQUEST"))
		return
	}

	if err := h.ingest.Ingest(c.Request.Context(), kind, body); err != nil {
		if errors.Is(err, webhook.ErrMalformedPayload) || errors.Is(err, hub_errors.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("malformed payload", "INVALID_REQUEST"))
			return
		}
		h.logger.Errorf("webhook ingest failed: %v", err)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse("ok"))
}

func platformParam(p string) (channel.Kind, bool) {
	switch channel.Kind(p) {
	case channel.KindInstagram:
		return channel.KindInstagram, true
	case channel.KindMessenger:
		return channel.KindMessenger, true
	default:
		return "", false
	}
}
