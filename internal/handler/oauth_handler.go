package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supporthub/internal/services"
	"supporthub/internal/transport/httpdto"
	"supporthub/pkg/logger"
)

type OAuthHandler struct {
	tokens      *services.TokenService
	redirectURI string
	logger      *logger.Logger
}

func NewOAuthHandler(tokens *services.TokenService, redirectURI string, l *logger.Logger) *OAuthHandler {
	return &OAuthHandler{tokens: tokens, redirectURI: redirectURI, logger: l}
}

// Callback finishes the authorization dance. The state parameter carries
// the channel id handed out when the authorization URL was built.
func (h *OAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing code", "INVALID_REQUEST"))
		return
	}
	channelID, err := uuid.Parse(c.Query("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid state", "INVALID_REQUEST"))
		return
	}

	ch, err := h.tokens.CompleteAuthorization(c.Request.Context(), channelID, code, h.redirectURI, "")
	if err != nil {
		h.logger.Errorf("authorization failed for channel %s: %v", channelID, err)
		status, code := httpdto.StatusFor(err)
		c.JSON(status, httpdto.NewErrorResponse("authorization failed", code))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewChannelView(ch)))
}
