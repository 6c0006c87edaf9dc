package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supporthub/internal/middleware"
	"supporthub/internal/services"
	"supporthub/internal/transport/httpdto"
)

type ReplyHandler struct {
	replies *services.ReplyService
}

func NewReplyHandler(replies *services.ReplyService) *ReplyHandler {
	return &ReplyHandler{replies: replies}
}

// Create posts an agent message to a conversation. The message row is
// written immediately; delivery happens on the background worker.
func (h *ReplyHandler) Create(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid account_id", "INVALID_REQUEST"))
		return
	}
	displayID, err := strconv.ParseInt(c.Param("display_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid display_id", "INVALID_REQUEST"))
		return
	}
	agentID, ok := middleware.AgentIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	attachments := make([]services.AgentAttachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, services.AgentAttachment{
			FileName:    a.FileName,
			ContentType: a.ContentType,
			Data:        a.Data,
		})
	}

	m, err := h.replies.Reply(c.Request.Context(), services.ReplyInput{
		AccountID:   accountID,
		DisplayID:   displayID,
		AgentID:     agentID,
		Content:     req.Content,
		Private:     req.Private,
		Attachments: attachments,
	})
	if err != nil {
		status, code := httpdto.StatusFor(err)
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewMessageView(m)))
}
