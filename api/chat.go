package api

import (
	"errors"
	"fmt"
	"net/http"

	"healthscreen/models"
	"healthscreen/services"
	"healthscreen/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler streams a help-widget reply. Guests are limited to the configured number of messages.
// POST /api/chat
func (h *APIHandler) ChatHandler(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request format.", err)
		return
	}
	req.Language = models.ParseLanguage(string(req.Language), h.defaultLanguage)

	// Guests reserve the message before the reply starts; the reservation is given back when the
	// guest is over the limit or no reply is delivered.
	isGuest := utils.IsGuestID(req.UserID)
	if isGuest {
		quota := h.guestQuota()
		reserved, err := h.quotaRepo.IncrementQuota(req.UserID)
		if err != nil {
			utils.SendJSONError(c, h.log, http.StatusInternalServerError, "Could not verify chat quota.", err)
			return
		}
		if reserved.MessagesSent > quota {
			h.releaseQuota(req.UserID)
			msg := fmt.Sprintf("You have reached your chat limit of %d messages. Please register to continue.", quota)
			utils.SendJSONError(c, h.log, http.StatusForbidden, msg, nil)
			return
		}
		h.log.Debug("Guest quota reserved", zap.String("user_id", req.UserID), zap.Int("messages_sent", reserved.MessagesSent))
	}

	reply, err := h.chatService.ProcessMessageStream(c.Request.Context(), req, c.Writer)
	if err != nil {
		if isGuest {
			h.releaseQuota(req.UserID)
		}
		if c.Writer.Written() {
			// Headers are gone; report on the stream.
			h.log.Error("Chat stream failed", zap.String("user_id", req.UserID), zap.Error(err))
			writeStreamError(c, "The reply was interrupted. Please try again.")
			return
		}
		if errors.Is(err, services.ErrChatUnavailable) {
			h.respondError(c, "", err)
			return
		}
		utils.SendJSONError(c, h.log, http.StatusBadGateway, "The chat service did not respond.", err)
		return
	}

	h.log.Info("Chat reply sent", zap.String("user_id", req.UserID), zap.Int("length", len(reply)))
}

func (h *APIHandler) releaseQuota(guestID string) {
	if err := h.quotaRepo.ReleaseQuota(guestID); err != nil {
		h.log.Error("Failed to release guest quota", zap.String("user_id", guestID), zap.Error(err))
	}
}

func writeStreamError(c *gin.Context, msg string) {
	c.SSEvent("error", gin.H{"error": msg})
	c.Writer.Flush()
}

// ChatHistoryHandler returns the stored conversation of a user.
// GET /api/chat/history/:userID
func (h *APIHandler) ChatHistoryHandler(c *gin.Context) {
	history, err := h.chatService.GetChatHistory(c.Param("userID"))
	if err != nil {
		utils.SendJSONError(c, h.log, http.StatusInternalServerError, "Failed to fetch chat history.", err)
		return
	}
	utils.SendJSON(c, "success", history)
}
