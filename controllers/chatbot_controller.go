package controllers

import (
	"errors"
	"net/http"

	"chat-meter/config"
	"chat-meter/middleware"
	"chat-meter/models"
	"chat-meter/services"

	"github.com/gin-gonic/gin"
)

// ChatbotHandler runs one chat cycle. Accepts JSON {"question": ...} or a multipart
// form with a question field and an optional file part.
func (h *Handler) ChatbotHandler(c *gin.Context) {
	if !h.limitBody(c) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": h.tooLargeMessage()})
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBind(&req); err != nil {
		if bodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": h.tooLargeMessage()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	state := middleware.AccountState(c)

	upload, uploadErr := h.readUpload(c)
	if uploadErr != nil {
		config.Log.WithError(uploadErr).Warn("Upload skipped")
	}

	res := h.Chat.Submit(c.Request.Context(), state, services.SubmitRequest{
		Question: req.Question,
		Upload:   upload,
	})

	resp := models.ChatResponse{
		Outcome:  res.Outcome,
		Turn:     res.Turn,
		Warnings: res.Warnings,
		Notices:  res.Notices,
		Quota:    res.Quota,
	}
	if uploadErr != nil {
		resp.Warnings = append([]string{uploadErr.Error()}, resp.Warnings...)
	}
	if res.Err != nil {
		resp.Error = refusalMessage(res)
	}
	c.JSON(statusFor(res), resp)
}

// GetChatHistory returns the account's conversation log, oldest first
func (h *Handler) GetChatHistory(c *gin.Context) {
	state := middleware.AccountState(c)
	c.JSON(http.StatusOK, gin.H{
		"turns":         state.History(),
		"upload":        state.Upload(),
		"clear_pending": state.ClearPending(),
	})
}

// RequestClearHandler arms the two-step clear.
func (h *Handler) RequestClearHandler(c *gin.Context) {
	middleware.AccountState(c).RequestClear()
	c.JSON(http.StatusOK, gin.H{"clear_pending": true, "message": "Confirm to delete the conversation"})
}

func (h *Handler) ConfirmClearHandler(c *gin.Context) {
	state := middleware.AccountState(c)
	if err := state.ConfirmClear(); err != nil {
		if errors.Is(err, services.ErrNoPendingClear) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	config.Log.WithField("username", state.Account().Name).Info("Conversation cleared")
	c.JSON(http.StatusOK, gin.H{"clear_pending": false, "message": "Conversation cleared"})
}

func (h *Handler) CancelClearHandler(c *gin.Context) {
	middleware.AccountState(c).CancelClear()
	c.JSON(http.StatusOK, gin.H{"clear_pending": false})
}

// ClearUploadHandler detaches the pending document from future prompts.
func (h *Handler) ClearUploadHandler(c *gin.Context) {
	cleared := middleware.AccountState(c).ClearUpload()
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (h *Handler) GetQuota(c *gin.Context) {
	c.JSON(http.StatusOK, h.Chat.Quota(middleware.AccountState(c)))
}

// GetUsageHistory lists every recorded day's total spend.
func (h *Handler) GetUsageHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Chat.UsageHistory()})
}
