package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/application/services"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/chat"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// ChatHandlers expose the quick chat widget of the visitor session
type ChatHandlers struct {
	chatService *services.ChatService
	attachments *media.AttachmentStore
	maxUpload   int64
	logger      *logging.ChanneledLogger
}

func NewChatHandlers(chatService *services.ChatService, attachments *media.AttachmentStore, maxUpload int64, logger *logging.ChanneledLogger) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
		attachments: attachments,
		maxUpload:   maxUpload,
		logger:      logger,
	}
}

func (h *ChatHandlers) controller(c *gin.Context) *services.ChatController {
	return h.chatService.Session(c.Request.Context(), middleware.GetSessionID(c))
}

// GetState handles GET /api/v1/chat/state
func (h *ChatHandlers) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).State())
}

// PostToggle handles POST /api/v1/chat/toggle
func (h *ChatHandlers) PostToggle(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).Toggle(c.Request.Context()))
}

// PostMinimize handles POST /api/v1/chat/minimize
func (h *ChatHandlers) PostMinimize(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).Minimize(c.Request.Context()))
}

// PostMessage handles POST /api/v1/chat/messages. The bot reply arrives
// later over the realtime socket or the next state poll.
func (h *ChatHandlers) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ctrl := h.controller(c)
	if err := ctrl.SendMessage(c.Request.Context(), req.Text); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, ctrl.State())
}

// PostQuickReply handles POST /api/v1/chat/quick-reply
func (h *ChatHandlers) PostQuickReply(c *gin.Context) {
	var req struct {
		Reply string `json:"reply"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ctrl := h.controller(c)
	if err := ctrl.SelectQuickReply(c.Request.Context(), req.Reply); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, ctrl.State())
}

// DeleteMessages handles DELETE /api/v1/chat/messages
func (h *ChatHandlers) DeleteMessages(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).Clear(c.Request.Context()))
}

// PutSettings handles PUT /api/v1/chat/settings with a partial settings body
func (h *ChatHandlers) PutSettings(c *gin.Context) {
	var patch chat.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	c.JSON(http.StatusOK, h.controller(c).UpdateSettings(c.Request.Context(), patch))
}

// PutUser handles PUT /api/v1/chat/user
func (h *ChatHandlers) PutUser(c *gin.Context) {
	var user chat.User
	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	c.JSON(http.StatusOK, h.controller(c).SetUser(c.Request.Context(), &user))
}

// PostUpload handles POST /api/v1/chat/upload (multipart field "file")
func (h *ChatHandlers) PostUpload(c *gin.Context) {
	att, _, ok := h.saveUpload(c, "file")
	if !ok {
		return
	}
	ctrl := h.controller(c)
	ctrl.SendFile(c.Request.Context(), att)
	c.JSON(http.StatusAccepted, gin.H{"attachment": att, "state": ctrl.State()})
}

// PostVoice handles POST /api/v1/chat/voice (multipart field "audio")
func (h *ChatHandlers) PostVoice(c *gin.Context) {
	if !h.chatService.VoiceEnabled() {
		c.JSON(http.StatusNotImplemented, gin.H{"error": services.ErrVoiceDisabled.Error()})
		return
	}
	att, data, ok := h.saveUpload(c, "audio")
	if !ok {
		return
	}

	ctrl := h.controller(c)
	transcript, err := ctrl.SendVoice(c.Request.Context(), bytes.NewReader(data), att.URL)
	if err != nil {
		h.logger.WithSession(logging.ChannelChat, middleware.GetSessionID(c)).Error("Voice message failed", "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not transcribe the voice message"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"transcript": transcript, "state": ctrl.State()})
}

func (h *ChatHandlers) saveUpload(c *gin.Context, field string) (chat.Attachment, []byte, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing %s upload", field)})
		return chat.Attachment{}, nil, false
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": media.ErrTooLarge.Error()})
		return chat.Attachment{}, nil, false
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return chat.Attachment{}, nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return chat.Attachment{}, nil, false
	}

	att, err := h.attachments.Save(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, media.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.logger.WithSession(logging.ChannelChat, middleware.GetSessionID(c)).Error("Upload failed", "filename", header.Filename, "error", err.Error())
		c.JSON(status, gin.H{"error": "Upload failed"})
		return chat.Attachment{}, nil, false
	}
	return att, data, true
}
