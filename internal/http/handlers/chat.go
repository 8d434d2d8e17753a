package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/braingraph-backend/internal/http/response"
	"github.com/yungbote/braingraph-backend/internal/repos"
	"github.com/yungbote/braingraph-backend/internal/types"
)

type ChatHandler struct {
	chats repos.ChatRepo
}

func NewChatHandler(chats repos.ChatRepo) *ChatHandler {
	return &ChatHandler{chats: chats}
}

type createSessionReq struct {
	SessionName string `json:"session_name"`
	BrainID     uint   `json:"brain_id"`
}

// POST /chatsession
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.BrainID == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("brain_id is required"))
		return
	}
	name := strings.TrimSpace(req.SessionName)
	if name == "" {
		name = "새로운 대화"
	}
	session, err := h.chats.CreateSession(c.Request.Context(), nil, &types.ChatSession{
		SessionName: name,
		BrainID:     req.BrainID,
	})
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, session)
}

// GET /chatsession/:brain_id
func (h *ChatHandler) ListSessions(c *gin.Context) {
	brainID, err := parseUintParam(c, "brain_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
		return
	}
	sessions, err := h.chats.ListSessionsByBrain(c.Request.Context(), nil, brainID)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

// DELETE /chatsession/:session_id
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID, err := parseUintParam(c, "session_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	if err := h.chats.DeleteSession(c.Request.Context(), nil, sessionID); err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": sessionID})
}

// GET /chat/:session_id
func (h *ChatHandler) ListChats(c *gin.Context) {
	sessionID, err := parseUintParam(c, "session_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	chats, err := h.chats.GetChatList(c.Request.Context(), nil, sessionID)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chats": chats})
}

// GET /chat/message/:chat_id
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID, err := parseUintParam(c, "chat_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_chat_id", err)
		return
	}
	chat, err := h.chats.GetChatByID(c.Request.Context(), nil, chatID)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, chat)
}
