package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-recommender/internal/chat"
	"stock-recommender/internal/llm"
)

type ChatRequest struct {
	Conversation []chat.Turn `json:"conversation" binding:"required"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type Handler struct {
	recommender Recommender
	chat        Chatter
	log         *zap.Logger
}

func NewHandler(rec Recommender, chatter Chatter, log *zap.Logger) *Handler {
	return &Handler{recommender: rec, chat: chatter, log: log}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "This server is running."})
}

// Recommendations runs the pipeline. mode is parallel (default) or sequential.
func (h *Handler) Recommendations(c *gin.Context) {
	var parallel bool
	switch strings.ToLower(c.DefaultQuery("mode", "parallel")) {
	case "parallel":
		parallel = true
	case "sequential":
		parallel = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be parallel or sequential"})
		return
	}

	resp := h.recommender.GenerateRecommendations(c.Request.Context(), parallel)
	if !resp.Success {
		h.log.Error("recommendation run failed", zap.String("run_id", resp.RunID), zap.String("error", resp.Error))
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	reply, err := h.chat.Reply(c.Request.Context(), req.Conversation)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, ChatResponse{Response: reply})
	case errors.Is(err, chat.ErrEmptyConversation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation is empty"})
	case errors.Is(err, llm.ErrNoProvider):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No language model configured"})
	default:
		_ = c.Error(err)
		h.log.Error("chat completion failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Language model error"})
	}
}
