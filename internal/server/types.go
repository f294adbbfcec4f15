package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/petasbytes/shop-agent/memory"
)

// MessageRequest is the body of POST /v1/messages.
type MessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text" binding:"required"`
	ReplyToken     string `json:"reply_token"`
	Transcribed    bool   `json:"transcribed"`
}

type MessageResponse struct {
	ConversationID string   `json:"conversation_id"`
	ReplyToken     string   `json:"reply_token,omitempty"`
	Messages       []string `json:"messages"`
	Failed         bool     `json:"failed"`
}

type ConversationResponse struct {
	ID        string           `json:"id"`
	Messages  []memory.Message `json:"messages"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func abortError(c *gin.Context, status int, typ, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Message: message, Type: typ}})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
