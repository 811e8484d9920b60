package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/MrCactuss/Ai-Powered-App-Project/models"
)

// QueryHandler answers one user message within a conversation.
type QueryHandler interface {
	HandleQuery(ctx context.Context, message, conversationID string) models.QueryResult
}

type ChatController struct {
	assistant QueryHandler
	city      models.City
}

func NewChatController(assistant QueryHandler, city models.City) *ChatController {
	return &ChatController{assistant: assistant, city: city}
}

// HandleSendMessage runs the message through the assistant and relays the reply.
func (cc *ChatController) HandleSendMessage(c *gin.Context) {
	var request models.ChatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		log.Warn().Err(err).Msg("Error binding JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	// The caller hanging up does not cancel an in-flight run.
	ctx := context.WithoutCancel(c.Request.Context())
	result := cc.assistant.HandleQuery(ctx, request.Message, request.ConversationID)

	c.JSON(http.StatusOK, models.ChatResponse{
		ConversationID:  result.ConversationID,
		Reply:           result.Reply,
		MessageReceived: request.Message,
	})
}

// ConversationHistory exists for clients that probe it; history is not kept.
func (cc *ChatController) ConversationHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detail": "Not implemented yet"})
}

// Root is the liveness check.
func (cc *ChatController) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s chatbot backend is running!", cc.city.Name)})
}
