package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/MrCactuss/Ai-Powered-App-Project/controllers"
	"github.com/MrCactuss/Ai-Powered-App-Project/middlewares"
)

func SetupRouter(chat *controllers.ChatController) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.Logger(), middlewares.Recovery(), middlewares.CORS())

	// Liveness
	r.GET("/", chat.Root)

	// Send a message, optionally continuing a conversation
	r.POST("/send-message", chat.HandleSendMessage)
	r.POST("/send-message/", chat.HandleSendMessage)

	r.GET("/conversation-history", chat.ConversationHistory)
	r.GET("/conversation-history/", chat.ConversationHistory)

	return r
}
