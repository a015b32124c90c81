package routes

import (
	"github.com/gin-gonic/gin"

	controller "github.com/dengelma9898/sharelocal-go/controllers"
	"github.com/dengelma9898/sharelocal-go/middleware"
)

func ChatRoute(router *gin.Engine) {
	chatGroup := router.Group("/chat")
	chatGroup.Use(middleware.Authentication())
	{
		chatGroup.POST("/conversations", controller.CreateConversation())
		chatGroup.GET("/conversations", controller.GetConversations())
		chatGroup.POST("/conversations/:conversation_id/messages", controller.SendMessage())
		chatGroup.GET("/conversations/:conversation_id/messages", controller.GetMessages())
		chatGroup.DELETE("/conversations/:conversation_id", controller.ArchiveConversation())
		chatGroup.DELETE("/messages/:message_id", controller.DeleteMessage())
	}
}
