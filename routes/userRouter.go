package routes

import (
	"github.com/gin-gonic/gin"

	controller "github.com/dengelma9898/sharelocal-go/controllers"
	"github.com/dengelma9898/sharelocal-go/middleware"
)

func UserRoute(incomingRoutes *gin.Engine) {
	userGroup := incomingRoutes.Group("/users")
	userGroup.Use(middleware.Authentication())

	userGroup.GET("", controller.GetUsers())
	userGroup.GET("/:user_id", controller.GetUser())
}
