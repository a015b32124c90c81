package routes

import (
	"github.com/gin-gonic/gin"

	controller "github.com/dengelma9898/sharelocal-go/controllers"
	"github.com/dengelma9898/sharelocal-go/middleware"
)

func AuthRoute(router *gin.Engine) {

	router.POST("/login", controller.Login())
	router.POST("/register", controller.Signup())

	authGroup := router.Group("/auth")
	authGroup.Use(middleware.Authentication())
	{
		authGroup.PUT("/changepassword", controller.ChangePassword())
		authGroup.PUT("/updateprofile/:user_id", controller.UpdateProfile())
		authGroup.GET("/myprofile/:user_id", controller.MyProfile())
		authGroup.POST("/logout/:user_id", controller.Logout())
	}
}
