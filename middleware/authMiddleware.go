package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	helper "github.com/dengelma9898/sharelocal-go/helpers"
)

// Authentication guards routes that require a logged-in user.
func Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization format"})
			c.Abort()
			return
		}

		claims, err := helper.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.Uid)
		c.Set("user_type", claims.User_type)
		c.Next()
	}
}

// OptionalAuthentication is for public routes (listing browsing) that
// behave slightly differently when a user happens to be logged in.
func OptionalAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			claims, err := helper.ValidateToken(parts[1])
			if err == nil {
				c.Set("user_id", claims.Uid)
				c.Set("user_type", claims.User_type)
			}
		}
		c.Next()
	}
}
