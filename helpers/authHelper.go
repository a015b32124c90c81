package helpers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// CheckUserType verifies the caller's role against the required one.
func CheckUserType(c *gin.Context, role string) error {
	userType := c.GetString("user_type")
	if userType != role {
		return errors.New("unauthorized to access this resource")
	}
	return nil
}

// MatchUserTypeToUid allows admins everywhere and regular users only on
// their own resources.
func MatchUserTypeToUid(c *gin.Context, userId string) error {
	userType := c.GetString("user_type")
	uid := c.GetString("user_id")

	if userType == "USER" && uid != userId {
		return errors.New("unauthorized to access this resource")
	}
	return CheckUserType(c, userType)
}
