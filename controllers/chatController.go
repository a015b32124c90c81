package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dengelma9898/sharelocal-go/chat"
	"github.com/dengelma9898/sharelocal-go/helpers"
)

var chatService *chat.Service

func InitChatController(service *chat.Service) {
	chatService = service
}

type createConversationRequest struct {
	Listing_id      string   `json:"listing_id" validate:"required"`
	Participant_ids []string `json:"participant_ids" validate:"required,min=1"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// chatError maps core errors onto HTTP statuses.
func chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func paging(c *gin.Context) (limit, offset int64) {
	if v, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.ParseInt(c.Query("offset"), 10, 64); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// CreateConversation controller
func CreateConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var req createConversationRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if validationErr := validate.Struct(req); validationErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}

		conv, err := chatService.CreateConversation(ctx, userID.(string), req.Listing_id, req.Participant_ids)
		if err != nil {
			chatError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "Conversation ready",
			"conversation": conv,
		})
	}
}

// GetConversations controller
func GetConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		limit, offset := paging(c)

		summaries, err := chatService.Conversations(ctx, userID.(string), limit, offset)
		if err != nil {
			chatError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"conversations": summaries})
	}
}

// SendMessage controller
func SendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var req sendMessageRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		auth, err := chatService.Authorize(ctx, c.Param("conversation_id"), userID.(string))
		if err != nil {
			chatError(c, err)
			return
		}

		msg, err := chatService.SendMessage(ctx, auth, req.Content)
		if err != nil {
			chatError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Message sent successfully",
			"data":    msg,
		})
	}
}

// GetMessages controller. Fetching messages also marks the conversation
// read for the caller.
func GetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		auth, err := chatService.Authorize(ctx, c.Param("conversation_id"), userID.(string))
		if err != nil {
			chatError(c, err)
			return
		}

		limit, offset := paging(c)

		msgs, err := chatService.Messages(ctx, auth, limit, offset)
		if err != nil {
			chatError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"conversation_id": auth.ConversationID(),
			"messages":        msgs,
		})
	}
}

// ArchiveConversation controller
func ArchiveConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		auth, err := chatService.Authorize(ctx, c.Param("conversation_id"), userID.(string))
		if err != nil {
			chatError(c, err)
			return
		}

		if err := chatService.Archive(ctx, auth); err != nil {
			chatError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Conversation archived"})
	}
}

// DeleteMessage controller (admin moderation only)
func DeleteMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		if err := helpers.CheckUserType(c, "ADMIN"); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}

		if err := chatService.DeleteMessage(ctx, c.Param("message_id")); err != nil {
			chatError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
	}
}
