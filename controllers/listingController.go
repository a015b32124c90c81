package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dengelma9898/sharelocal-go/database"
	"github.com/dengelma9898/sharelocal-go/helpers"
	"github.com/dengelma9898/sharelocal-go/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var listingcollection *mongo.Collection

func InitListingController() {
	listingcollection = database.OpenCollection(database.Client, "listings")
}

// CreateListing controller
func CreateListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var listing models.Listing
		if err := c.BindJSON(&listing); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if validationErr := validate.Struct(listing); validationErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}

		now := time.Now()
		owner := userID.(string)
		status := models.ListingStatusActive

		listing.ID = primitive.NewObjectID()
		listing.Listing_id = listing.ID.Hex()
		listing.User_id = &owner
		listing.Status = &status
		listing.Created_at = &now
		listing.Updated_at = &now
		listing.Deleted_at = nil

		if _, err := listingcollection.InsertOne(ctx, listing); err != nil {
			log.Println("❌ [CreateListing] InsertOne error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "listing not created"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Listing created successfully",
			"listing": listing,
		})
	}
}

// GetListing controller
func GetListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		listingId := c.Param("listing_id")

		var listing models.Listing
		err := listingcollection.FindOne(ctx, bson.M{"listing_id": listingId}).Decode(&listing)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching listing"})
			}
			return
		}

		if listing.IsDeleted() {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}

		c.JSON(http.StatusOK, listing)
	}
}

// GetListings controller with pagination and type/category filters
func GetListings() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		recordPerPage, err := strconv.Atoi(c.Query("recordPerPage"))
		if err != nil || recordPerPage < 1 {
			recordPerPage = 10
		}

		page, err := strconv.Atoi(c.Query("page"))
		if err != nil || page < 1 {
			page = 1
		}

		filter := bson.M{"deleted_at": bson.M{"$exists": false}}
		if listingType := c.Query("type"); listingType != "" {
			filter["listing_type"] = listingType
		}
		if category := c.Query("category"); category != "" {
			filter["category"] = category
		}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(int64((page - 1) * recordPerPage)).
			SetLimit(int64(recordPerPage))

		cursor, err := listingcollection.Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching listings"})
			return
		}
		defer cursor.Close(ctx)

		var listings []models.Listing
		if err = cursor.All(ctx, &listings); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error decoding listings"})
			return
		}

		total, err := listingcollection.CountDocuments(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error counting listings"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total_count":   total,
			"listing_items": listings,
		})
	}
}

// UpdateListing controller (owner only)
func UpdateListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		listingId := c.Param("listing_id")

		var existing models.Listing
		err := listingcollection.FindOne(ctx, bson.M{"listing_id": listingId}).Decode(&existing)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}

		if existing.User_id == nil || *existing.User_id != userID.(string) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can update a listing"})
			return
		}

		var listing models.Listing
		if err := c.BindJSON(&listing); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updateObj := bson.M{}

		if listing.Title != nil {
			updateObj["title"] = listing.Title
		}
		if listing.Description != nil {
			updateObj["description"] = listing.Description
		}
		if listing.Category != nil {
			updateObj["category"] = listing.Category
		}
		if listing.Price != nil {
			updateObj["price"] = listing.Price
		}
		if listing.Status != nil {
			updateObj["status"] = listing.Status
		}

		updateObj["updated_at"] = time.Now()

		_, err = listingcollection.UpdateOne(ctx,
			bson.M{"listing_id": listingId},
			bson.M{"$set": updateObj},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error while updating listing"})
			return
		}

		var updated models.Listing
		if err := listingcollection.FindOne(ctx, bson.M{"listing_id": listingId}).Decode(&updated); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error while fetching updated listing"})
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

// DeleteListing controller (soft delete, owner only)
func DeleteListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		listingId := c.Param("listing_id")

		var existing models.Listing
		err := listingcollection.FindOne(ctx, bson.M{"listing_id": listingId}).Decode(&existing)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}

		if existing.User_id == nil || *existing.User_id != userID.(string) {
			if err := helpers.CheckUserType(c, "ADMIN"); err != nil {
				c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can delete a listing"})
				return
			}
		}

		update := bson.M{
			"$set": bson.M{
				"deleted_at": time.Now(),
				"updated_at": time.Now(),
			},
		}

		if _, err := listingcollection.UpdateOne(ctx, bson.M{"listing_id": listingId}, update); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error deleting listing"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Listing deleted successfully"})
	}
}

// UploadListingPhoto controller
func UploadListingPhoto() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		listingId := c.Param("listing_id")

		var existing models.Listing
		err := listingcollection.FindOne(ctx, bson.M{"listing_id": listingId}).Decode(&existing)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}

		if existing.User_id == nil || *existing.User_id != userID.(string) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can upload a photo"})
			return
		}

		file, fileHeader, err := c.Request.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
			return
		}
		defer file.Close()

		photoURL, uploadErr := helpers.UploadFile(file, fileHeader, "listing_photos")
		if uploadErr != nil {
			log.Println("❌ [UploadListingPhoto] Error uploading photo:", uploadErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo"})
			return
		}

		update := bson.M{
			"$set": bson.M{
				"photo_url":  photoURL,
				"updated_at": time.Now(),
			},
		}
		if _, err := listingcollection.UpdateOne(ctx, bson.M{"listing_id": listingId}, update); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error saving photo url"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "Photo uploaded successfully",
			"photo_url": photoURL,
		})
	}
}
