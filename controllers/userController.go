package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/dengelma9898/sharelocal-go/database"
	"github.com/dengelma9898/sharelocal-go/helpers"
	"github.com/dengelma9898/sharelocal-go/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

var usercollection *mongo.Collection

func InitUserController() {
	usercollection = database.OpenCollection(database.Client, "users")
}

var validate = validator.New()

type signupRequest struct {
	First_name string `json:"first_name" validate:"required,min=2,max=100"`
	Last_name  string `json:"last_name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	User_type  string `json:"user_type" validate:"required,oneof=ADMIN USER"`
	Password   string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HashPassword hashes a plain password
func HashPassword(password string) string {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		log.Panic(err)
	}
	return string(hashedPassword)
}

// VerifyPassword compares hashed password with plain text
func VerifyPassword(userPassword string, providedPassword string) (bool, string) {
	err := bcrypt.CompareHashAndPassword([]byte(userPassword), []byte(providedPassword))
	check := true
	msg := ""

	if err != nil {
		msg = "email or password is incorrect"
		check = false
	}
	return check, msg
}

// findUserWithCredential is the only lookup that loads the password hash.
// Everything else works with the public models.User projection.
func findUserWithCredential(ctx context.Context, email string) (*models.UserWithCredential, error) {
	var user models.UserWithCredential
	err := usercollection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Signup controller
func Signup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ctx, cancel = context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		var req signupRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if validationErr := validate.Struct(req); validationErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}

		count, err := usercollection.CountDocuments(ctx, bson.M{"email": req.Email})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		countPhone, err := usercollection.CountDocuments(ctx, bson.M{"phone": req.Phone})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if count > 0 || countPhone > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "email or phone already exists"})
			return
		}

		password := HashPassword(req.Password)

		now := time.Now()
		var user models.UserWithCredential
		user.ID = primitive.NewObjectID()
		user.User_id = user.ID.Hex()
		user.First_name = &req.First_name
		user.Last_name = &req.Last_name
		user.Email = &req.Email
		user.Phone = &req.Phone
		user.User_type = &req.User_type
		user.Password = &password
		user.Created_at = &now
		user.Updated_at = &now

		token, refreshToken, err := helpers.GenerateAllTokens(
			req.Email, req.First_name, req.Last_name, req.User_type, user.User_id,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}
		user.Token = &token
		user.Refresh_token = &refreshToken

		_, insertErr := usercollection.InsertOne(ctx, user)
		if insertErr != nil {
			log.Println("❌ [Signup] InsertOne error:", insertErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "user not created"})
			return
		}

		log.Println("✅ [Signup] User created:", user.User_id)
		c.JSON(http.StatusOK, gin.H{
			"msg":           "user created successfully",
			"token":         token,
			"refresh_token": refreshToken,
			"user":          user.User,
		})
	}
}

// Login controller
func Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		var req loginRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		foundUser, err := findUserWithCredential(ctx, req.Email)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "email or password is incorrect"})
			return
		}

		if foundUser.IsDeleted() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "email or password is incorrect"})
			return
		}

		if foundUser.Password == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "email or password is incorrect"})
			return
		}

		passwordIsValid, msg := VerifyPassword(*foundUser.Password, req.Password)
		if !passwordIsValid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		token, refreshToken, err := helpers.GenerateAllTokens(
			*foundUser.Email, *foundUser.First_name, *foundUser.Last_name, *foundUser.User_type, foundUser.User_id,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}

		if err := helpers.UpdateAllTokens(token, refreshToken, foundUser.User_id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tokens"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":         token,
			"refresh_token": refreshToken,
			"user":          foundUser.User,
		})
	}
}

func UpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		var user models.User
		if err := c.BindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userId := c.Param("user_id")
		if err := helpers.MatchUserTypeToUid(c, userId); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}

		updateObj := bson.M{}

		if user.First_name != nil {
			updateObj["first_name"] = user.First_name
		}

		if user.Last_name != nil {
			updateObj["last_name"] = user.Last_name
		}

		if user.Email != nil {
			updateObj["email"] = user.Email
		}

		if user.Phone != nil {
			updateObj["phone"] = user.Phone
		}

		updateObj["updated_at"] = time.Now()

		filter := bson.M{"user_id": userId}
		update := bson.M{"$set": updateObj}

		if _, err := usercollection.UpdateOne(ctx, filter, update); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error while updating user profile"})
			return
		}

		var updatedUser models.User
		if err := usercollection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&updatedUser); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error while fetching updated user profile"})
			return
		}

		c.JSON(http.StatusOK, updatedUser)
	}
}

func MyProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userId := c.Param("user_id")
		if userId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
			return
		}

		var user models.User
		err := usercollection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&user)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching user"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "User profile fetched successfully",
			"user":    user,
		})
	}
}

// Logout controller
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userId := c.Param("user_id")
		if userId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		if err := helpers.MatchUserTypeToUid(c, userId); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}

		update := bson.M{
			"$set": bson.M{
				"token":         "",
				"refresh_token": "",
			},
		}

		if _, err := usercollection.UpdateOne(ctx, bson.M{"user_id": userId}, update); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error logging out"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
	}
}

func ChangePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var request struct {
			NewPassword string `json:"new_password" binding:"required,min=6"`
		}

		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		hashedPassword := HashPassword(request.NewPassword)

		update := bson.M{
			"$set": bson.M{
				"password": hashedPassword,
			},
		}

		_, err := usercollection.UpdateOne(
			ctx,
			bson.M{"user_id": userID.(string)},
			update,
		)

		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
	}
}

// GetUsers controller (admin only)
func GetUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := helpers.CheckUserType(c, "ADMIN"); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}

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

		startIndex := (page - 1) * recordPerPage

		matchStage := bson.D{{Key: "$match", Value: bson.D{{Key: "deleted_at", Value: bson.D{{Key: "$exists", Value: false}}}}}}
		// Strip credentials so the aggregate only ever carries the public
		// projection.
		redactStage := bson.D{{Key: "$unset", Value: bson.A{"password", "token", "refresh_token"}}}
		groupStage := bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "null"},
			{Key: "total_count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "data", Value: bson.D{{Key: "$push", Value: "$$ROOT"}}},
		}}}
		projectStage := bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "total_count", Value: 1},
			{Key: "user_items", Value: bson.D{
				{Key: "$slice", Value: []interface{}{"$data", startIndex, recordPerPage}},
			}},
		}}}

		cursor, err := usercollection.Aggregate(ctx, mongo.Pipeline{matchStage, redactStage, groupStage, projectStage})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching users"})
			return
		}

		var allUsers []bson.M
		if err = cursor.All(ctx, &allUsers); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error decoding users"})
			return
		}

		if len(allUsers) == 0 {
			c.JSON(http.StatusOK, gin.H{"total_count": 0, "user_items": []models.User{}})
			return
		}

		c.JSON(http.StatusOK, allUsers[0])
	}
}

// GetUser controller
func GetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()

		userId := c.Param("user_id")

		var user models.User
		err := usercollection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&user)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching user"})
			}
			return
		}

		if user.IsDeleted() {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}
